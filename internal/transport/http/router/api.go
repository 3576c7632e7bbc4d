package router

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"eco-haat/internal/domain"
	"eco-haat/internal/feature/account"
	"eco-haat/internal/feature/cart"
	"eco-haat/internal/feature/order"
	"eco-haat/internal/feature/product"
	httpez "eco-haat/internal/transport/http/ez"
	resp "eco-haat/internal/transport/http/response"
)

type pageQ struct {
	Page int `form:"page"`
	Size int `form:"size"`
}

type statusQ struct {
	Status string `form:"status"`
	pageQ
}

// ---------- /auth ----------

type authModule struct{ d *Deps }

func (*authModule) Priority() int { return 10 }

func (m *authModule) MountAPI(g *gin.RouterGroup) {
	e := httpez.New(g)
	httpez.RegisterAction(e, httpez.Action[account.RegisterInput, *domain.Profile]{
		Method: http.MethodPost,
		Path:   "/auth/register",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *account.RegisterInput) (*domain.Profile, error) {
			return m.d.Accounts.Register(c.Request.Context(), *in)
		},
	})
	m.mountLogin(e, false)
}

// MountAdmin 管理端登录只接受 admin
func (m *authModule) MountAdmin(g *gin.RouterGroup) {
	m.mountLogin(httpez.New(g), true)
}

func (m *authModule) mountLogin(e httpez.EZ, adminOnly bool) {
	httpez.RegisterAction(e, httpez.Action[account.Credentials, *account.LoginResult]{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *account.Credentials) (*account.LoginResult, error) {
			res, err := m.d.Accounts.Login(c.Request.Context(), *in)
			if errors.Is(err, domain.ErrUnauthenticated) {
				return nil, &httpez.AErr{Code: resp.CodeUnauthorized, Msg: "invalid email or password"}
			}
			if err != nil {
				return nil, err
			}
			if adminOnly && !res.Profile.Role.IsAdmin() {
				return nil, domain.ErrPermission
			}
			setSessionCookie(c, m.d.Web, res.Token, time.Until(res.ExpiresAt))
			return res, nil
		},
	})
	httpez.RegisterAction(e, httpez.Action[struct{}, gin.H]{
		Method: http.MethodPost,
		Path:   "/auth/logout",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			clearSessionCookie(c, m.d.Web)
			return gin.H{}, nil
		},
	})
}

// ---------- 商品浏览（公开） ----------

type storefrontModule struct{ d *Deps }

func (m *storefrontModule) MountAPI(g *gin.RouterGroup) {
	e := httpez.New(g)
	httpez.RegisterAction(e, httpez.Action[product.BuyerFilter, product.Page]{
		Method: http.MethodGet,
		Path:   "/products",
		Binder: httpez.BindQuery,
		Handler: func(c *gin.Context, in *product.BuyerFilter) (product.Page, error) {
			return m.d.Products.ListForBuyer(c.Request.Context(), *in)
		},
	})
	httpez.RegisterAction(e, httpez.Action[struct{}, *domain.Product]{
		Method: http.MethodGet,
		Path:   "/products/:id",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.Product, error) {
			return m.d.Products.Get(c.Request.Context(), c.Param("id"))
		},
	})
	httpez.RegisterAction(e, httpez.Action[struct{}, []domain.Category]{
		Method: http.MethodGet,
		Path:   "/categories",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.Category, error) {
			return m.d.Catalog.List(c.Request.Context())
		},
	})
}

// ---------- /me, /orders（买家下单与本人订单） ----------

type meModule struct{ d *Deps }

func (m *meModule) mountProfile(e httpez.EZ) {
	httpez.RegisterAction(e, httpez.Action[struct{}, *domain.Profile]{
		Method: http.MethodGet,
		Path:   "/me",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.Profile, error) {
			return m.d.Accounts.Me(c.Request.Context(), httpez.Actor(c))
		},
	})
	httpez.RegisterAction(e, httpez.Action[account.ProfileInput, *domain.Profile]{
		Method: http.MethodPut,
		Path:   "/me",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *account.ProfileInput) (*domain.Profile, error) {
			return m.d.Accounts.UpdateProfile(c.Request.Context(), httpez.Actor(c), *in)
		},
	})
}

func (m *meModule) MountAPI(g *gin.RouterGroup) {
	e := httpez.New(g)
	m.mountProfile(e)
	httpez.RegisterAction(e, httpez.Action[order.CheckoutInput, *domain.Order]{
		Method: http.MethodPost,
		Path:   "/orders",
		Binder: httpez.BindJSON,
		Roles:  []domain.Role{domain.RoleBuyer},
		Handler: func(c *gin.Context, in *order.CheckoutInput) (*domain.Order, error) {
			return m.d.Orders.Checkout(c.Request.Context(), httpez.Actor(c), *in)
		},
	})
	httpez.RegisterAction(e, httpez.Action[statusQ, order.Page]{
		Method: http.MethodGet,
		Path:   "/orders",
		Binder: httpez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *statusQ) (order.Page, error) {
			return m.d.Orders.ListMine(c.Request.Context(), httpez.Actor(c), in.Status, in.Page, in.Size)
		},
	})
	httpez.RegisterAction(e, httpez.Action[struct{}, *domain.Order]{
		Method: http.MethodGet,
		Path:   "/orders/:id",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.Order, error) {
			return m.d.Orders.Get(c.Request.Context(), httpez.Actor(c), c.Param("id"))
		},
	})
}

func (m *meModule) MountAdmin(g *gin.RouterGroup) { m.mountProfile(httpez.New(g)) }

// ---------- /cart（仅 buyer） ----------

type cartModule struct{ d *Deps }

type quantityIn struct {
	Quantity int `json:"quantity"`
}

func (m *cartModule) MountAPI(g *gin.RouterGroup) {
	e := httpez.New(g.Group("/cart"))
	buyer := []domain.Role{domain.RoleBuyer}

	httpez.RegisterAction(e, httpez.Action[struct{}, cart.Summary]{
		Method: http.MethodGet,
		Path:   "",
		Binder: httpez.BindNone,
		Roles:  buyer,
		Handler: func(c *gin.Context, _ *struct{}) (cart.Summary, error) {
			return m.d.Cart.List(c.Request.Context(), httpez.Actor(c))
		},
	})
	httpez.RegisterAction(e, httpez.Action[struct{}, gin.H]{
		Method: http.MethodGet,
		Path:   "/count",
		Binder: httpez.BindNone,
		Roles:  buyer,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			n, err := m.d.Cart.Count(c.Request.Context(), httpez.Actor(c))
			return gin.H{"count": n}, err
		},
	})
	httpez.RegisterAction(e, httpez.Action[cart.AddInput, *domain.CartItem]{
		Method: http.MethodPost,
		Path:   "/items",
		Binder: httpez.BindJSON,
		Roles:  buyer,
		Handler: func(c *gin.Context, in *cart.AddInput) (*domain.CartItem, error) {
			return m.d.Cart.Add(c.Request.Context(), httpez.Actor(c), *in)
		},
	})
	httpez.RegisterAction(e, httpez.Action[quantityIn, gin.H]{
		Method: http.MethodPut,
		Path:   "/items/:id",
		Binder: httpez.BindJSON,
		Roles:  buyer,
		Handler: func(c *gin.Context, in *quantityIn) (gin.H, error) {
			id := c.Param("id")
			return gin.H{"id": id}, m.d.Cart.UpdateQuantity(c.Request.Context(), httpez.Actor(c), id, in.Quantity)
		},
	})
	httpez.RegisterAction(e, httpez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/items/:id",
		Binder: httpez.BindNone,
		Roles:  buyer,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			return gin.H{"id": id}, m.d.Cart.Remove(c.Request.Context(), httpez.Actor(c), id)
		},
	})
	httpez.RegisterAction(e, httpez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "",
		Binder: httpez.BindNone,
		Roles:  buyer,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			return gin.H{}, m.d.Cart.Clear(c.Request.Context(), httpez.Actor(c))
		},
	})
}

// ---------- /seller（seller 或 admin） ----------

type sellerModule struct{ d *Deps }

func (m *sellerModule) MountAPI(g *gin.RouterGroup) {
	e := httpez.New(g.Group("/seller"))
	sellers := []domain.Role{domain.RoleSeller, domain.RoleAdmin}

	httpez.RegisterAction(e, httpez.Action[statusQ, product.Page]{
		Method: http.MethodGet,
		Path:   "/products",
		Binder: httpez.BindQuery,
		Roles:  sellers,
		Handler: func(c *gin.Context, in *statusQ) (product.Page, error) {
			return m.d.Products.ListForSeller(c.Request.Context(), httpez.Actor(c), in.Status, in.Page, in.Size)
		},
	})
	httpez.RegisterAction(e, httpez.Action[product.Input, *domain.Product]{
		Method: http.MethodPost,
		Path:   "/products",
		Binder: httpez.BindJSON,
		Roles:  sellers,
		Handler: func(c *gin.Context, in *product.Input) (*domain.Product, error) {
			return m.d.Products.Submit(c.Request.Context(), httpez.Actor(c), *in)
		},
	})
	httpez.RegisterAction(e, httpez.Action[struct{}, *domain.Product]{
		Method: http.MethodGet,
		Path:   "/products/:id",
		Binder: httpez.BindNone,
		Roles:  sellers,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.Product, error) {
			return m.d.Products.GetOwned(c.Request.Context(), httpez.Actor(c), c.Param("id"))
		},
	})
	httpez.RegisterAction(e, httpez.Action[product.Input, *domain.Product]{
		Method: http.MethodPut,
		Path:   "/products/:id",
		Binder: httpez.BindJSON,
		Roles:  sellers,
		Handler: func(c *gin.Context, in *product.Input) (*domain.Product, error) {
			return m.d.Products.Update(c.Request.Context(), httpez.Actor(c), c.Param("id"), *in)
		},
	})
	httpez.RegisterAction(e, httpez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/products/:id",
		Binder: httpez.BindNone,
		Roles:  sellers,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			return gin.H{"id": id}, m.d.Products.Delete(c.Request.Context(), httpez.Actor(c), id)
		},
	})
	httpez.RegisterAction(e, httpez.Action[pageQ, order.Page]{
		Method: http.MethodGet,
		Path:   "/orders",
		Binder: httpez.BindQuery,
		Roles:  sellers,
		Handler: func(c *gin.Context, in *pageQ) (order.Page, error) {
			return m.d.Orders.ListForSeller(c.Request.Context(), httpez.Actor(c), in.Page, in.Size)
		},
	})
	httpez.RegisterAction(e, httpez.Action[struct{}, any]{
		Method: http.MethodGet,
		Path:   "/stats",
		Binder: httpez.BindNone,
		Roles:  sellers,
		Handler: func(c *gin.Context, _ *struct{}) (any, error) {
			return m.d.Stats.Seller(c.Request.Context(), httpez.Actor(c))
		},
	})
}
