package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"eco-haat/internal/domain"
	"eco-haat/internal/feature/account"
	"eco-haat/internal/feature/input"
	"eco-haat/internal/feature/order"
	"eco-haat/internal/feature/product"
	httpez "eco-haat/internal/transport/http/ez"
)

var adminOnly = []domain.Role{domain.RoleAdmin}

// ---------- 审核与订单管理（用户端 /api/v1/admin 与管理端 /admin/v1 各挂一份） ----------

type moderationModule struct{ d *Deps }

func (m *moderationModule) MountAPI(g *gin.RouterGroup) { m.mount(g.Group("/admin")) }
func (m *moderationModule) MountAdmin(g *gin.RouterGroup) { m.mount(g) }

type ratingIn struct {
	EcoRating *int `json:"eco_rating" binding:"required"`
}

type rejectIn struct {
	Reason string `json:"reason"`
}

type orderStatusIn struct {
	Status string `json:"status" binding:"required"`
}

type usersQ struct {
	Role   string `form:"role"`
	Search string `form:"q"`
	pageQ
}

func (m *moderationModule) mount(g *gin.RouterGroup) {
	e := httpez.New(g)

	httpez.RegisterAction(e, httpez.Action[statusQ, product.Page]{
		Method: http.MethodGet,
		Path:   "/products",
		Binder: httpez.BindQuery,
		Roles:  adminOnly,
		Handler: func(c *gin.Context, in *statusQ) (product.Page, error) {
			return m.d.Products.ListForAdmin(c.Request.Context(), httpez.Actor(c), in.Status, in.Page, in.Size)
		},
	})
	httpez.RegisterAction(e, httpez.Action[struct{}, *domain.Product]{
		Method: http.MethodGet,
		Path:   "/products/:id",
		Binder: httpez.BindNone,
		Roles:  adminOnly,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.Product, error) {
			return m.d.Products.GetOwned(c.Request.Context(), httpez.Actor(c), c.Param("id"))
		},
	})
	httpez.RegisterAction(e, httpez.Action[ratingIn, *domain.Product]{
		Method: http.MethodPost,
		Path:   "/products/:id/approve",
		Binder: httpez.BindJSON,
		Roles:  adminOnly,
		Handler: func(c *gin.Context, in *ratingIn) (*domain.Product, error) {
			return m.d.Products.Approve(c.Request.Context(), httpez.Actor(c), c.Param("id"), *in.EcoRating)
		},
	})
	httpez.RegisterAction(e, httpez.Action[rejectIn, *domain.Product]{
		Method: http.MethodPost,
		Path:   "/products/:id/reject",
		Binder: httpez.BindJSON,
		Roles:  adminOnly,
		Handler: func(c *gin.Context, in *rejectIn) (*domain.Product, error) {
			return m.d.Products.Reject(c.Request.Context(), httpez.Actor(c), c.Param("id"), in.Reason)
		},
	})
	httpez.RegisterAction(e, httpez.Action[ratingIn, *domain.Product]{
		Method: http.MethodPut,
		Path:   "/products/:id/eco-rating",
		Binder: httpez.BindJSON,
		Roles:  adminOnly,
		Handler: func(c *gin.Context, in *ratingIn) (*domain.Product, error) {
			return m.d.Products.UpdateEcoRating(c.Request.Context(), httpez.Actor(c), c.Param("id"), *in.EcoRating)
		},
	})
	httpez.RegisterAction(e, httpez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/products/:id",
		Binder: httpez.BindNone,
		Roles:  adminOnly,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			return gin.H{"id": id}, m.d.Products.Delete(c.Request.Context(), httpez.Actor(c), id)
		},
	})
	httpez.RegisterAction(e, httpez.Action[usersQ, account.UserPage]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: httpez.BindQuery,
		Roles:  adminOnly,
		Handler: func(c *gin.Context, in *usersQ) (account.UserPage, error) {
			return m.d.Accounts.ListUsers(c.Request.Context(), httpez.Actor(c), in.Role, in.Search, in.Page, in.Size)
		},
	})
	httpez.RegisterAction(e, httpez.Action[statusQ, order.Page]{
		Method: http.MethodGet,
		Path:   "/orders",
		Binder: httpez.BindQuery,
		Roles:  adminOnly,
		Handler: func(c *gin.Context, in *statusQ) (order.Page, error) {
			return m.d.Orders.ListAll(c.Request.Context(), httpez.Actor(c), in.Status, in.Page, in.Size)
		},
	})
	httpez.RegisterAction(e, httpez.Action[struct{}, *domain.Order]{
		Method: http.MethodGet,
		Path:   "/orders/:id",
		Binder: httpez.BindNone,
		Roles:  adminOnly,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.Order, error) {
			return m.d.Orders.Get(c.Request.Context(), httpez.Actor(c), c.Param("id"))
		},
	})
	httpez.RegisterAction(e, httpez.Action[orderStatusIn, *domain.Order]{
		Method: http.MethodPut,
		Path:   "/orders/:id/status",
		Binder: httpez.BindJSON,
		Roles:  adminOnly,
		Handler: func(c *gin.Context, in *orderStatusIn) (*domain.Order, error) {
			return m.d.Orders.UpdateStatus(c.Request.Context(), httpez.Actor(c), c.Param("id"), in.Status)
		},
	})
	httpez.RegisterAction(e, httpez.Action[struct{}, any]{
		Method: http.MethodGet,
		Path:   "/stats",
		Binder: httpez.BindNone,
		Roles:  adminOnly,
		Handler: func(c *gin.Context, _ *struct{}) (any, error) {
			return m.d.Stats.Admin(c.Request.Context(), httpez.Actor(c))
		},
	})
}

// ---------- 分类管理（通用 CRUD，需要真实 DB） ----------

type categoryModule struct{ d *Deps }

func (m *categoryModule) MountAPI(g *gin.RouterGroup) { m.mount(g.Group("/admin")) }
func (m *categoryModule) MountAdmin(g *gin.RouterGroup) { m.mount(g) }

func cleanCategory(_ *gin.Context, cat *domain.Category) error {
	cat.Name = input.Text(cat.Name)
	cat.Description = input.Text(cat.Description)
	cat.Icon = strings.TrimSpace(cat.Icon)
	if cat.Name == "" {
		return domain.Invalid("name", "is required")
	}
	return nil
}

func (m *categoryModule) mount(g *gin.RouterGroup) {
	if m.d.DB == nil {
		return
	}
	httpez.Crud(httpez.CrudConfig[domain.Category]{
		DB:    m.d.DB,
		Group: g,
		Path:  "/categories",
		New:   func() *domain.Category { return &domain.Category{} },
		Hooks: httpez.CrudHooks[domain.Category]{
			BeforeCreate: cleanCategory,
			BeforeUpdate: cleanCategory,
			BeforeDelete: func(c *gin.Context, id string) error {
				return m.d.Catalog.CheckDeletable(c.Request.Context(), id)
			},
			AfterWrite: func(c *gin.Context) { m.d.Catalog.Invalidate(c.Request.Context()) },
		},
		Roles:   adminOnly,
		OrderBy: "name ASC",
	})
}
