package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"eco-haat/internal/core/auth"
	"eco-haat/internal/core/config"
	"eco-haat/internal/domain"
	"eco-haat/internal/domain/domaintest"
	"eco-haat/internal/feature/account"
	"eco-haat/internal/feature/cart"
	"eco-haat/internal/feature/catalog"
	"eco-haat/internal/feature/dashboard"
	"eco-haat/internal/feature/order"
	"eco-haat/internal/feature/product"
	resp "eco-haat/internal/transport/http/response"
)

const cookieName = "eco_haat_session"

type RouterSuite struct {
	suite.Suite
	store    *domaintest.Store
	accounts *account.Service
	api      *gin.Engine
	admin    *gin.Engine
}

func TestRouter(t *testing.T) { suite.Run(t, new(RouterSuite)) }

func (s *RouterSuite) SetupTest() {
	s.store = domaintest.NewStore()
	jwt := &auth.JWTer{Secret: []byte("router-test-secret"), Issuer: "eco-haat", TTL: time.Hour}
	s.accounts = account.NewService(s.store.Users(), jwt, nil)
	products := s.store.Products()

	d := &Deps{
		Sessions: &auth.SessionResolver{JWT: jwt, Profiles: s.store.Users()},
		Accounts: s.accounts,
		Products: product.NewService(products, product.WithCategories(s.store.Categories())),
		Catalog:  catalog.NewService(s.store.Categories(), products, nil, catalog.DefaultTTL, nil),
		Cart:     cart.NewService(s.store.Cart(), products),
		Orders:   order.NewService(s.store.Orders(), s.store.Cart(), nil),
		Stats:    dashboard.NewService(products, s.store.Users(), s.store.Orders()),
		Mode:     gin.TestMode,
		Web: config.Web{
			LoginPath:      "/login",
			AdminLoginPath: "/admin/login",
			LandingPath:    "/",
			CookieName:     cookieName,
		},
	}
	s.api = NewAPIEngine(d)
	s.admin = NewAdminEngine(d)
}

// signup 注册并登录，返回 token
func (s *RouterSuite) signup(email string, role domain.Role) string {
	ctx := context.Background()
	p, err := s.accounts.Register(ctx, account.RegisterInput{Email: email, Password: "secret1"})
	s.Require().NoError(err)
	if role != domain.RoleBuyer {
		s.Require().NoError(s.store.Users().SetRole(ctx, p.ID, role))
	}
	res, err := s.accounts.Login(ctx, account.Credentials{Email: email, Password: "secret1"})
	s.Require().NoError(err)
	return res.Token
}

func (s *RouterSuite) do(e *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Code int            `json:"code"`
	Msg  string         `json:"msg"`
	Data map[string]any `json:"data"`
}

func (s *RouterSuite) call(e *gin.Engine, method, path, token, body string) envelope {
	w := s.do(e, method, path, token, body)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var out envelope
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *RouterSuite) submit(token, name string) string {
	out := s.call(s.api, http.MethodPost, "/api/v1/seller/products", token,
		`{"name":"`+name+`","price":12.5,"material":"jute","images":["https://cdn.example.com/a.jpg"]}`)
	s.Require().Equal(resp.CodeOK, out.Code, out.Msg)
	s.Equal("pending", out.Data["status"])
	return out.Data["id"].(string)
}

func (s *RouterSuite) TestPageRedirects() {
	w := s.do(s.api, http.MethodGet, "/seller/dashboard", "", "")
	s.Equal(http.StatusFound, w.Code)
	s.Equal("/login?redirect="+url.QueryEscape("/seller/dashboard"), w.Header().Get("Location"))

	buyer := s.signup("buyer@example.com", domain.RoleBuyer)
	w = s.do(s.api, http.MethodGet, "/admin/products", buyer, "")
	s.Equal(http.StatusFound, w.Code)
	s.Equal("/", w.Header().Get("Location"), "role denial goes to the neutral landing page")
}

func (s *RouterSuite) TestAPIDenialEnvelope() {
	out := s.call(s.api, http.MethodGet, "/api/v1/cart", "", "")
	s.Equal(resp.CodeUnauthorized, out.Code)
	s.Equal("/login?redirect="+url.QueryEscape("/api/v1/cart"), out.Data["redirect"])

	seller := s.signup("seller@example.com", domain.RoleSeller)
	out = s.call(s.api, http.MethodGet, "/api/v1/admin/products", seller, "")
	s.Equal(resp.CodeForbidden, out.Code)
	s.Equal("forbidden", out.Msg)
	s.Equal("/", out.Data["redirect"])
	s.NotContains(out.Data, "items")
}

func (s *RouterSuite) TestForgedTokenIsAnonymous() {
	out := s.call(s.api, http.MethodGet, "/api/v1/me", "not.a.jwt", "")
	s.Equal(resp.CodeUnauthorized, out.Code)
}

func (s *RouterSuite) TestModerationEndToEnd() {
	seller := s.signup("seller@example.com", domain.RoleSeller)
	admin := s.signup("admin@example.com", domain.RoleAdmin)
	id := s.submit(seller, "Jute Tote")

	// 审核前买家看不到
	out := s.call(s.api, http.MethodGet, "/api/v1/products", "", "")
	s.Equal(resp.CodeOK, out.Code)
	s.EqualValues(0, out.Data["total"])
	out = s.call(s.api, http.MethodGet, "/api/v1/products/"+id, "", "")
	s.Equal(resp.CodeNotFound, out.Code)

	// 管理员队列默认只看 pending
	out = s.call(s.api, http.MethodGet, "/api/v1/admin/products", admin, "")
	s.Equal(resp.CodeOK, out.Code)
	s.EqualValues(1, out.Data["total"])

	out = s.call(s.api, http.MethodPost, "/api/v1/admin/products/"+id+"/approve", admin, `{"eco_rating":140}`)
	s.Require().Equal(resp.CodeOK, out.Code, out.Msg)
	s.Equal("approved", out.Data["status"])
	s.EqualValues(100, out.Data["eco_rating"])

	out = s.call(s.api, http.MethodGet, "/api/v1/products?material=JUTE", "", "")
	s.EqualValues(1, out.Data["total"])

	// 终态不可再审
	out = s.call(s.api, http.MethodPost, "/api/v1/admin/products/"+id+"/reject", admin, `{"reason":"late"}`)
	s.Equal(resp.CodeConflict, out.Code)
	out = s.call(s.api, http.MethodPost, "/api/v1/admin/products/"+id+"/approve", admin, `{"eco_rating":10}`)
	s.Equal(resp.CodeConflict, out.Code)

	out = s.call(s.api, http.MethodPut, "/api/v1/admin/products/"+id+"/eco-rating", admin, `{"eco_rating":-5}`)
	s.Require().Equal(resp.CodeOK, out.Code)
	s.EqualValues(0, out.Data["eco_rating"])
}

func (s *RouterSuite) TestRejectRequiresPendingAndClearsRating() {
	seller := s.signup("seller@example.com", domain.RoleSeller)
	admin := s.signup("admin@example.com", domain.RoleAdmin)
	id := s.submit(seller, "Bamboo Brush")

	out := s.call(s.admin, http.MethodPost, "/admin/v1/products/"+id+"/reject", admin, `{"reason":"<b>needs</b> photos"}`)
	s.Require().Equal(resp.CodeOK, out.Code, out.Msg)
	s.Equal("rejected", out.Data["status"])
	s.Equal("needs photos", out.Data["rejection_reason"])
	s.Nil(out.Data["eco_rating"])

	out = s.call(s.api, http.MethodGet, "/api/v1/seller/products?status=rejected", seller, "")
	s.EqualValues(1, out.Data["total"])
}

func (s *RouterSuite) TestApproveNeedsRating() {
	seller := s.signup("seller@example.com", domain.RoleSeller)
	admin := s.signup("admin@example.com", domain.RoleAdmin)
	id := s.submit(seller, "Clay Cup")

	out := s.call(s.api, http.MethodPost, "/api/v1/admin/products/"+id+"/approve", admin, `{}`)
	s.Equal(resp.CodeBadRequest, out.Code)
	s.Equal("eco_rating", out.Data["field"])
}

func (s *RouterSuite) TestSubmitValidation() {
	seller := s.signup("seller@example.com", domain.RoleSeller)
	out := s.call(s.api, http.MethodPost, "/api/v1/seller/products", seller, `{"name":"x","price":0,"material":"jute"}`)
	s.Equal(resp.CodeBadRequest, out.Code)
	s.Equal("price", out.Data["field"])

	buyer := s.signup("buyer@example.com", domain.RoleBuyer)
	out = s.call(s.api, http.MethodPost, "/api/v1/seller/products", buyer, `{"name":"x","price":1,"material":"jute"}`)
	s.Equal(resp.CodeForbidden, out.Code)
}

func (s *RouterSuite) TestRoleChangeAppliesToExistingToken() {
	seller := s.signup("seller@example.com", domain.RoleSeller)
	out := s.call(s.api, http.MethodGet, "/api/v1/seller/products", seller, "")
	s.Equal(resp.CodeOK, out.Code)

	p, err := s.store.Users().FindByEmail(context.Background(), "seller@example.com")
	s.Require().NoError(err)
	s.Require().NoError(s.store.Users().SetRole(context.Background(), p.ID, domain.RoleBuyer))

	out = s.call(s.api, http.MethodGet, "/api/v1/seller/products", seller, "")
	s.Equal(resp.CodeForbidden, out.Code)
}

func (s *RouterSuite) TestLoginSetsSessionCookie() {
	s.signup("buyer@example.com", domain.RoleBuyer)

	w := s.do(s.api, http.MethodPost, "/api/v1/auth/login", "", `{"email":"BUYER@example.com","password":"secret1"}`)
	s.Require().Equal(http.StatusOK, w.Code)
	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == cookieName {
			session = c
		}
	}
	s.Require().NotNil(session)
	s.True(session.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.AddCookie(session)
	w = httptest.NewRecorder()
	s.api.ServeHTTP(w, req)
	var out envelope
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out))
	s.Equal(resp.CodeOK, out.Code)
	s.Equal("buyer@example.com", out.Data["email"])
	s.NotContains(out.Data, "password_hash")
}

func (s *RouterSuite) TestLoginFailureIsGeneric() {
	s.signup("buyer@example.com", domain.RoleBuyer)
	wrong := s.call(s.api, http.MethodPost, "/api/v1/auth/login", "", `{"email":"buyer@example.com","password":"nope123"}`)
	unknown := s.call(s.api, http.MethodPost, "/api/v1/auth/login", "", `{"email":"ghost@example.com","password":"nope123"}`)
	s.Equal(resp.CodeUnauthorized, wrong.Code)
	s.Equal(wrong.Msg, unknown.Msg)
}

func (s *RouterSuite) TestRegisterCannotChooseAdmin() {
	out := s.call(s.api, http.MethodPost, "/api/v1/auth/register", "", `{"email":"x@example.com","password":"secret1","role":"admin"}`)
	s.Equal(resp.CodeBadRequest, out.Code)
	s.Equal("role", out.Data["field"])
}

func (s *RouterSuite) TestAdminConsole() {
	s.signup("seller@example.com", domain.RoleSeller)
	s.signup("admin@example.com", domain.RoleAdmin)

	out := s.call(s.admin, http.MethodPost, "/admin/v1/auth/login", "", `{"email":"seller@example.com","password":"secret1"}`)
	s.Equal(resp.CodeForbidden, out.Code)

	out = s.call(s.admin, http.MethodPost, "/admin/v1/auth/login", "", `{"email":"admin@example.com","password":"secret1"}`)
	s.Require().Equal(resp.CodeOK, out.Code)
	token := out.Data["token"].(string)

	out = s.call(s.admin, http.MethodGet, "/admin/v1/stats", token, "")
	s.Equal(resp.CodeOK, out.Code)
	s.EqualValues(2, out.Data["users"])

	out = s.call(s.admin, http.MethodGet, "/admin/v1/users?role=seller", token, "")
	s.Equal(resp.CodeOK, out.Code)
	s.EqualValues(1, out.Data["total"])

	out = s.call(s.admin, http.MethodGet, "/admin/v1/products", "", "")
	s.Equal(resp.CodeUnauthorized, out.Code)
	s.Equal("/admin/login?redirect="+url.QueryEscape("/admin/v1/products"), out.Data["redirect"])

	w := s.do(s.admin, http.MethodGet, "/admin/login", "", "")
	s.NotEqual(http.StatusFound, w.Code)
}

func (s *RouterSuite) TestCartFlow() {
	seller := s.signup("seller@example.com", domain.RoleSeller)
	admin := s.signup("admin@example.com", domain.RoleAdmin)
	buyer := s.signup("buyer@example.com", domain.RoleBuyer)
	id := s.submit(seller, "Coir Mat")

	out := s.call(s.api, http.MethodPost, "/api/v1/cart/items", buyer, `{"product_id":"`+id+`"}`)
	s.Equal(resp.CodeNotFound, out.Code, "pending products cannot be added")

	out = s.call(s.api, http.MethodPost, "/api/v1/admin/products/"+id+"/approve", admin, `{"eco_rating":70}`)
	s.Require().Equal(resp.CodeOK, out.Code)

	out = s.call(s.api, http.MethodPost, "/api/v1/cart/items", buyer, `{"product_id":"`+id+`","quantity":2}`)
	s.Require().Equal(resp.CodeOK, out.Code, out.Msg)
	item := out.Data["id"].(string)

	out = s.call(s.api, http.MethodGet, "/api/v1/cart", buyer, "")
	s.Equal(resp.CodeOK, out.Code)
	s.EqualValues(2, out.Data["count"])
	s.InDelta(25.0, out.Data["subtotal"], 0.001)

	out = s.call(s.api, http.MethodPut, "/api/v1/cart/items/"+item, buyer, `{"quantity":0}`)
	s.Equal(resp.CodeOK, out.Code)
	out = s.call(s.api, http.MethodGet, "/api/v1/cart/count", buyer, "")
	s.EqualValues(0, out.Data["count"])

	out = s.call(s.api, http.MethodPost, "/api/v1/cart/items", seller, `{"product_id":"`+id+`"}`)
	s.Equal(resp.CodeForbidden, out.Code)

	out = s.call(s.api, http.MethodPost, "/api/v1/cart/items", buyer, `{}`)
	s.Equal(resp.CodeBadRequest, out.Code)
	s.Equal("product_id", out.Data["field"])
}

func (s *RouterSuite) TestCheckoutAndOrderViews() {
	seller := s.signup("seller@example.com", domain.RoleSeller)
	admin := s.signup("admin@example.com", domain.RoleAdmin)
	buyer := s.signup("buyer@example.com", domain.RoleBuyer)
	other := s.signup("other@example.com", domain.RoleBuyer)
	s.Require().Equal(resp.CodeOK, s.call(s.api, http.MethodPut, "/api/v1/me", seller, `{"full_name":"Asha"}`).Code)
	id := s.submit(seller, "Coir Mat")
	s.Require().Equal(resp.CodeOK, s.call(s.api, http.MethodPost, "/api/v1/admin/products/"+id+"/approve", admin, `{"eco_rating":70}`).Code)

	out := s.call(s.api, http.MethodGet, "/api/v1/products/"+id, "", "")
	s.Equal("Asha", out.Data["seller_name"])
	s.NotContains(out.Data, "seller")

	out = s.call(s.api, http.MethodPost, "/api/v1/cart/items", buyer, `{"product_id":"`+id+`","quantity":3}`)
	s.Require().Equal(resp.CodeOK, out.Code, out.Msg)

	out = s.call(s.api, http.MethodPost, "/api/v1/orders", seller, `{"shipping_address":"x"}`)
	s.Equal(resp.CodeForbidden, out.Code)

	out = s.call(s.api, http.MethodPost, "/api/v1/orders", buyer, `{"shipping_address":"12 Lake Rd"}`)
	s.Require().Equal(resp.CodeOK, out.Code, out.Msg)
	orderID := out.Data["id"].(string)
	s.InDelta(37.5, out.Data["total_amount"], 0.001)
	s.Equal("pending", out.Data["status"])

	out = s.call(s.api, http.MethodGet, "/api/v1/cart/count", buyer, "")
	s.EqualValues(0, out.Data["count"])
	out = s.call(s.api, http.MethodPost, "/api/v1/orders", buyer, `{"shipping_address":"12 Lake Rd"}`)
	s.Equal(resp.CodeBadRequest, out.Code)
	s.Equal("cart", out.Data["field"])

	out = s.call(s.api, http.MethodGet, "/api/v1/orders/"+orderID, buyer, "")
	s.Equal(resp.CodeOK, out.Code)
	out = s.call(s.api, http.MethodGet, "/api/v1/orders/"+orderID, other, "")
	s.Equal(resp.CodeNotFound, out.Code)
	out = s.call(s.api, http.MethodGet, "/api/v1/orders", buyer, "")
	s.EqualValues(1, out.Data["total"])
	out = s.call(s.api, http.MethodGet, "/api/v1/seller/orders", seller, "")
	s.EqualValues(1, out.Data["total"])

	out = s.call(s.api, http.MethodPut, "/api/v1/admin/orders/"+orderID+"/status", buyer, `{"status":"shipped"}`)
	s.Equal(resp.CodeForbidden, out.Code)
	out = s.call(s.api, http.MethodPut, "/api/v1/admin/orders/"+orderID+"/status", admin, `{"status":"shipped"}`)
	s.Require().Equal(resp.CodeOK, out.Code, out.Msg)
	s.Equal("shipped", out.Data["status"])
	out = s.call(s.admin, http.MethodPut, "/admin/v1/orders/"+orderID+"/status", admin, `{"status":"delivered"}`)
	s.Require().Equal(resp.CodeOK, out.Code, out.Msg)
	out = s.call(s.admin, http.MethodGet, "/admin/v1/orders?status=delivered", admin, "")
	s.EqualValues(1, out.Data["total"])
	out = s.call(s.admin, http.MethodPut, "/admin/v1/orders/"+orderID+"/status", admin, `{"status":"lost"}`)
	s.Equal(resp.CodeBadRequest, out.Code)
}

func (s *RouterSuite) TestUpstreamFailureIsGeneric() {
	seller := s.signup("seller@example.com", domain.RoleSeller)
	s.store.Fail = context.DeadlineExceeded

	out := s.call(s.api, http.MethodGet, "/api/v1/products", "", "")
	s.Equal(resp.CodeUnavailable, out.Code)
	s.Equal("service unavailable, please try again", out.Msg)

	// 身份解析失败一律按未登录处理
	out = s.call(s.api, http.MethodGet, "/api/v1/seller/products", seller, "")
	s.Equal(resp.CodeUnauthorized, out.Code)
}

func (s *RouterSuite) TestHealthAndUnknownAPI() {
	out := s.call(s.api, http.MethodGet, "/health", "", "")
	s.Equal(resp.CodeOK, out.Code)

	out = s.call(s.api, http.MethodGet, "/api/v1/nope", "", "")
	s.Equal(resp.CodeNotFound, out.Code)
}

func TestRegistryPriority(t *testing.T) {
	var order []string
	var reg Registry
	reg.Register(mountFunc{"late", 100, &order}, mountFunc{"early", 1, &order}, struct{}{})
	r := gin.New()
	reg.MountAPI(r.Group("/api"))
	require.Equal(t, []string{"early", "late"}, order)
}

type mountFunc struct {
	name string
	prio int
	seen *[]string
}

func (m mountFunc) MountAPI(*gin.RouterGroup) { *m.seen = append(*m.seen, m.name) }
func (m mountFunc) Priority() int             { return m.prio }
