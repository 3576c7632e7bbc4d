package router

import (
	"context"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"eco-haat/internal/core/cache"
	"eco-haat/internal/core/config"
	"eco-haat/internal/core/server"
	"eco-haat/internal/feature/access"
	"eco-haat/internal/feature/account"
	"eco-haat/internal/feature/cart"
	"eco-haat/internal/feature/catalog"
	"eco-haat/internal/feature/dashboard"
	"eco-haat/internal/feature/order"
	"eco-haat/internal/feature/product"
	mdw "eco-haat/internal/transport/http/middleware"
	resp "eco-haat/internal/transport/http/response"
)

// Deps 两个引擎共用的依赖
type Deps struct {
	Log      *zap.Logger
	DB       *gorm.DB     // 为 nil 时不挂通用 CRUD（测试用内存仓储）
	Cache    *cache.Cache // 可为 nil
	Sessions mdw.SessionResolver

	Accounts *account.Service
	Products *product.Service
	Catalog  *catalog.Service
	Cart     *cart.Service
	Orders   *order.Service
	Stats    *dashboard.Service

	Mode   string
	Web    config.Web
	Limits config.Limits
}

func (d *Deps) logger() *zap.Logger {
	if d.Log == nil {
		return zap.NewNop()
	}
	return d.Log
}

// newEngine 公共中间件链：RequestID -> 恢复 -> 限流/并发/包体/超时 -> 指标 -> 访问日志 -> 会话 -> Gate
func newEngine(d *Deps, name string, policy access.Policy) *gin.Engine {
	l := d.logger()
	lim := d.Limits
	r := server.NewRouter(server.Options{Mode: d.Mode, CORSOrigins: d.Web.CORSOrigins})
	r.Use(
		mdw.RequestID(),
		mdw.Recovery(l),
		mdw.RateLimit(rate.Limit(lim.RPS), lim.Burst),
		mdw.ConcurrencyLimit(lim.MaxInFlight),
		mdw.MaxBodyBytes(lim.MaxBodyMB<<20),
		mdw.Timeout(time.Duration(lim.RequestTimeoutSec)*time.Second),
		mdw.Metrics(name),
		mdw.AccessLog(l),
		mdw.Session(d.Sessions, d.Web.CookieName, l),
		mdw.Gate(policy),
	)

	r.GET("/health", health(d))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.NoRoute(noRoute(d.Web.StaticDir))
	return r
}

func health(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if d.DB != nil {
			sqlDB, err := d.DB.DB()
			if err == nil {
				err = sqlDB.PingContext(ctx)
			}
			if err != nil {
				d.logger().Warn("health: database", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, resp.Error(resp.CodeUnavailable, "database unavailable"))
				return
			}
		}
		// 缓存只是加速层，不可用时仍视为健康
		cacheOK := d.Cache.Ping(ctx) == nil
		c.JSON(http.StatusOK, resp.OK(gin.H{"ok": 1, "cache": cacheOK}))
	}
}

// noRoute 接口路径返回 404 信封；页面路径交给静态目录（SPA 回退到 index.html）
func noRoute(staticDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := c.Request.URL.Path
		if staticDir == "" || strings.HasPrefix(p, "/api/") || strings.HasPrefix(p, "/admin/v1/") {
			c.JSON(http.StatusOK, resp.Error(resp.CodeNotFound, "not found"))
			return
		}
		file := filepath.Join(staticDir, filepath.FromSlash(path.Clean("/"+p)))
		if st, err := os.Stat(file); err == nil && !st.IsDir() {
			c.File(file)
			return
		}
		c.File(filepath.Join(staticDir, "index.html"))
	}
}

// 会话 cookie：HttpOnly，SameSite=Lax
func setSessionCookie(c *gin.Context, w config.Web, token string, ttl time.Duration) {
	if w.CookieName == "" {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(w.CookieName, token, int(ttl.Seconds()), "/", "", w.CookieSecure, true)
}

func clearSessionCookie(c *gin.Context, w config.Web) {
	if w.CookieName == "" {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(w.CookieName, "", -1, "/", "", w.CookieSecure, true)
}

// NewAPIEngine 用户端：页面 + /api/v1
func NewAPIEngine(d *Deps) *gin.Engine {
	r := newEngine(d, "api", access.StorefrontPolicy(d.Web.LoginPath, d.Web.LandingPath))
	var reg Registry
	reg.Register(modules(d)...)
	reg.MountAPI(r.Group("/api/v1"))
	return r
}

// NewAdminEngine 管理端：/admin/v1，除登录外全部要求 admin
func NewAdminEngine(d *Deps) *gin.Engine {
	r := newEngine(d, "admin", access.AdminConsolePolicy(d.Web.AdminLoginPath, d.Web.LandingPath))
	var reg Registry
	reg.Register(modules(d)...)
	reg.MountAdmin(r.Group("/admin/v1"))
	return r
}

func modules(d *Deps) []any {
	return []any{
		&authModule{d},
		&storefrontModule{d},
		&meModule{d},
		&cartModule{d},
		&sellerModule{d},
		&moderationModule{d},
		&categoryModule{d},
	}
}
