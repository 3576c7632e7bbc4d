package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"eco-haat/internal/feature/access"
	resp "eco-haat/internal/transport/http/response"
)

// APIPrefixes JSON 接口前缀；其余路径视为页面
var APIPrefixes = []string{"/api/", "/admin/v1/"}

func isAPI(path string) bool {
	for _, p := range APIPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Gate 在任何 handler 之前执行路由授权。
// 页面返回 302；接口返回 401/403 信封，data.redirect 给出跳转地址，不透露资源本身。
func Gate(p access.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		d := p.Decide(path, SessionFrom(c))
		if d.Allow {
			c.Next()
			return
		}
		reason := "role"
		if d.NeedLogin {
			reason = "login"
		}
		gateDenied.WithLabelValues(d.Class.String(), reason).Inc()
		if !isAPI(path) {
			c.Redirect(http.StatusFound, d.RedirectTo)
			c.Abort()
			return
		}
		code, msg := resp.CodeForbidden, "forbidden"
		if d.NeedLogin {
			code, msg = resp.CodeUnauthorized, "login required"
		}
		c.AbortWithStatusJSON(http.StatusOK, resp.ErrorWith(code, msg, gin.H{"redirect": d.RedirectTo}))
	}
}
