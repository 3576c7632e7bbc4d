package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"eco-haat/internal/domain"
)

const (
	KeySession = "session"
	KeyUserID  = "userId"
	KeyRole    = "role"
)

// SessionResolver 由 auth.SessionResolver 实现
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*domain.Session, error)
}

// Session 从 cookie 或 Authorization: Bearer 解析身份。
// 从不拒绝请求；解析失败即视为未登录，由 Gate 决定去向。
func Session(r SessionResolver, cookieName string, l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := bearer(c.GetHeader("Authorization"))
		if tok == "" && cookieName != "" {
			tok, _ = c.Cookie(cookieName)
		}
		if tok != "" {
			s, err := r.Resolve(c.Request.Context(), tok)
			switch {
			case err == nil:
				c.Set(KeySession, s)
				c.Set(KeyUserID, s.UserID)
				c.Set(KeyRole, string(s.Role))
			case errors.Is(err, domain.ErrUpstream):
				l.Warn("session resolve failed", zap.Error(err), zap.String("rid", c.GetString(KeyRequestID)))
			}
		}
		c.Next()
	}
}

func bearer(h string) string {
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// SessionFrom 未登录时返回 nil
func SessionFrom(c *gin.Context) *domain.Session {
	if v, ok := c.Get(KeySession); ok {
		if s, ok := v.(*domain.Session); ok {
			return s
		}
	}
	return nil
}
