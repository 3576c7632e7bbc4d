package auth

import (
	"context"
	"errors"
	"strings"

	"eco-haat/internal/domain"
)

// ProfileFinder 会话解析只需按 id 读 profile
type ProfileFinder interface {
	FindByID(ctx context.Context, id string) (*domain.Profile, error)
}

// SessionResolver token → claims → 当前 profile 角色。
// 每次请求都重新读取角色，角色变更立即生效。
type SessionResolver struct {
	JWT      *JWTer
	Profiles ProfileFinder
}

// Resolve 任何失败都返回 ErrUnauthenticated（存储错误额外包一层，便于日志区分）
func (r *SessionResolver) Resolve(ctx context.Context, token string) (*domain.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" || r == nil || r.JWT == nil || r.Profiles == nil {
		return nil, domain.ErrUnauthenticated
	}
	claims, err := r.JWT.Parse(token)
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}
	p, err := r.Profiles.FindByID(ctx, claims.UID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, errors.Join(domain.ErrUnauthenticated, err)
	}
	if !p.Role.Valid() {
		return nil, domain.ErrUnauthenticated
	}
	return &domain.Session{UserID: p.ID, Email: p.Email, Role: p.Role}, nil
}
