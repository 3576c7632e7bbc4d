package domain

import "strings"

// Role 身份唯一的授权依据
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

// ParseRole 不认识的值一律返回 false，调用方按最低权限处理
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

func (r Role) IsAdmin() bool { return r == RoleAdmin }

func (r Role) CanSell() bool { return r == RoleSeller || r == RoleAdmin }

// Session 单次请求解析出的调用者身份，不跨请求保存
type Session struct {
	UserID string
	Email  string
	Role   Role
}

func (s *Session) Authenticated() bool { return s != nil && s.UserID != "" }

func (s *Session) Is(r Role) bool { return s.Authenticated() && s.Role == r }
