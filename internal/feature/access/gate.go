// Package access 路由级授权判定。
//
// Decide 是 (路径, 会话) 的纯函数：不读写任何状态，不做日志。
// 拒绝一律表现为重定向，受限区域对无权调用方不可见。
package access

import (
	"net/url"
	"path"
	"strings"

	"eco-haat/internal/domain"
)

type Class int

const (
	Public Class = iota
	Authenticated
	SellerOrAdmin
	AdminOnly
)

func (c Class) String() string {
	switch c {
	case Authenticated:
		return "authenticated"
	case SellerOrAdmin:
		return "seller_or_admin"
	case AdminOnly:
		return "admin_only"
	}
	return "public"
}

// Permits 会话是否满足该路由类别
func (c Class) Permits(s *domain.Session) bool {
	switch c {
	case Public:
		return true
	case Authenticated:
		return s.Authenticated()
	case SellerOrAdmin:
		return s.Authenticated() && s.Role.CanSell()
	case AdminOnly:
		return s.Authenticated() && s.Role.IsAdmin()
	}
	return false
}

type Rule struct {
	Prefix string
	Class  Class
}

type Policy struct {
	Rules       []Rule
	LoginPath   string // 未登录时的去向，附带 ?redirect=
	LandingPath string // 角色不足时的中性落地页
}

type Decision struct {
	Allow bool
	// RedirectTo 拒绝时的目标地址
	RedirectTo string
	// NeedLogin 为 true 表示因未登录被拒（而非角色不足）
	NeedLogin bool
	Class     Class
}

// Classify 最长前缀匹配；未命中即 Public。前缀按原样比较（/admin 同样覆盖 /administrator）
func (p Policy) Classify(rawPath string) Class {
	clean := cleanPath(rawPath)
	best, bestLen := Public, -1
	for _, r := range p.Rules {
		if strings.HasPrefix(clean, r.Prefix) && len(r.Prefix) > bestLen {
			best, bestLen = r.Class, len(r.Prefix)
		}
	}
	return best
}

func (p Policy) Decide(rawPath string, s *domain.Session) Decision {
	class := p.Classify(rawPath)
	if class.Permits(s) {
		return Decision{Allow: true, Class: class}
	}
	if !s.Authenticated() {
		return Decision{RedirectTo: p.loginURL(cleanPath(rawPath)), NeedLogin: true, Class: class}
	}
	return Decision{RedirectTo: p.landing(), Class: class}
}

func (p Policy) loginURL(from string) string {
	login := p.LoginPath
	if login == "" {
		login = "/login"
	}
	return login + "?redirect=" + url.QueryEscape(from)
}

func (p Policy) landing() string {
	if p.LandingPath == "" {
		return "/"
	}
	return p.LandingPath
}

func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	c := path.Clean(p)
	// path.Clean 会去掉末尾斜杠，这里不影响前缀匹配
	return c
}

// StorefrontPolicy 用户端（页面 + /api/v1）默认路由表
func StorefrontPolicy(loginPath, landingPath string) Policy {
	return Policy{
		LoginPath:   loginPath,
		LandingPath: landingPath,
		Rules: []Rule{
			{Prefix: "/admin", Class: AdminOnly},
			{Prefix: "/seller", Class: SellerOrAdmin},
			{Prefix: "/cart", Class: Authenticated},
			{Prefix: "/checkout", Class: Authenticated},
			{Prefix: "/orders", Class: Authenticated},

			{Prefix: "/api/v1/admin", Class: AdminOnly},
			{Prefix: "/api/v1/seller", Class: SellerOrAdmin},
			{Prefix: "/api/v1/cart", Class: Authenticated},
			{Prefix: "/api/v1/orders", Class: Authenticated},
			{Prefix: "/api/v1/me", Class: Authenticated},
			{Prefix: "/api/v1/auth/logout", Class: Authenticated},
		},
	}
}

// AdminConsolePolicy 管理端：除登录相关外全部要求 admin
func AdminConsolePolicy(loginPath, landingPath string) Policy {
	return Policy{
		LoginPath:   loginPath,
		LandingPath: landingPath,
		Rules: []Rule{
			{Prefix: "/admin", Class: AdminOnly},
			{Prefix: "/admin/v1/auth/", Class: Public},
			{Prefix: "/admin/login", Class: Public},
		},
	}
}
