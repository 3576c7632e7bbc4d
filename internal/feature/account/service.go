// Package account 注册、登录与资料维护。角色只在注册时选择 buyer/seller，
// admin 只能通过运维命令授予。
package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"eco-haat/internal/core/auth"
	"eco-haat/internal/domain"
	"eco-haat/internal/feature/input"
	"eco-haat/pkg/utils"
)

type Service struct {
	users domain.UserRepository
	jwt   *auth.JWTer
	log   *zap.Logger
	newID func() string
}

func NewService(users domain.UserRepository, jwt *auth.JWTer, l *zap.Logger) *Service {
	if l == nil {
		l = zap.NewNop()
	}
	return &Service{users: users, jwt: jwt, log: l, newID: utils.NewID}
}

type RegisterInput struct {
	Email    string `json:"email"     validate:"required,email,max=191"`
	Password string `json:"password"  validate:"required,min=6,max=72"`
	FullName string `json:"full_name" validate:"max=128"`
	Role     string `json:"role"      validate:"omitempty,oneof=buyer seller"`
}

type Credentials struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ProfileInput struct {
	FullName *string `json:"full_name" validate:"omitempty,max=128"`
	Phone    *string `json:"phone"     validate:"omitempty,max=32"`
	Address  *string `json:"address"   validate:"omitempty,max=512"`
}

type LoginResult struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Profile   *domain.Profile `json:"profile"`
}

func normEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Register 缺省角色为 buyer
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.Profile, error) {
	in.Email = normEmail(in.Email)
	in.FullName = input.Text(in.FullName)
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	if err := input.Struct(in); err != nil {
		return nil, err
	}
	role := domain.RoleBuyer
	if in.Role != "" {
		role = domain.Role(in.Role)
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	name := in.FullName
	if name == "" {
		name = in.Email[:strings.IndexByte(in.Email, '@')]
	}
	p := &domain.Profile{
		ID:           s.newID(),
		Email:        in.Email,
		FullName:     name,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, p); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, domain.Invalid("email", "already registered")
		}
		return nil, err
	}
	s.log.Info("account registered", zap.String("user_id", p.ID), zap.String("role", string(p.Role)))
	return p, nil
}

// Login 邮箱不存在与密码错误返回同一个错误
func (s *Service) Login(ctx context.Context, in Credentials) (*LoginResult, error) {
	in.Email = normEmail(in.Email)
	if err := input.Struct(in); err != nil {
		return nil, err
	}
	p, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}
	if !utils.CheckPassword(in.Password, p.PasswordHash) {
		return nil, domain.ErrUnauthenticated
	}
	tok, err := s.jwt.Issue(p.ID, p.Email, string(p.Role))
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: tok, ExpiresAt: time.Now().Add(s.jwt.TTL), Profile: p}, nil
}

func (s *Service) Me(ctx context.Context, actor *domain.Session) (*domain.Profile, error) {
	if !actor.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	return s.users.FindByID(ctx, actor.UserID)
}

func (s *Service) UpdateProfile(ctx context.Context, actor *domain.Session, in ProfileInput) (*domain.Profile, error) {
	if !actor.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	clean := func(p *string) *string {
		if p == nil {
			return nil
		}
		v := input.Text(*p)
		return &v
	}
	in = ProfileInput{FullName: clean(in.FullName), Phone: clean(in.Phone), Address: clean(in.Address)}
	if err := input.Struct(in); err != nil {
		return nil, err
	}
	if in.FullName != nil && *in.FullName == "" {
		return nil, domain.Invalid("full_name", "is required")
	}
	patch := domain.ProfilePatch{FullName: in.FullName, Phone: in.Phone, Address: in.Address}
	if err := s.users.Update(ctx, actor.UserID, patch); err != nil {
		return nil, err
	}
	return s.users.FindByID(ctx, actor.UserID)
}

type UserPage struct {
	Items []domain.Profile `json:"items"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Size  int              `json:"size"`
}

// ListUsers admin 查看用户，可按角色、邮箱/姓名过滤
func (s *Service) ListUsers(ctx context.Context, actor *domain.Session, role, search string, page, size int) (UserPage, error) {
	if !actor.Is(domain.RoleAdmin) {
		return UserPage{}, domain.ErrPermission
	}
	q := domain.UserQuery{Search: strings.TrimSpace(search)}
	if role = strings.TrimSpace(role); role != "" {
		r, ok := domain.ParseRole(role)
		if !ok {
			return UserPage{}, domain.Invalid("role", "unknown role")
		}
		q.Role = r
	}
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	q.Offset, q.Limit = (page-1)*size, size
	items, total, err := s.users.List(ctx, q)
	if err != nil {
		return UserPage{}, err
	}
	if items == nil {
		items = []domain.Profile{}
	}
	return UserPage{Items: items, Total: total, Page: page, Size: size}, nil
}

// GrantRole 运维入口（cmd/admin -grant-admin），不经过 HTTP
func (s *Service) GrantRole(ctx context.Context, email string, role domain.Role) (*domain.Profile, error) {
	if !role.Valid() {
		return nil, domain.Invalid("role", "unknown role")
	}
	p, err := s.users.FindByEmail(ctx, normEmail(email))
	if err != nil {
		return nil, err
	}
	if p.Role == role {
		return p, nil
	}
	if err := s.users.SetRole(ctx, p.ID, role); err != nil {
		return nil, err
	}
	s.log.Warn("role granted",
		zap.String("user_id", p.ID),
		zap.String("from", string(p.Role)),
		zap.String("to", string(role)),
	)
	p.Role = role
	return p, nil
}
