// Package dashboard 管理端与卖家后台的统计数字
package dashboard

import (
	"context"

	"golang.org/x/sync/errgroup"

	"eco-haat/internal/domain"
)

type Service struct {
	products domain.ProductRepository
	users    domain.UserRepository
	orders   domain.OrderRepository
}

func NewService(products domain.ProductRepository, users domain.UserRepository, orders domain.OrderRepository) *Service {
	return &Service{products: products, users: users, orders: orders}
}

type AdminStats struct {
	PendingProducts  int64 `json:"pending_products"`
	ApprovedProducts int64 `json:"approved_products"`
	TotalProducts    int64 `json:"total_products"`
	Sellers          int64 `json:"sellers"`
	Buyers           int64 `json:"buyers"`
	Users            int64 `json:"users"`
	Orders           int64 `json:"orders"`
}

type SellerStats struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
	Orders   int64 `json:"orders"`
}

func byStatus(st domain.ProductStatus) domain.ProductQuery {
	return domain.ProductQuery{Statuses: []domain.ProductStatus{st}}
}

// Admin 各计数并发查询，任一失败整体失败
func (s *Service) Admin(ctx context.Context, actor *domain.Session) (*AdminStats, error) {
	if !actor.Is(domain.RoleAdmin) {
		return nil, domain.ErrPermission
	}
	var out AdminStats
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { out.PendingProducts, err = s.products.Count(ctx, byStatus(domain.StatusPending)); return })
	g.Go(func() (err error) { out.ApprovedProducts, err = s.products.Count(ctx, byStatus(domain.StatusApproved)); return })
	g.Go(func() (err error) { out.TotalProducts, err = s.products.Count(ctx, domain.ProductQuery{}); return })
	g.Go(func() (err error) { out.Sellers, err = s.users.CountByRole(ctx, domain.RoleSeller); return })
	g.Go(func() (err error) { out.Buyers, err = s.users.CountByRole(ctx, domain.RoleBuyer); return })
	g.Go(func() (err error) { out.Users, err = s.users.CountByRole(ctx, ""); return })
	g.Go(func() (err error) { out.Orders, err = s.orders.CountAll(ctx); return })
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) Seller(ctx context.Context, actor *domain.Session) (*SellerStats, error) {
	if !actor.Authenticated() || !actor.Role.CanSell() {
		return nil, domain.ErrPermission
	}
	own := func(st domain.ProductStatus) domain.ProductQuery {
		q := domain.ProductQuery{SellerID: actor.UserID}
		if st != "" {
			q.Statuses = []domain.ProductStatus{st}
		}
		return q
	}
	var out SellerStats
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { out.Total, err = s.products.Count(ctx, own("")); return })
	g.Go(func() (err error) { out.Pending, err = s.products.Count(ctx, own(domain.StatusPending)); return })
	g.Go(func() (err error) { out.Approved, err = s.products.Count(ctx, own(domain.StatusApproved)); return })
	g.Go(func() (err error) { out.Rejected, err = s.products.Count(ctx, own(domain.StatusRejected)); return })
	g.Go(func() (err error) { out.Orders, err = s.orders.CountForSeller(ctx, actor.UserID); return })
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}
