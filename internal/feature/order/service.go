// Package order 买家下单与订单查询。状态只是一个字符串，由管理员直接改写，不做履约流转校验。
package order

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"eco-haat/internal/domain"
	"eco-haat/internal/feature/input"
	"eco-haat/pkg/utils"
)

type Service struct {
	orders domain.OrderRepository
	cart   domain.CartRepository
	log    *zap.Logger
	newID  func() string
}

func NewService(orders domain.OrderRepository, cart domain.CartRepository, l *zap.Logger) *Service {
	if l == nil {
		l = zap.NewNop()
	}
	return &Service{orders: orders, cart: cart, log: l, newID: utils.NewID}
}

type Page struct {
	Items []domain.Order `json:"items"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Size  int            `json:"size"`
}

type CheckoutInput struct {
	ShippingAddress string `json:"shipping_address" validate:"max=512"`
}

const (
	mineMaxPageSize  = 50
	minePageSize     = 10
	adminPageSize    = 20
	adminMaxPageSize = 100
)

func paging(page, size, def, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > limit {
		size = def
	}
	return page, size
}

func parseStatus(s string) (domain.OrderStatus, error) {
	st := domain.OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	if st == "" || st == "all" {
		return "", nil
	}
	if !st.Valid() {
		return "", domain.Invalid("status", "unknown status")
	}
	return st, nil
}

func (s *Service) list(ctx context.Context, q domain.OrderQuery, page, size int) (Page, error) {
	q.Offset, q.Limit = (page-1)*size, size
	items, total, err := s.orders.List(ctx, q)
	if err != nil {
		return Page{}, err
	}
	if items == nil {
		items = []domain.Order{}
	}
	return Page{Items: items, Total: total, Page: page, Size: size}, nil
}

func cents(v float64) float64 { return math.Round(v*100) / 100 }

// Checkout 把购物车整体下单：每件商品必须仍为 approved 且库存足够，
// 成交价取下单时的价格；扣库存、写订单、清购物车在仓储的同一事务里完成
func (s *Service) Checkout(ctx context.Context, actor *domain.Session, in CheckoutInput) (*domain.Order, error) {
	if !actor.Is(domain.RoleBuyer) {
		return nil, domain.ErrPermission
	}
	if err := input.Struct(in); err != nil {
		return nil, err
	}
	addr := input.Text(in.ShippingAddress)
	if addr == "" {
		return nil, domain.Invalid("shipping_address", "is required")
	}
	rows, err := s.cart.ListByBuyer(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.Invalid("cart", "cart is empty")
	}

	o := &domain.Order{ID: s.newID(), BuyerID: actor.UserID, ShippingAddress: addr, Status: domain.OrderPending}
	var total float64
	for _, it := range rows {
		p := it.Product
		if p == nil || p.Status != domain.StatusApproved {
			return nil, domain.Invalid("cart", "a product in the cart is no longer available")
		}
		if p.StockQuantity < it.Quantity {
			return nil, domain.Invalid("cart", fmt.Sprintf("insufficient stock for %q", p.Name))
		}
		total += p.Price * float64(it.Quantity)
		o.Items = append(o.Items, domain.OrderItem{
			ID:              s.newID(),
			OrderID:         o.ID,
			ProductID:       p.ID,
			Quantity:        it.Quantity,
			PriceAtPurchase: p.Price,
		})
	}
	o.TotalAmount = cents(total)

	if err := s.orders.Place(ctx, o); err != nil {
		return nil, err
	}
	s.log.Info("order placed",
		zap.String("order_id", o.ID), zap.String("buyer_id", o.BuyerID),
		zap.Int("items", len(o.Items)), zap.Float64("total", o.TotalAmount))
	return o, nil
}

// ListMine 任意已登录角色都只能看到自己作为买家的订单
func (s *Service) ListMine(ctx context.Context, actor *domain.Session, status string, page, size int) (Page, error) {
	if !actor.Authenticated() {
		return Page{}, domain.ErrUnauthenticated
	}
	st, err := parseStatus(status)
	if err != nil {
		return Page{}, err
	}
	page, size = paging(page, size, minePageSize, mineMaxPageSize)
	return s.list(ctx, domain.OrderQuery{BuyerID: actor.UserID, Status: st}, page, size)
}

// Get 买家只能看自己的订单，卖家只能看含自己商品的订单，admin 不限；
// 无权查看与不存在同样返回 ErrNotFound
func (s *Service) Get(ctx context.Context, actor *domain.Session, id string) (*domain.Order, error) {
	if !actor.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case actor.Role.IsAdmin(), o.BuyerID == actor.UserID:
		return o, nil
	case actor.Role.CanSell():
		for _, it := range o.Items {
			if it.Product != nil && it.Product.SellerID == actor.UserID {
				return o, nil
			}
		}
	}
	return nil, domain.ErrNotFound
}

// ListForSeller 含有本人商品的订单，Items 只保留本人的商品行
func (s *Service) ListForSeller(ctx context.Context, actor *domain.Session, page, size int) (Page, error) {
	if !actor.Authenticated() || !actor.Role.CanSell() {
		return Page{}, domain.ErrPermission
	}
	page, size = paging(page, size, adminPageSize, adminMaxPageSize)
	return s.list(ctx, domain.OrderQuery{SellerID: actor.UserID}, page, size)
}

func (s *Service) ListAll(ctx context.Context, actor *domain.Session, status string, page, size int) (Page, error) {
	if !actor.Is(domain.RoleAdmin) {
		return Page{}, domain.ErrPermission
	}
	st, err := parseStatus(status)
	if err != nil {
		return Page{}, err
	}
	page, size = paging(page, size, adminPageSize, adminMaxPageSize)
	return s.list(ctx, domain.OrderQuery{Status: st}, page, size)
}

// UpdateStatus admin 直接改写状态，任意合法状态之间都可以切换
func (s *Service) UpdateStatus(ctx context.Context, actor *domain.Session, id, status string) (*domain.Order, error) {
	if !actor.Is(domain.RoleAdmin) {
		return nil, domain.ErrPermission
	}
	st := domain.OrderStatus(strings.ToLower(strings.TrimSpace(status)))
	if !st.Valid() {
		return nil, domain.Invalid("status", "unknown status")
	}
	if err := s.orders.SetStatus(ctx, id, st); err != nil {
		return nil, err
	}
	s.log.Info("order status updated", zap.String("order_id", id), zap.String("status", string(st)), zap.String("by", actor.UserID))
	return s.orders.FindByID(ctx, id)
}
