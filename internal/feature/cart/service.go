// Package cart 买家购物车。只有 buyer 可以操作；只能加入已审核且有库存的商品。
package cart

import (
	"context"
	"errors"

	"eco-haat/internal/domain"
	"eco-haat/pkg/utils"
)

type Service struct {
	items    domain.CartRepository
	products domain.ProductRepository
	newID    func() string
}

func NewService(items domain.CartRepository, products domain.ProductRepository) *Service {
	return &Service{items: items, products: products, newID: utils.NewID}
}

type AddInput struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity"`
}

type Summary struct {
	Items    []domain.CartItem `json:"items"`
	Count    int               `json:"count"`
	Subtotal float64           `json:"subtotal"`
}

func buyerOnly(actor *domain.Session) error {
	if !actor.Is(domain.RoleBuyer) {
		return domain.ErrPermission
	}
	return nil
}

// Add 已在购物车中则累加数量，总量不超过库存
func (s *Service) Add(ctx context.Context, actor *domain.Session, in AddInput) (*domain.CartItem, error) {
	if err := buyerOnly(actor); err != nil {
		return nil, err
	}
	if in.Quantity <= 0 {
		in.Quantity = 1
	}
	p, err := s.products.FindByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if p.Status != domain.StatusApproved {
		return nil, domain.ErrNotFound
	}
	existing, err := s.items.FindByBuyerProduct(ctx, actor.UserID, p.ID)
	switch {
	case err == nil:
		qty := existing.Quantity + in.Quantity
		if qty > p.StockQuantity {
			return nil, domain.Invalid("quantity", "exceeds available stock")
		}
		if err := s.items.SetQuantity(ctx, existing.ID, qty); err != nil {
			return nil, err
		}
		existing.Quantity = qty
		return existing, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}
	if p.StockQuantity <= 0 {
		return nil, domain.Invalid("product_id", "out of stock")
	}
	if in.Quantity > p.StockQuantity {
		return nil, domain.Invalid("quantity", "exceeds available stock")
	}
	it := &domain.CartItem{ID: s.newID(), BuyerID: actor.UserID, ProductID: p.ID, Quantity: in.Quantity}
	if err := s.items.Create(ctx, it); err != nil {
		return nil, err
	}
	it.Product = p
	return it, nil
}

func (s *Service) owned(ctx context.Context, actor *domain.Session, id string) (*domain.CartItem, error) {
	it, err := s.items.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if it.BuyerID != actor.UserID {
		return nil, domain.ErrNotFound
	}
	return it, nil
}

// UpdateQuantity 数量 < 1 时删除该行
func (s *Service) UpdateQuantity(ctx context.Context, actor *domain.Session, id string, qty int) error {
	if err := buyerOnly(actor); err != nil {
		return err
	}
	it, err := s.owned(ctx, actor, id)
	if err != nil {
		return err
	}
	if qty < 1 {
		return s.items.Delete(ctx, it.ID)
	}
	if it.Product != nil && qty > it.Product.StockQuantity {
		return domain.Invalid("quantity", "exceeds available stock")
	}
	return s.items.SetQuantity(ctx, it.ID, qty)
}

func (s *Service) Remove(ctx context.Context, actor *domain.Session, id string) error {
	if err := buyerOnly(actor); err != nil {
		return err
	}
	it, err := s.owned(ctx, actor, id)
	if err != nil {
		return err
	}
	return s.items.Delete(ctx, it.ID)
}

func (s *Service) Clear(ctx context.Context, actor *domain.Session) error {
	if err := buyerOnly(actor); err != nil {
		return err
	}
	return s.items.DeleteByBuyer(ctx, actor.UserID)
}

// List 购物车行只能指向 approved 商品：加入时校验 approved，approved 是终态，
// 删除商品时同一事务清理购物车行。库存可能在加入后被其他订单扣减，由下单时再校验
func (s *Service) List(ctx context.Context, actor *domain.Session) (Summary, error) {
	if err := buyerOnly(actor); err != nil {
		return Summary{}, err
	}
	items, err := s.items.ListByBuyer(ctx, actor.UserID)
	if err != nil {
		return Summary{}, err
	}
	out := Summary{Items: items}
	if out.Items == nil {
		out.Items = []domain.CartItem{}
	}
	for _, it := range items {
		out.Count += it.Quantity
		if it.Product != nil {
			out.Subtotal += it.Product.Price * float64(it.Quantity)
		}
	}
	return out, nil
}

func (s *Service) Count(ctx context.Context, actor *domain.Session) (int, error) {
	sum, err := s.List(ctx, actor)
	if err != nil {
		return 0, err
	}
	return sum.Count, nil
}
