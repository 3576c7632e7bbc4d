package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"eco-haat/internal/domain"
)

type OrderRepo struct{ db *gorm.DB }

func NewOrderRepo(db *gorm.DB) *OrderRepo { return &OrderRepo{db: db} }

func (r *OrderRepo) sellerItems(sellerID string) *gorm.DB {
	return r.db.Model(&domain.Product{}).Select("id").Where("seller_id = ?", sellerID)
}

func (r *OrderRepo) filter(ctx context.Context, q domain.OrderQuery) *gorm.DB {
	tx := r.db.WithContext(ctx).Model(&domain.Order{})
	if q.BuyerID != "" {
		tx = tx.Where("buyer_id = ?", q.BuyerID)
	}
	if q.SellerID != "" {
		tx = tx.Where("id IN (?)", r.db.Model(&domain.OrderItem{}).
			Select("order_id").Where("product_id IN (?)", r.sellerItems(q.SellerID)))
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	return tx
}

func (r *OrderRepo) List(ctx context.Context, q domain.OrderQuery) ([]domain.Order, int64, error) {
	var total int64
	if err := r.filter(ctx, q).Count(&total).Error; err != nil {
		return nil, 0, wrap("count orders", err)
	}
	tx := r.filter(ctx, q).Order("created_at DESC")
	if q.SellerID != "" {
		own := r.sellerItems(q.SellerID)
		tx = tx.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Where("product_id IN (?)", own) }).
			Preload("Items.Product")
	} else {
		tx = tx.Preload("Items")
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit).Offset(q.Offset)
	}
	var out []domain.Order
	if err := tx.Find(&out).Error; err != nil {
		return nil, 0, wrap("list orders", err)
	}
	return out, total, nil
}

func (r *OrderRepo) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var o domain.Order
	err := r.db.WithContext(ctx).Preload("Items").Preload("Items.Product").First(&o, "id = ?", id).Error
	if err != nil {
		return nil, wrap("find order", err)
	}
	return &o, nil
}

var errStockChanged = errors.New("product unavailable or stock changed")

func (r *OrderRepo) Place(ctx context.Context, o *domain.Order) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		for _, it := range o.Items {
			res := tx.Model(&domain.Product{}).
				Where("id = ? AND status = ? AND stock_quantity >= ?", it.ProductID, domain.StatusApproved, it.Quantity).
				Updates(map[string]any{
					"stock_quantity": gorm.Expr("stock_quantity - ?", it.Quantity),
					"updated_at":     now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errStockChanged
			}
		}
		if err := tx.Create(o).Error; err != nil {
			return err
		}
		return tx.Where("buyer_id = ?", o.BuyerID).Delete(&domain.CartItem{}).Error
	})
	if errors.Is(err, errStockChanged) {
		return domain.ErrInvalidState
	}
	return wrap("place order", err)
}

func (r *OrderRepo) SetStatus(ctx context.Context, id string, s domain.OrderStatus) error {
	res := r.db.WithContext(ctx).Model(&domain.Order{}).Where("id = ?", id).
		Updates(map[string]any{"status": s, "updated_at": time.Now()})
	if res.Error != nil {
		return wrap("update order status", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *OrderRepo) CountAll(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&domain.Order{}).Count(&n).Error; err != nil {
		return 0, wrap("count orders", err)
	}
	return n, nil
}

// CountForSeller 含有该卖家商品的订单数
func (r *OrderRepo) CountForSeller(ctx context.Context, sellerID string) (int64, error) {
	var n int64
	if err := r.filter(ctx, domain.OrderQuery{SellerID: sellerID}).Count(&n).Error; err != nil {
		return 0, wrap("count seller orders", err)
	}
	return n, nil
}
