package repo

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"eco-haat/internal/domain"
)

type ProductRepo struct{ db *gorm.DB }

func NewProductRepo(db *gorm.DB) *ProductRepo { return &ProductRepo{db: db} }

func (r *ProductRepo) Create(ctx context.Context, p *domain.Product) error {
	return wrap("create product", r.db.WithContext(ctx).Create(p).Error)
}

// withNames 只取名字列，不把整行 profile 带出仓储
func withNames(tx *gorm.DB) *gorm.DB {
	return tx.
		Preload("Seller", func(db *gorm.DB) *gorm.DB { return db.Select("id", "full_name") }).
		Preload("Category", func(db *gorm.DB) *gorm.DB { return db.Select("id", "name") })
}

func (r *ProductRepo) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	if err := withNames(r.db.WithContext(ctx)).First(&p, "id = ?", id).Error; err != nil {
		return nil, wrap("find product", err)
	}
	p.FlattenNames()
	return &p, nil
}

func (r *ProductRepo) filter(ctx context.Context, q domain.ProductQuery) *gorm.DB {
	tx := r.db.WithContext(ctx).Model(&domain.Product{})
	if len(q.Statuses) > 0 {
		tx = tx.Where("status IN ?", q.Statuses)
	}
	if q.SellerID != "" {
		tx = tx.Where("seller_id = ?", q.SellerID)
	}
	if q.CategoryID != "" {
		tx = tx.Where("category_id = ?", q.CategoryID)
	}
	if q.Material != "" {
		tx = tx.Where("LOWER(material) LIKE ?", contains(q.Material))
	}
	if q.Search != "" {
		like := contains(q.Search)
		// 括号由 gorm 自动加上，OR 不会越过前面的 status 条件
		tx = tx.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if q.MinEcoRating != nil {
		tx = tx.Where("eco_rating >= ?", *q.MinEcoRating)
	}
	return tx
}

func orderBy(s domain.BuyerSort) string {
	switch s {
	case domain.SortPriceLow:
		return "price ASC, created_at DESC"
	case domain.SortPriceHigh:
		return "price DESC, created_at DESC"
	case domain.SortEcoRating:
		return "eco_rating DESC, created_at DESC"
	}
	return "created_at DESC"
}

func (r *ProductRepo) List(ctx context.Context, q domain.ProductQuery) ([]domain.Product, int64, error) {
	var total int64
	if err := r.filter(ctx, q).Count(&total).Error; err != nil {
		return nil, 0, wrap("count products", err)
	}
	tx := r.filter(ctx, q).Order(orderBy(q.Sort))
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit).Offset(q.Offset)
	}
	var out []domain.Product
	if err := withNames(tx).Find(&out).Error; err != nil {
		return nil, 0, wrap("list products", err)
	}
	for i := range out {
		out[i].FlattenNames()
	}
	return out, total, nil
}

func (r *ProductRepo) Count(ctx context.Context, q domain.ProductQuery) (int64, error) {
	var n int64
	if err := r.filter(ctx, q).Count(&n).Error; err != nil {
		return 0, wrap("count products", err)
	}
	return n, nil
}

// conditional 仅在 where 命中时写入；updated_at 一并更新，保证 MySQL 的 RowsAffected 反映命中
func (r *ProductRepo) conditional(ctx context.Context, op string, cols map[string]any, where string, args ...any) (bool, error) {
	cols["updated_at"] = time.Now()
	res := r.db.WithContext(ctx).Model(&domain.Product{}).Where(where, args...).Updates(cols)
	if res.Error != nil {
		return false, wrap(op, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *ProductRepo) UpdateFields(ctx context.Context, id, sellerID string, when domain.ProductStatus, f domain.ProductFields) (bool, error) {
	return r.conditional(ctx, "update product", map[string]any{
		"name":           f.Name,
		"description":    f.Description,
		"price":          f.Price,
		"material":       f.Material,
		"category_id":    f.CategoryID,
		"images":         datatypes.JSONSlice[string](f.Images),
		"stock_quantity": f.StockQuantity,
	}, "id = ? AND seller_id = ? AND status = ?", id, sellerID, when)
}

func (r *ProductRepo) Transition(ctx context.Context, id string, from domain.ProductStatus, m domain.Moderation) (bool, error) {
	return r.conditional(ctx, "moderate product", map[string]any{
		"status":           m.Status,
		"eco_rating":       m.EcoRating,
		"rejection_reason": m.RejectionReason,
	}, "id = ? AND status = ?", id, from)
}

func (r *ProductRepo) SetEcoRating(ctx context.Context, id string, when domain.ProductStatus, rating int) (bool, error) {
	return r.conditional(ctx, "rate product", map[string]any{
		"eco_rating": rating,
	}, "id = ? AND status = ?", id, when)
}

// Delete 同一事务内清理指向该商品的购物车行
func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&domain.CartItem{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&domain.Product{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return wrap("delete product", err)
}
