package repo

import (
	"context"

	"gorm.io/gorm"

	"eco-haat/internal/domain"
)

type CategoryRepo struct{ db *gorm.DB }

func NewCategoryRepo(db *gorm.DB) *CategoryRepo { return &CategoryRepo{db: db} }

func (r *CategoryRepo) List(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&out).Error; err != nil {
		return nil, wrap("list categories", err)
	}
	return out, nil
}

func (r *CategoryRepo) Exists(ctx context.Context, id string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&domain.Category{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, wrap("find category", err)
	}
	return n > 0, nil
}

type CartRepo struct{ db *gorm.DB }

func NewCartRepo(db *gorm.DB) *CartRepo { return &CartRepo{db: db} }

func (r *CartRepo) ListByBuyer(ctx context.Context, buyerID string) ([]domain.CartItem, error) {
	var out []domain.CartItem
	err := r.db.WithContext(ctx).Preload("Product").
		Where("buyer_id = ?", buyerID).Order("created_at ASC").Find(&out).Error
	if err != nil {
		return nil, wrap("list cart", err)
	}
	return out, nil
}

func (r *CartRepo) FindByID(ctx context.Context, id string) (*domain.CartItem, error) {
	var it domain.CartItem
	if err := r.db.WithContext(ctx).Preload("Product").First(&it, "id = ?", id).Error; err != nil {
		return nil, wrap("find cart item", err)
	}
	return &it, nil
}

func (r *CartRepo) FindByBuyerProduct(ctx context.Context, buyerID, productID string) (*domain.CartItem, error) {
	var it domain.CartItem
	err := r.db.WithContext(ctx).
		First(&it, "buyer_id = ? AND product_id = ?", buyerID, productID).Error
	if err != nil {
		return nil, wrap("find cart item", err)
	}
	return &it, nil
}

func (r *CartRepo) Create(ctx context.Context, it *domain.CartItem) error {
	return wrap("add cart item", r.db.WithContext(ctx).Omit("Product").Create(it).Error)
}

func (r *CartRepo) SetQuantity(ctx context.Context, id string, qty int) error {
	res := r.db.WithContext(ctx).Model(&domain.CartItem{}).Where("id = ?", id).Update("quantity", qty)
	if res.Error != nil {
		return wrap("update cart item", res.Error)
	}
	return nil
}

func (r *CartRepo) Delete(ctx context.Context, id string) error {
	return wrap("delete cart item", r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.CartItem{}).Error)
}

func (r *CartRepo) DeleteByBuyer(ctx context.Context, buyerID string) error {
	return wrap("clear cart", r.db.WithContext(ctx).Where("buyer_id = ?", buyerID).Delete(&domain.CartItem{}).Error)
}

var (
	_ domain.UserRepository     = (*UserRepo)(nil)
	_ domain.ProductRepository  = (*ProductRepo)(nil)
	_ domain.CategoryRepository = (*CategoryRepo)(nil)
	_ domain.CartRepository     = (*CartRepo)(nil)
	_ domain.OrderRepository    = (*OrderRepo)(nil)
)
