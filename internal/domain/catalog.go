package domain

import (
	"context"
	"time"
)

type Category struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:128;not null" json:"name" binding:"required,max=128"`
	Description string    `gorm:"size:512" json:"description"`
	Icon        string    `gorm:"size:64" json:"icon"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Category) TableName() string { return "categories" }

type CategoryRepository interface {
	List(ctx context.Context) ([]Category, error)
	Exists(ctx context.Context, id string) (bool, error)
}

type CartItem struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	BuyerID   string    `gorm:"size:36;not null;uniqueIndex:uk_cart_buyer_product" json:"buyer_id"`
	ProductID string    `gorm:"size:36;not null;uniqueIndex:uk_cart_buyer_product;index" json:"product_id"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	Product   *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CartItem) TableName() string { return "cart_items" }

type CartRepository interface {
	ListByBuyer(ctx context.Context, buyerID string) ([]CartItem, error)
	FindByID(ctx context.Context, id string) (*CartItem, error)
	FindByBuyerProduct(ctx context.Context, buyerID, productID string) (*CartItem, error)
	Create(ctx context.Context, it *CartItem) error
	SetQuantity(ctx context.Context, id string, qty int) error
	Delete(ctx context.Context, id string) error
	DeleteByBuyer(ctx context.Context, buyerID string) error
}
