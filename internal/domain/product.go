package domain

import (
	"context"
	"time"

	"gorm.io/datatypes"
)

type ProductStatus string

const (
	StatusPending  ProductStatus = "pending"
	StatusApproved ProductStatus = "approved"
	StatusRejected ProductStatus = "rejected"
)

func (s ProductStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Terminal 审核流程里 approved / rejected 都没有回到 pending 的路径
func (s ProductStatus) Terminal() bool { return s == StatusApproved || s == StatusRejected }

const (
	MaxProductImages = 4
	MinEcoRating     = 0
	MaxEcoRating     = 100
	DefaultStock     = 10
)

type Product struct {
	ID              string                      `gorm:"primaryKey;size:36" json:"id"`
	SellerID        string                      `gorm:"size:36;not null;index" json:"seller_id"`
	CategoryID      *string                     `gorm:"size:36;index" json:"category_id"`
	Name            string                      `gorm:"size:255;not null" json:"name"`
	Description     string                      `gorm:"type:text" json:"description"`
	Price           float64                     `gorm:"type:numeric(12,2);not null" json:"price"`
	Material        string                      `gorm:"size:64;not null;index" json:"material"`
	Images          datatypes.JSONSlice[string] `json:"images"`
	StockQuantity   int                         `gorm:"not null;default:10" json:"stock_quantity"`
	Status          ProductStatus               `gorm:"size:16;not null;default:pending;index" json:"status"`
	EcoRating       *int                        `json:"eco_rating"`
	RejectionReason *string                     `gorm:"size:512" json:"rejection_reason"`
	CreatedAt       time.Time                   `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`

	// 关联只用于预加载名字，对外只暴露 SellerName / CategoryName
	Seller       *Profile  `gorm:"foreignKey:SellerID;constraint:-" json:"-"`
	Category     *Category `gorm:"foreignKey:CategoryID;constraint:-" json:"-"`
	SellerName   string    `gorm:"-" json:"seller_name,omitempty"`
	CategoryName string    `gorm:"-" json:"category_name,omitempty"`
}

func (Product) TableName() string { return "products" }

// FlattenNames 把预加载的关联折叠成名字字段
func (p *Product) FlattenNames() {
	if p.Seller != nil {
		p.SellerName = p.Seller.FullName
	}
	if p.Category != nil {
		p.CategoryName = p.Category.Name
	}
	p.Seller, p.Category = nil, nil
}

// ProductFields 卖家可写字段（创建与 pending 期间编辑共用）
type ProductFields struct {
	Name          string
	Description   string
	Price         float64
	Material      string
	CategoryID    *string
	Images        []string
	StockQuantity int
}

// Moderation 一次审核写入的完整字段集
type Moderation struct {
	Status          ProductStatus
	EcoRating       *int
	RejectionReason *string
}

type BuyerSort string

const (
	SortNewest    BuyerSort = "newest"
	SortPriceLow  BuyerSort = "price_low"
	SortPriceHigh BuyerSort = "price_high"
	SortEcoRating BuyerSort = "eco_rating"
)

type ProductQuery struct {
	Statuses     []ProductStatus // 空表示不限
	SellerID     string
	CategoryID   string
	Material     string
	Search       string
	MinEcoRating *int
	Sort         BuyerSort
	Offset       int
	Limit        int
}

type ProductRepository interface {
	Create(ctx context.Context, p *Product) error
	FindByID(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context, q ProductQuery) ([]Product, int64, error)
	// UpdateFields 仅当 seller_id 与 status 都匹配时写入；返回是否命中
	UpdateFields(ctx context.Context, id, sellerID string, when ProductStatus, f ProductFields) (bool, error)
	// Transition 条件更新：仅当当前 status == from 时写入
	Transition(ctx context.Context, id string, from ProductStatus, m Moderation) (bool, error)
	SetEcoRating(ctx context.Context, id string, when ProductStatus, rating int) (bool, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context, q ProductQuery) (int64, error)
}
