package domain

import (
	"context"
	"time"
)

// OrderStatus 只是一个状态字符串，不约束流转顺序
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

type Order struct {
	ID              string      `gorm:"primaryKey;size:36" json:"id"`
	BuyerID         string      `gorm:"size:36;not null;index" json:"buyer_id"`
	TotalAmount     float64     `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	ShippingAddress string      `gorm:"size:512" json:"shipping_address"`
	Status          OrderStatus `gorm:"size:16;not null;default:pending;index" json:"status"`
	Items           []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	CreatedAt       time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

// OrderItem 下单时的价格快照；商品删除后订单行保留
type OrderItem struct {
	ID              string   `gorm:"primaryKey;size:36" json:"id"`
	OrderID         string   `gorm:"size:36;not null;index" json:"order_id"`
	ProductID       string   `gorm:"size:36;not null;index" json:"product_id"`
	Quantity        int      `gorm:"not null" json:"quantity"`
	PriceAtPurchase float64  `gorm:"type:numeric(12,2);not null" json:"price_at_purchase"`
	Product         *Product `gorm:"foreignKey:ProductID;constraint:-" json:"product,omitempty"`
}

func (OrderItem) TableName() string { return "order_items" }

type OrderQuery struct {
	BuyerID string
	// SellerID 非空时只返回含该卖家商品的订单，Items 也只保留该卖家的行
	SellerID string
	Status   OrderStatus // 空表示不限
	Offset   int
	Limit    int
}

type OrderRepository interface {
	List(ctx context.Context, q OrderQuery) ([]Order, int64, error)
	// FindByID 带 Items 与对应商品
	FindByID(ctx context.Context, id string) (*Order, error)
	// Place 一个事务内写入订单与明细、按明细扣减库存并清空买家购物车；
	// 任一商品已非 approved 或库存不足时整体回滚并返回 ErrInvalidState
	Place(ctx context.Context, o *Order) error
	SetStatus(ctx context.Context, id string, s OrderStatus) error
	CountAll(ctx context.Context) (int64, error)
	CountForSeller(ctx context.Context, sellerID string) (int64, error)
}
