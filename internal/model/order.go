package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// orderTransitions lists the legal next states for each order status.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderProcessing, OrderCancelled},
	OrderProcessing: {OrderShipped, OrderCancelled},
	OrderShipped:    {OrderDelivered, OrderCancelled},
	OrderDelivered:  {},
	OrderCancelled:  {},
}

func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// IsTerminal is true for delivered and cancelled orders.
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

func (s OrderStatus) CanBecome(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// Order is the immutable record of a checkout. Only Status and
// PaymentStatus change after creation.
type Order struct {
	BaseModel
	UserID          uuid.UUID            `gorm:"type:uuid;not null;index" json:"user_id"`
	User            *User                `json:"user,omitempty"`
	OrderNumber     string               `gorm:"type:varchar(40);uniqueIndex;not null" json:"order_number"`
	Status          OrderStatus          `gorm:"type:varchar(20);not null;index" json:"status"`
	TotalAmount     decimal.Decimal      `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	ShippingAddress datatypes.JSONMap    `json:"shipping_address"`
	BillingAddress  datatypes.JSONMap    `json:"billing_address"`
	PaymentMethod   string               `gorm:"type:varchar(30);not null" json:"payment_method"`
	PaymentStatus   PaymentStatus        `gorm:"type:varchar(20);not null" json:"payment_status"`
	Items           []OrderItem          `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Codes           []AuthenticationCode `gorm:"foreignKey:OrderID" json:"codes,omitempty"`
}

// OrderItem snapshots a product line at purchase time so later catalog
// edits do not rewrite order history.
type OrderItem struct {
	ID           uuid.UUID       `gorm:"type:uuid;primary_key;" json:"id"`
	OrderID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product      *Product        `json:"product,omitempty"`
	Quantity     int             `gorm:"not null" json:"quantity"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	ProductName  string          `gorm:"type:varchar(255);not null" json:"product_name"`
	ProductImage string          `gorm:"type:text" json:"product_image,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return
}

func (i *OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
