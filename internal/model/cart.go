package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CartItem is unique on (user, product); re-adding a product bumps the
// quantity of the existing row. Rows are hard-deleted so the unique index
// never collides with a removed line.
type CartItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_user_product,priority:1" json:"user_id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_user_product,priority:2" json:"product_id"`
	Product   *Product  `json:"product,omitempty"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *CartItem) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return
}

// CartLine is a cart item priced at the product's current price.
type CartLine struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	ImageURL  string          `json:"image_url,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
	Stock     int             `json:"stock"`
}

type CartView struct {
	Items      []CartLine      `json:"items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	TotalItems int             `json:"total_items"`
}

// ToLine prices a cart item with the live product data it was loaded with.
func (c *CartItem) ToLine() CartLine {
	line := CartLine{
		ID:        c.ID,
		ProductID: c.ProductID,
		Quantity:  c.Quantity,
	}
	if c.Product != nil {
		line.Name = c.Product.Name
		line.Slug = c.Product.Slug
		line.ImageURL = c.Product.ImageURL
		line.UnitPrice = c.Product.EffectivePrice()
		line.Stock = c.Product.Stock
	}
	line.LineTotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(c.Quantity)))
	return line
}
