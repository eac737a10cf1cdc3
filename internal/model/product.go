package model

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Category struct {
	BaseModel
	Name        string `gorm:"type:varchar(100);not null" json:"name"`
	Slug        string `gorm:"type:varchar(120);uniqueIndex;not null" json:"slug"`
	Description string `gorm:"type:text" json:"description,omitempty"`
}

// Product is a catalog entry. Stock is a cache of the number of its
// inventory units in the available state and is never written directly.
type Product struct {
	BaseModel
	Name           string            `gorm:"type:varchar(255);not null" json:"name"`
	Slug           string            `gorm:"type:varchar(255);uniqueIndex;not null" json:"slug"`
	SKU            *string           `gorm:"type:varchar(64);uniqueIndex" json:"sku,omitempty"`
	Description    string            `gorm:"type:text" json:"description,omitempty"`
	Price          decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"price"`
	SalePrice      *decimal.Decimal  `gorm:"type:decimal(12,2)" json:"sale_price,omitempty"`
	CategoryID     *uuid.UUID        `gorm:"type:uuid;index" json:"category_id,omitempty"`
	Category       *Category         `json:"category,omitempty"`
	Brand          string            `gorm:"type:varchar(100);index" json:"brand,omitempty"`
	ModelName      string            `gorm:"column:model;type:varchar(100)" json:"model,omitempty"`
	ImageURL       string            `gorm:"type:text" json:"image_url,omitempty"`
	Specifications datatypes.JSONMap `json:"specifications,omitempty"`
	Stock          int               `gorm:"not null;default:0" json:"stock"`
	IsActive       bool              `gorm:"not null" json:"is_active"`
}

// EffectivePrice is the price a buyer pays right now: the sale price when
// one is set, otherwise the list price.
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.SalePrice != nil {
		return *p.SalePrice
	}
	return p.Price
}

// UnitPrefix is the stem of generated inventory unit identifiers: the SKU
// if present, else the upper-cased initials of the first two words of the name.
func (p *Product) UnitPrefix() string {
	if p.SKU != nil && strings.TrimSpace(*p.SKU) != "" {
		return strings.TrimSpace(*p.SKU)
	}
	words := strings.Fields(p.Name)
	if len(words) > 2 {
		words = words[:2]
	}
	var b strings.Builder
	for _, w := range words {
		b.WriteString(strings.ToUpper(string([]rune(w)[0])))
	}
	if b.Len() == 0 {
		return "UNIT"
	}
	return b.String()
}
