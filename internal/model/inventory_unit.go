package model

import (
	"time"

	"github.com/google/uuid"
)

type UnitStatus string

const (
	UnitAvailable UnitStatus = "available"
	UnitReserved  UnitStatus = "reserved"
	UnitSold      UnitStatus = "sold"
)

func (s UnitStatus) Valid() bool {
	switch s {
	case UnitAvailable, UnitReserved, UnitSold:
		return true
	}
	return false
}

// CanBecome reports whether a unit in status s may move to next.
// A sold unit is final.
func (s UnitStatus) CanBecome(next UnitStatus) bool {
	if !next.Valid() {
		return false
	}
	return s != UnitSold
}

// InventoryUnit is one physical, serially numbered item of a product.
type InventoryUnit struct {
	BaseModel
	UnitCode          string     `gorm:"type:varchar(80);index;not null" json:"unit_code"`
	Sequence          int        `gorm:"not null" json:"sequence"`
	ProductID         uuid.UUID  `gorm:"type:uuid;not null;index:idx_units_product_status,priority:1" json:"product_id"`
	Product           *Product   `json:"product,omitempty"`
	SerialNumber      string     `gorm:"type:varchar(120);uniqueIndex;not null" json:"serial_number"`
	SecurityCodeImage string     `gorm:"type:text" json:"security_code_image,omitempty"`
	CertificateURL    string     `gorm:"type:text" json:"certificate_url,omitempty"`
	Status            UnitStatus `gorm:"type:varchar(20);not null;index:idx_units_product_status,priority:2" json:"status"`
	OrderID           *uuid.UUID `gorm:"type:uuid;index" json:"order_id,omitempty"`
	SoldAt            *time.Time `json:"sold_at,omitempty"`
}
