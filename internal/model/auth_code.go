package model

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuthenticationCode is the public, random identifier issued for one order
// line and bound to the unit assigned to that line. Once issued it is never
// rebound; Verified flips false->true once and IsActive flips true->false
// when the order is delivered.
type AuthenticationCode struct {
	ID               uuid.UUID         `gorm:"type:uuid;primary_key;" json:"id"`
	Code             string            `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	OrderID          uuid.UUID         `gorm:"type:uuid;not null;index" json:"order_id"`
	Order            *Order            `json:"order,omitempty"`
	OrderItemID      *uuid.UUID        `gorm:"type:uuid;index" json:"order_item_id,omitempty"`
	ProductID        uuid.UUID         `gorm:"type:uuid;not null;index" json:"product_id"`
	Product          *Product          `json:"product,omitempty"`
	UserID           uuid.UUID         `gorm:"type:uuid;not null;index" json:"user_id"`
	User             *User             `json:"-"`
	InventoryUnitID  *uuid.UUID        `gorm:"type:uuid" json:"inventory_unit_id,omitempty"`
	SerialNumber     string            `gorm:"type:varchar(120)" json:"serial_number"`
	IsVerified       bool              `gorm:"not null" json:"verified"`
	VerifiedAt       *time.Time        `json:"verified_at,omitempty"`
	VerificationData datatypes.JSONMap `json:"verification_data,omitempty"`
	EmailSent        bool              `gorm:"not null" json:"email_sent"`
	IsActive         bool              `gorm:"not null" json:"active"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func (a *AuthenticationCode) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}

// VerifyURL is the public page a scanned code resolves to.
func VerifyURL(origin, code string) string {
	return strings.TrimRight(origin, "/") + "/verify/" + code
}

// QRImageURL asks the external renderer for a scannable image of target.
func QRImageURL(renderer, target string) string {
	q := url.Values{}
	q.Set("size", "200x200")
	q.Set("data", target)
	sep := "?"
	if strings.Contains(renderer, "?") {
		sep = "&"
	}
	return renderer + sep + q.Encode()
}

// CodeResponse adds the derived links to a stored code.
type CodeResponse struct {
	AuthenticationCode
	VerifyURL  string `json:"verify_url"`
	QRImageURL string `json:"qr_image_url"`
}

func (a *AuthenticationCode) ToResponse(origin, renderer string) CodeResponse {
	link := VerifyURL(origin, a.Code)
	return CodeResponse{
		AuthenticationCode: *a,
		VerifyURL:          link,
		QRImageURL:         QRImageURL(renderer, link),
	}
}
