package service

import (
	"context"
	"fmt"
	"strings"

	"go-gearstore/internal/model"
	"go-gearstore/internal/ws"
	"go-gearstore/pkg/mailer"

	"github.com/shopspring/decimal"
)

// Notifier tells buyers about their orders and verified codes. Callers
// treat every error as non-fatal.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, email string, order *model.Order, lines []OrderLineNotice) error
	SendVerificationConfirmation(ctx context.Context, email string, product *model.Product, code *model.AuthenticationCode) error
}

// OrderLineNotice is one purchased line together with the unit and code
// bound to it. Serial and image fields are empty for a line that shipped
// without a unit.
type OrderLineNotice struct {
	ProductName       string          `json:"product_name"`
	Quantity          int             `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	SerialNumber      string          `json:"serial_number,omitempty"`
	SecurityCodeImage string          `json:"security_code_image,omitempty"`
	CertificateURL    string          `json:"certificate_url,omitempty"`
	Code              string          `json:"code"`
	VerifyURL         string          `json:"verify_url"`
	QRImageURL        string          `json:"qr_image_url"`
}

type storeNotifier struct {
	mail  mailer.Sender
	wsHub *ws.Hub
}

// NewNotifier sends email through mail and pushes a copy of each notice to
// the buyer's open sockets.
func NewNotifier(mail mailer.Sender, hub *ws.Hub) Notifier {
	return &storeNotifier{mail: mail, wsHub: hub}
}

func (n *storeNotifier) SendOrderConfirmation(ctx context.Context, email string, order *model.Order, lines []OrderLineNotice) error {
	n.wsHub.SendToUsers([]string{order.UserID.String()}, map[string]interface{}{
		"type":         "order_created",
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"total_amount": order.TotalAmount,
		"lines":        lines,
	})

	var b strings.Builder
	fmt.Fprintf(&b, "Thank you for your order %s.\n\n", order.OrderNumber)
	for _, line := range lines {
		fmt.Fprintf(&b, "- %s x%d @ %s\n", line.ProductName, line.Quantity, line.UnitPrice.StringFixed(2))
		if line.SerialNumber != "" {
			fmt.Fprintf(&b, "  Serial: %s\n", line.SerialNumber)
		}
		if line.CertificateURL != "" {
			fmt.Fprintf(&b, "  Certificate: %s\n", line.CertificateURL)
		}
		fmt.Fprintf(&b, "  Verify authenticity: %s\n", line.VerifyURL)
		fmt.Fprintf(&b, "  QR: %s\n", line.QRImageURL)
	}
	fmt.Fprintf(&b, "\nTotal: %s\nPayment: %s (%s)\n", order.TotalAmount.StringFixed(2), order.PaymentMethod, order.PaymentStatus)

	return n.mail.Send(ctx, email, "Order confirmation "+order.OrderNumber, b.String())
}

func (n *storeNotifier) SendVerificationConfirmation(ctx context.Context, email string, product *model.Product, code *model.AuthenticationCode) error {
	n.wsHub.SendToUsers([]string{code.UserID.String()}, map[string]interface{}{
		"type":        "code_verified",
		"code":        code.Code,
		"product_id":  code.ProductID,
		"verified_at": code.VerifiedAt,
	})

	name := "your product"
	if product != nil {
		name = product.Name
	}
	body := fmt.Sprintf(
		"The authenticity code %s for %s was verified for the first time.\nSerial: %s\n\nIf this was not you, please contact support.",
		code.Code, name, code.SerialNumber,
	)
	return n.mail.Send(ctx, email, "Your product was verified", body)
}
