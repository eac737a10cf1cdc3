package model

import (
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderPending, OrderProcessing, true},
		{OrderPending, OrderCancelled, true},
		{OrderPending, OrderShipped, false},
		{OrderProcessing, OrderShipped, true},
		{OrderShipped, OrderDelivered, true},
		{OrderShipped, OrderCancelled, true},
		{OrderDelivered, OrderPending, false},
		{OrderDelivered, OrderCancelled, false},
		{OrderCancelled, OrderProcessing, false},
		{OrderPending, OrderStatus("lost"), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanBecome(tt.to))
		})
	}

	assert.True(t, OrderDelivered.IsTerminal())
	assert.True(t, OrderCancelled.IsTerminal())
	assert.False(t, OrderShipped.IsTerminal())
	assert.False(t, OrderStatus("lost").Valid())
}

func TestUnitStatusTransitions(t *testing.T) {
	assert.True(t, UnitAvailable.CanBecome(UnitReserved))
	assert.True(t, UnitReserved.CanBecome(UnitAvailable))
	assert.True(t, UnitAvailable.CanBecome(UnitSold))
	assert.False(t, UnitSold.CanBecome(UnitAvailable))
	assert.False(t, UnitAvailable.CanBecome(UnitStatus("broken")))
}

func TestPaymentStatusValid(t *testing.T) {
	assert.True(t, PaymentRefunded.Valid())
	assert.False(t, PaymentStatus("chargeback").Valid())
}

func TestUnitPrefix(t *testing.T) {
	sku := "KB-001"
	blank := "  "
	tests := []struct {
		name    string
		product Product
		want    string
	}{
		{"sku wins", Product{Name: "Mechanical Keyboard", SKU: &sku}, "KB-001"},
		{"two words", Product{Name: "mechanical keyboard pro"}, "MK"},
		{"blank sku falls back to name", Product{Name: "Gaming Mouse", SKU: &blank}, "GM"},
		{"single word", Product{Name: "headset"}, "H"},
		{"empty name", Product{}, "UNIT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.product.UnitPrefix())
		})
	}
}

func TestEffectivePrice(t *testing.T) {
	p := Product{Price: decimal.RequireFromString("99.99")}
	assert.True(t, p.EffectivePrice().Equal(decimal.RequireFromString("99.99")))

	sale := decimal.RequireFromString("79.50")
	p.SalePrice = &sale
	assert.True(t, p.EffectivePrice().Equal(sale))
}

func TestCodeLinks(t *testing.T) {
	link := VerifyURL("https://shop.example.com/", "abc-123")
	assert.Equal(t, "https://shop.example.com/verify/abc-123", link)

	img := QRImageURL("https://qr.example.com/render", link)
	require.True(t, strings.HasPrefix(img, "https://qr.example.com/render?"))
	u, err := url.Parse(img)
	require.NoError(t, err)
	assert.Equal(t, link, u.Query().Get("data"))
	assert.Equal(t, "200x200", u.Query().Get("size"))

	img = QRImageURL("https://qr.example.com/render?format=png", link)
	assert.Contains(t, img, "?format=png&")
}

func TestCartItemToLine(t *testing.T) {
	item := CartItem{
		Quantity: 3,
		Product:  &Product{Name: "Pad", Slug: "pad", Price: decimal.RequireFromString("4.25"), Stock: 7},
	}
	line := item.ToLine()
	assert.Equal(t, "Pad", line.Name)
	assert.Equal(t, 7, line.Stock)
	assert.True(t, line.LineTotal.Equal(decimal.RequireFromString("12.75")))
}
