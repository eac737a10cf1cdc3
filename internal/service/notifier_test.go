package service

import (
	"context"
	"testing"

	"go-gearstore/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedMail struct {
	to, subject, body string
}

type captureSender struct {
	sent []capturedMail
}

func (s *captureSender) Send(ctx context.Context, to, subject, body string) error {
	s.sent = append(s.sent, capturedMail{to, subject, body})
	return nil
}

func TestOrderConfirmationBody(t *testing.T) {
	mail := &captureSender{}
	n := NewNotifier(mail, nil)

	order := &model.Order{
		UserID:        uuid.New(),
		OrderNumber:   "ORD-20240101000000000-ABCDEF",
		TotalAmount:   mustDecimal("25"),
		PaymentMethod: "card",
		PaymentStatus: model.PaymentPending,
	}
	lines := []OrderLineNotice{
		{ProductName: "Gaming Mouse", Quantity: 2, UnitPrice: mustDecimal("10"), SerialNumber: "SN-1", VerifyURL: "https://shop.test/verify/a"},
		{ProductName: "Mouse Pad", Quantity: 1, UnitPrice: mustDecimal("5"), VerifyURL: "https://shop.test/verify/b"},
	}
	require.NoError(t, n.SendOrderConfirmation(context.Background(), "buyer@example.com", order, lines))

	require.Len(t, mail.sent, 1)
	msg := mail.sent[0]
	assert.Equal(t, "buyer@example.com", msg.to)
	assert.Contains(t, msg.subject, order.OrderNumber)
	assert.Contains(t, msg.body, "Gaming Mouse x2 @ 10.00")
	assert.Contains(t, msg.body, "Serial: SN-1")
	assert.Contains(t, msg.body, "https://shop.test/verify/b")
	assert.Contains(t, msg.body, "Total: 25.00")
}

func TestVerificationConfirmationBody(t *testing.T) {
	mail := &captureSender{}
	n := NewNotifier(mail, nil)

	code := &model.AuthenticationCode{Code: "abc", SerialNumber: "SN-9", UserID: uuid.New()}
	require.NoError(t, n.SendVerificationConfirmation(context.Background(), "buyer@example.com", &model.Product{Name: "Headset"}, code))
	require.NoError(t, n.SendVerificationConfirmation(context.Background(), "buyer@example.com", nil, code))

	require.Len(t, mail.sent, 2)
	assert.Contains(t, mail.sent[0].body, "abc for Headset")
	assert.Contains(t, mail.sent[1].body, "your product")
}
