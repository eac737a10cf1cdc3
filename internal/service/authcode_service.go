package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"go-gearstore/internal/model"
	"go-gearstore/internal/repository"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AuthCodeService interface {
	Issue(ctx context.Context, tx *gorm.DB, req IssueCodeRequest) (*model.AuthenticationCode, error)
	Verify(ctx context.Context, code string, metadata map[string]interface{}) (*VerificationResult, error)
	Deactivate(ctx context.Context, tx *gorm.DB, code string) error
	ListCodes(ctx context.Context, filter repository.CodeFilter) ([]model.CodeResponse, error)
	ListByOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) ([]model.AuthenticationCode, error)
	Present(code *model.AuthenticationCode) model.CodeResponse
}

// IssueCodeRequest is trusted input from the order workflow; it is not
// cross-checked against the order it names.
type IssueCodeRequest struct {
	OrderID         uuid.UUID
	OrderItemID     *uuid.UUID
	ProductID       uuid.UUID
	UserID          uuid.UUID
	InventoryUnitID *uuid.UUID
	SerialNumber    string
}

type VerificationResult struct {
	Verified          bool           `json:"verified"`
	FirstVerification bool           `json:"first_verification"`
	Active            bool           `json:"active"`
	Code              string         `json:"code"`
	SerialNumber      string         `json:"serial_number"`
	VerifiedAt        *time.Time     `json:"verified_at,omitempty"`
	Product           *model.Product `json:"product,omitempty"`
	Order             *VerifiedOrder `json:"order,omitempty"`
}

// VerifiedOrder is the part of an order shown to whoever scans a code.
type VerifiedOrder struct {
	ID          uuid.UUID         `json:"id"`
	OrderNumber string            `json:"order_number"`
	Status      model.OrderStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
}

type authCodeService struct {
	codeRepo repository.AuthCodeRepository
	notifier Notifier
	origin   string
	renderer string
}

// NewAuthCodeService builds codes whose links point at origin and whose QR
// images come from the renderer URL.
func NewAuthCodeService(codeRepo repository.AuthCodeRepository, notifier Notifier, origin, renderer string) AuthCodeService {
	return &authCodeService{
		codeRepo: codeRepo,
		notifier: notifier,
		origin:   origin,
		renderer: renderer,
	}
}

func (s *authCodeService) Issue(ctx context.Context, tx *gorm.DB, req IssueCodeRequest) (*model.AuthenticationCode, error) {
	code := &model.AuthenticationCode{
		Code:            uuid.NewString(),
		OrderID:         req.OrderID,
		OrderItemID:     req.OrderItemID,
		ProductID:       req.ProductID,
		UserID:          req.UserID,
		InventoryUnitID: req.InventoryUnitID,
		SerialNumber:    req.SerialNumber,
		IsVerified:      false,
		EmailSent:       false,
		IsActive:        true,
	}
	if err := s.codeRepo.Create(ctx, tx, code); err != nil {
		return nil, storageError("issue code", err)
	}
	return code, nil
}

// Verify looks up a code and marks it verified the first time it is seen.
// Later calls return the original verification untouched, and a retired code
// keeps whatever verification state it had when it was retired. The confirmation
// email is claimed through email_sent before sending, so it goes out at
// most once per code.
func (s *authCodeService) Verify(ctx context.Context, code string, metadata map[string]interface{}) (*VerificationResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, notFound("code")
	}

	record, err := s.codeRepo.FindByCode(ctx, code)
	if err != nil {
		return nil, storageError("code", err)
	}

	first := false
	if !record.IsVerified && record.IsActive {
		first, err = s.codeRepo.MarkVerified(ctx, record.ID, time.Now(), datatypes.JSONMap(metadata))
		if err != nil {
			return nil, storageError("mark verified", err)
		}
		// Reload so verified_at reflects the winning write.
		if record, err = s.codeRepo.FindByCode(ctx, code); err != nil {
			return nil, storageError("code", err)
		}
	}

	if first && record.User != nil && record.User.Email != "" {
		s.sendVerificationEmail(ctx, record)
	}

	result := &VerificationResult{
		Verified:          record.IsVerified,
		FirstVerification: first,
		Active:            record.IsActive,
		Code:              record.Code,
		SerialNumber:      record.SerialNumber,
		VerifiedAt:        record.VerifiedAt,
		Product:           record.Product,
	}
	if record.Order != nil {
		result.Order = &VerifiedOrder{
			ID:          record.Order.ID,
			OrderNumber: record.Order.OrderNumber,
			Status:      record.Order.Status,
			CreatedAt:   record.Order.CreatedAt,
		}
	}
	return result, nil
}

func (s *authCodeService) sendVerificationEmail(ctx context.Context, record *model.AuthenticationCode) {
	claimed, err := s.codeRepo.MarkEmailSent(ctx, record.ID)
	if err != nil {
		log.Printf("verification email for code %s: %v", record.Code, err)
		return
	}
	if !claimed {
		return
	}
	record.EmailSent = true
	if err := s.notifier.SendVerificationConfirmation(ctx, record.User.Email, record.Product, record); err != nil {
		log.Printf("verification email for code %s: %v", record.Code, err)
	}
}

// Deactivate retires a code. Retiring an already inactive code is a no-op.
func (s *authCodeService) Deactivate(ctx context.Context, tx *gorm.DB, code string) error {
	affected, err := s.codeRepo.Deactivate(ctx, tx, code)
	if err != nil {
		return storageError("deactivate code", err)
	}
	if affected == 0 {
		// Some drivers report zero when the value was already false.
		if _, err := s.codeRepo.FindByCode(ctx, code); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("code")
			}
			return storageError("code", err)
		}
	}
	return nil
}

func (s *authCodeService) ListCodes(ctx context.Context, filter repository.CodeFilter) ([]model.CodeResponse, error) {
	codes, err := s.codeRepo.List(ctx, filter)
	if err != nil {
		return nil, storageError("list codes", err)
	}

	responses := make([]model.CodeResponse, len(codes))
	for i := range codes {
		responses[i] = s.Present(&codes[i])
	}
	return responses, nil
}

// ListByOrder reads the codes of one order, inside tx when given.
func (s *authCodeService) ListByOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) ([]model.AuthenticationCode, error) {
	codes, err := s.codeRepo.FindByOrder(ctx, tx, orderID)
	if err != nil {
		return nil, storageError("list order codes", err)
	}
	return codes, nil
}

func (s *authCodeService) Present(code *model.AuthenticationCode) model.CodeResponse {
	return code.ToResponse(s.origin, s.renderer)
}
