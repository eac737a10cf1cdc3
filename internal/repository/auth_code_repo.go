package repository

import (
	"context"
	"time"

	"go-gearstore/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CodeFilter struct {
	OrderID *uuid.UUID
	UserID  *uuid.UUID
}

type AuthCodeRepository interface {
	Create(ctx context.Context, tx *gorm.DB, code *model.AuthenticationCode) error
	FindByCode(ctx context.Context, code string) (*model.AuthenticationCode, error)
	FindByOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) ([]model.AuthenticationCode, error)
	List(ctx context.Context, filter CodeFilter) ([]model.AuthenticationCode, error)
	MarkVerified(ctx context.Context, id uuid.UUID, at time.Time, data datatypes.JSONMap) (bool, error)
	MarkEmailSent(ctx context.Context, id uuid.UUID) (bool, error)
	Deactivate(ctx context.Context, tx *gorm.DB, code string) (int64, error)
	CountVerified(ctx context.Context) (int64, error)
}

type authCodeRepo struct {
	db *gorm.DB
}

func NewAuthCodeRepo(db *gorm.DB) AuthCodeRepository {
	return &authCodeRepo{db: db}
}

func (r *authCodeRepo) Create(ctx context.Context, tx *gorm.DB, code *model.AuthenticationCode) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Omit("Order", "Product", "User").Create(code).Error
}

func (r *authCodeRepo) FindByCode(ctx context.Context, code string) (*model.AuthenticationCode, error) {
	var authCode model.AuthenticationCode
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Order").
		Preload("User").
		First(&authCode, "code = ?", code).Error
	if err != nil {
		return nil, err
	}
	return &authCode, nil
}

func (r *authCodeRepo) FindByOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) ([]model.AuthenticationCode, error) {
	if tx == nil {
		tx = r.db
	}
	var codes []model.AuthenticationCode
	err := tx.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&codes).Error
	return codes, err
}

func (r *authCodeRepo) List(ctx context.Context, filter CodeFilter) ([]model.AuthenticationCode, error) {
	query := r.db.WithContext(ctx).Preload("Product")
	if filter.OrderID != nil {
		query = query.Where("order_id = ?", *filter.OrderID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}

	var codes []model.AuthenticationCode
	err := query.Order("created_at DESC").Find(&codes).Error
	return codes, err
}

// MarkVerified flips is_verified once. It reports false when the code was
// already verified, leaving verified_at and the stored metadata untouched.
func (r *authCodeRepo) MarkVerified(ctx context.Context, id uuid.UUID, at time.Time, data datatypes.JSONMap) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.AuthenticationCode{}).
		Where("id = ? AND is_verified = ? AND is_active = ?", id, false, true).
		Updates(map[string]interface{}{
			"is_verified":       true,
			"verified_at":       at,
			"verification_data": data,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// MarkEmailSent claims the right to send the verification email.
func (r *authCodeRepo) MarkEmailSent(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.AuthenticationCode{}).
		Where("id = ? AND email_sent = ?", id, false).
		Update("email_sent", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Deactivate sets is_active to false. It returns the number of codes matched
// so callers can tell an unknown code from an already retired one.
func (r *authCodeRepo) Deactivate(ctx context.Context, tx *gorm.DB, code string) (int64, error) {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).Model(&model.AuthenticationCode{}).
		Where("code = ?", code).
		Update("is_active", false)
	return result.RowsAffected, result.Error
}

func (r *authCodeRepo) CountVerified(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.AuthenticationCode{}).
		Where("is_verified = ?", true).
		Count(&count).Error
	return count, err
}
