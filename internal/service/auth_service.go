package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"go-gearstore/internal/model"
	"go-gearstore/internal/repository"
	"go-gearstore/internal/ws"
	"go-gearstore/pkg/jwt"
	"go-gearstore/pkg/validator"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrEmailExists        = fmt.Errorf("%w: email already registered", ErrValidation)
)

type AuthService interface {
	Register(ctx context.Context, req *RegisterRequest) (*LoginResponse, error)
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error
	Heartbeat(ctx context.Context, userID uuid.UUID) error
	SeedAdmin(ctx context.Context, email, password string) error
}

type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	FullName    string `json:"full_name" validate:"required"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,max=20"`
}

type LoginResponse struct {
	Token string             `json:"token"`
	User  model.UserResponse `json:"user"`
}

type authService struct {
	userRepo repository.UserRepository
	tokens   *jwt.Manager
	wsHub    *ws.Hub
}

func NewAuthService(userRepo repository.UserRepository, tokens *jwt.Manager, hub *ws.Hub) AuthService {
	return &authService{
		userRepo: userRepo,
		tokens:   tokens,
		wsHub:    hub,
	}
}

func (s *authService) Register(ctx context.Context, req *RegisterRequest) (*LoginResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validator.First(req); err != nil {
		return nil, validationError("%v", err)
	}

	if existing, _ := s.userRepo.FindByEmail(ctx, req.Email); existing != nil {
		return nil, ErrEmailExists
	}

	user := &model.User{
		Email:       req.Email,
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
		Role:        model.RoleCustomer,
		IsActive:    true,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, errors.New("failed to hash password")
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailExists
		}
		return nil, storageError("create user", err)
	}

	return s.issueSession(ctx, user)
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrUserInactive
	}

	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	return s.issueSession(ctx, user)
}

// issueSession rotates the token version, so any older token for the same
// user stops validating, and signs a new token.
func (s *authService) issueSession(ctx context.Context, user *model.User) (*LoginResponse, error) {
	now := time.Now()
	user.TokenVersion = uuid.New().String()
	user.LastSeenAt = &now

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, storageError("update session", err)
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Email, user.FullName, user.Role, user.TokenVersion)
	if err != nil {
		return nil, errors.New("failed to generate token")
	}

	return &LoginResponse{
		Token: token,
		User:  user.ToResponse(),
	}, nil
}

func (s *authService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return storageError("user", err)
	}

	if !user.CheckPassword(oldPassword) {
		return ErrWrongPassword
	}
	if len(newPassword) < 6 {
		return validationError("new password must be at least 6 characters")
	}

	if err := user.SetPassword(newPassword); err != nil {
		return errors.New("failed to hash new password")
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, user.Password); err != nil {
		return storageError("update password", err)
	}

	// Revoke every session, this one included.
	return s.userRepo.UpdateTokenVersion(ctx, user.ID, uuid.New().String())
}

func (s *authService) Heartbeat(ctx context.Context, userID uuid.UUID) error {
	if err := s.userRepo.UpdateLastSeen(ctx, userID); err != nil {
		return err
	}

	s.wsHub.SendToUsers([]string{userID.String()}, map[string]interface{}{
		"type":         "heartbeat",
		"user_id":      userID.String(),
		"last_seen_at": time.Now(),
	})
	return nil
}

// SeedAdmin creates the bootstrap admin account when it does not exist yet.
func (s *authService) SeedAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}

	if existing, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		if !existing.IsAdmin() {
			existing.Role = model.RoleAdmin
			return s.userRepo.Update(ctx, existing)
		}
		return nil
	}

	admin := &model.User{
		Email:    email,
		FullName: "Store Admin",
		Role:     model.RoleAdmin,
		IsActive: true,
	}
	admin.CreatedBy = "system"
	if err := admin.SetPassword(password); err != nil {
		return err
	}
	return s.userRepo.Create(ctx, admin)
}
