package service

import (
	"context"

	"go-gearstore/internal/model"
	"go-gearstore/internal/repository"
	"go-gearstore/pkg/validator"

	"github.com/google/uuid"
)

type UserService interface {
	GetAllUsers(ctx context.Context) ([]model.UserResponse, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.UserResponse, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, req *UpdateProfileRequest) (*model.UserResponse, error)
}

type UpdateProfileRequest struct {
	FullName    string `json:"full_name" validate:"required"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,max=20"`
}

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) GetAllUsers(ctx context.Context) ([]model.UserResponse, error) {
	users, err := s.userRepo.FindAll(ctx)
	if err != nil {
		return nil, storageError("list users", err)
	}

	responses := make([]model.UserResponse, len(users))
	for i, user := range users {
		responses[i] = user.ToResponse()
	}
	return responses, nil
}

func (s *userService) GetUserByID(ctx context.Context, id uuid.UUID) (*model.UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, storageError("user", err)
	}
	response := user.ToResponse()
	return &response, nil
}

func (s *userService) UpdateProfile(ctx context.Context, id uuid.UUID, req *UpdateProfileRequest) (*model.UserResponse, error) {
	if err := validator.First(req); err != nil {
		return nil, validationError("%v", err)
	}

	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, storageError("user", err)
	}

	user.FullName = req.FullName
	user.PhoneNumber = req.PhoneNumber
	user.UpdatedBy = id.String()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, storageError("update user", err)
	}

	response := user.ToResponse()
	return &response, nil
}
