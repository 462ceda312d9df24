package services

import (
	"context"
	"errors"

	"biblio-reserve/internal/adapters/persistence/models"
	"biblio-reserve/internal/adapters/persistence/repositories"
	"biblio-reserve/internal/pkg/password"

	"gorm.io/gorm"
)

// User service errors
var (
	ErrUserNotFoundSvc    = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrOldPasswordWrong   = errors.New("old password is incorrect")
	ErrCannotDeleteSelf   = errors.New("cannot delete your own account")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

// UserService handles user management business logic
type UserService struct {
	userRepo        repositories.UserRepository
	reservationRepo *repositories.ReservationRepository
}

// NewUserService creates a new user service
func NewUserService(userRepo repositories.UserRepository, reservationRepo *repositories.ReservationRepository) *UserService {
	return &UserService{
		userRepo:        userRepo,
		reservationRepo: reservationRepo,
	}
}

// CreateUserInput represents create user input
type CreateUserInput struct {
	Name        string   `json:"name" validate:"required"`
	Email       string   `json:"email" validate:"required,email"`
	Password    string   `json:"password" validate:"required,min=8"`
	Permissions []string `json:"permissions,omitempty"`
}

// Create creates a new active user with a hashed credential
func (s *UserService) Create(ctx context.Context, input *CreateUserInput) (*models.UserResponse, error) {
	exists, err := s.userRepo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailAlreadyExists
	}

	if !password.ValidatePassword(input.Password) {
		return nil, ErrWeakPassword
	}

	hashedPassword, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:        input.Name,
		Email:       input.Email,
		Password:    hashedPassword,
		Permissions: models.PermissionList(input.Permissions),
		IsActive:    true,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user.ToResponse(), nil
}

// Get gets a user by ID with their reservation history attached
func (s *UserService) Get(ctx context.Context, id uint, includeInactive bool) (*models.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, id, includeInactive)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFoundSvc
		}
		return nil, err
	}

	response := user.ToResponse()
	if err := s.attachHistory(ctx, response); err != nil {
		return nil, err
	}
	return response, nil
}

// ListUsersInput represents list users input
type ListUsersInput struct {
	Page            int
	Limit           int
	IncludeInactive bool
}

// ListUsersOutput represents list users output
type ListUsersOutput struct {
	Users      []*models.UserResponse `json:"users"`
	Total      int64                  `json:"total"`
	Page       int                    `json:"page"`
	Limit      int                    `json:"limit"`
	TotalPages int                    `json:"total_pages"`
}

// List lists users with pagination
func (s *UserService) List(ctx context.Context, input *ListUsersInput) (*ListUsersOutput, error) {
	if input.Page < 1 {
		input.Page = 1
	}
	if input.Limit < 1 {
		input.Limit = 10
	}
	if input.Limit > 100 {
		input.Limit = 100
	}

	offset := (input.Page - 1) * input.Limit

	users, total, err := s.userRepo.List(ctx, input.IncludeInactive, offset, input.Limit)
	if err != nil {
		return nil, err
	}

	responses := make([]*models.UserResponse, len(users))
	for i, user := range users {
		responses[i] = user.ToResponse()
		if err := s.attachHistory(ctx, responses[i]); err != nil {
			return nil, err
		}
	}

	totalPages := int(total) / input.Limit
	if int(total)%input.Limit > 0 {
		totalPages++
	}

	return &ListUsersOutput{
		Users:      responses,
		Total:      total,
		Page:       input.Page,
		Limit:      input.Limit,
		TotalPages: totalPages,
	}, nil
}

// UpdateUserInput represents update user input
type UpdateUserInput struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

// Update updates an active user's profile fields
func (s *UserService) Update(ctx context.Context, id uint, input *UpdateUserInput) (*models.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, id, false)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFoundSvc
		}
		return nil, err
	}

	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.Email != nil && *input.Email != user.Email {
		exists, err := s.userRepo.ExistsByEmail(ctx, *input.Email)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrEmailAlreadyExists
		}
		user.Email = *input.Email
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	response := user.ToResponse()
	if err := s.attachHistory(ctx, response); err != nil {
		return nil, err
	}
	return response, nil
}

// SetPermissions replaces a user's permission set
func (s *UserService) SetPermissions(ctx context.Context, id uint, permissions []string) (*models.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, id, false)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFoundSvc
		}
		return nil, err
	}

	user.Permissions = models.PermissionList(permissions)
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user.ToResponse(), nil
}

// SoftDelete marks an active user inactive
func (s *UserService) SoftDelete(ctx context.Context, id uint, callerID uint) error {
	if id == callerID {
		return ErrCannotDeleteSelf
	}

	affected, err := s.userRepo.SoftDelete(ctx, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFoundSvc
	}
	return nil
}

// ChangePasswordInput represents change password input
type ChangePasswordInput struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangePassword changes user's password
func (s *UserService) ChangePassword(ctx context.Context, userID uint, input *ChangePasswordInput) error {
	user, err := s.userRepo.GetByID(ctx, userID, false)
	if err != nil {
		return ErrUserNotFoundSvc
	}

	if !password.Verify(input.OldPassword, user.Password) {
		return ErrOldPasswordWrong
	}

	if !password.ValidatePassword(input.NewPassword) {
		return ErrWeakPassword
	}

	hashedPassword, err := password.Hash(input.NewPassword)
	if err != nil {
		return err
	}

	user.Password = hashedPassword
	return s.userRepo.Update(ctx, user)
}

// attachHistory loads the user's active history entries into the response
func (s *UserService) attachHistory(ctx context.Context, response *models.UserResponse) error {
	snapshots, err := s.reservationRepo.HistoryByOwner(ctx, models.OwnerUser, response.ID)
	if err != nil {
		return err
	}

	for _, snapshot := range snapshots {
		response.ReservationHistory = append(response.ReservationHistory, snapshot.ToResponse())
	}
	return nil
}
