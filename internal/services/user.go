package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/whiskeyshelf/apiserver/internal/store"
	"github.com/whiskeyshelf/apiserver/internal/validation"
	"github.com/whiskeyshelf/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
}

// RegisterInput is the payload accepted when creating an account.
type RegisterInput struct {
	Username string `json:"username" validate:"required,max=255"`
	Name     string `json:"name" validate:"max=255"`
	Password string `json:"password" validate:"required,min=5"`
}

// ProfileInput updates the caller's own account. Nil fields are left as is.
type ProfileInput struct {
	Name     *string `json:"name" validate:"omitempty,max=255"`
	Password *string `json:"password" validate:"omitempty,min=5"`
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo     UserRepository
	validate *validation.Validator
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo, validate: validation.New()}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetActive returns the user only if the account may authenticate.
func (s *UserService) GetActive(ctx context.Context, id int) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}
	if !user.IsActive {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Register creates a regular active account.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (types.User, error) {
	return s.create(ctx, in, false)
}

// CreateSuperuser creates an active account with staff and superuser flags.
func (s *UserService) CreateSuperuser(ctx context.Context, in RegisterInput) (types.User, error) {
	return s.create(ctx, in, true)
}

func (s *UserService) create(ctx context.Context, in RegisterInput, superuser bool) (types.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Validate(in); err != nil {
		return types.User{}, asValidationError(err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	return s.repo.Create(ctx, types.User{
		Username:     in.Username,
		Name:         in.Name,
		IsActive:     true,
		IsStaff:      superuser,
		IsSuperuser:  superuser,
		PasswordHash: string(hashed),
	})
}

// Authenticate checks a username and password pair.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (types.User, error) {
	user, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}
	if !user.IsActive {
		return types.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// UpdateProfile changes the name and/or password of userID.
func (s *UserService) UpdateProfile(ctx context.Context, userID int, in ProfileInput) (types.User, error) {
	if in.Name != nil {
		trimmed := strings.TrimSpace(*in.Name)
		in.Name = &trimmed
	}
	if err := s.validate.Validate(in); err != nil {
		return types.User{}, asValidationError(err)
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return types.User{}, err
	}
	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return types.User{}, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hashed)
	}
	return s.repo.Update(ctx, user)
}
