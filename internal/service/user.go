package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/notebook/internal/apperror"
	"github.com/sakif/notebook/internal/model"
	"github.com/sakif/notebook/internal/repository"
)

const (
	MaxUsernameLength = 80
	MaxEmailLength    = 120
)

// UserService handles business logic for users.
type UserService struct {
	repo   repository.UserRepository
	logger *slog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(repo repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{repo: repo, logger: logger}
}

// Create validates and saves a user. A taken username or email comes back
// as an apperror.ErrConflict error.
func (s *UserService) Create(ctx context.Context, username, email string) (*model.User, error) {
	user := &model.User{
		Username: strings.TrimSpace(username),
		Email:    strings.TrimSpace(email),
	}
	if err := validateUser(user); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, s.writeError("create", user, err)
	}

	s.logger.Info("user created",
		slog.Int64("id", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if id <= 0 {
		return nil, apperror.ValidationFailed("id", "user ID must be a positive integer")
	}
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) List(ctx context.Context, limit, offset int) ([]model.User, error) {
	users, err := s.repo.List(ctx, clampPage(limit, offset))
	if err != nil {
		s.logger.Error("failed to list users", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// Update applies a partial update using fetch-then-update.
func (s *UserService) Update(ctx context.Context, id int64, patch model.UserPatch) (*model.User, error) {
	if id <= 0 {
		return nil, apperror.ValidationFailed("id", "user ID must be a positive integer")
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	patch.Apply(user)
	user.Username = strings.TrimSpace(user.Username)
	user.Email = strings.TrimSpace(user.Email)
	if err := validateUser(user); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, s.writeError("update", user, err)
	}

	s.logger.Info("user updated", slog.Int64("id", user.ID))
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return apperror.ValidationFailed("id", "user ID must be a positive integer")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", slog.Int64("id", id))
	return nil
}

// writeError logs real failures and passes conflicts through untouched.
func (s *UserService) writeError(op string, user *model.User, err error) error {
	if errors.Is(err, apperror.ErrConflict) {
		s.logger.Info("user "+op+" rejected",
			slog.String("username", user.Username),
			slog.String("reason", err.Error()),
		)
		return err
	}
	s.logger.Error("failed to "+op+" user",
		slog.String("username", user.Username),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("%s user: %w", op, err)
}

func validateUser(u *model.User) error {
	switch {
	case u.Username == "":
		return apperror.ValidationFailed("username", "username is required")
	case len(u.Username) > MaxUsernameLength:
		return apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or less", MaxUsernameLength))
	case u.Email == "":
		return apperror.ValidationFailed("email", "email is required")
	case len(u.Email) > MaxEmailLength:
		return apperror.ValidationFailed("email",
			fmt.Sprintf("email must be %d characters or less", MaxEmailLength))
	case !strings.Contains(u.Email, "@"):
		return apperror.ValidationFailed("email", "email must contain @")
	}
	return nil
}
