package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/unicesmag/labcontrol/internal/models"
	appErrors "github.com/unicesmag/labcontrol/pkg/errors"
)

const (
	uniqueViolation = "23505"

	// bcrypt only hashes the first 72 bytes and refuses longer input.
	maxPasswordBytes = 72
)

type userRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error
}

// UserService handles administrator account workflows.
type UserService struct {
	repo       userRepository
	logger     *zap.Logger
	bcryptCost int
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, logger: logger, bcryptCost: bcrypt.DefaultCost}
}

// List returns every account ordered by username.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// Register creates an account. Checks run in the order the register page
// reports them; the username must be free before anything is written.
func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	switch {
	case username == "":
		return nil, &AuthError{Reason: models.ReasonEmptyUsername}
	case req.Password == "":
		return nil, &AuthError{Reason: models.ReasonEmptyPassword}
	case req.Confirmation == "":
		return nil, &AuthError{Reason: models.ReasonEmptyConfirmation}
	case req.Password != req.Confirmation:
		return nil, &AuthError{Reason: models.ReasonPasswordMismatch}
	case len(req.Password) > maxPasswordBytes:
		return nil, &AuthError{Reason: models.ReasonPasswordTooLong}
	}

	if _, err := s.repo.FindByUsername(ctx, username); err == nil {
		return nil, &AuthError{Reason: models.ReasonUsernameTaken, Err: appErrors.ErrConflict}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username uniqueness")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, &AuthError{Reason: models.ReasonUsernameTaken, Err: appErrors.ErrConflict}
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

// ResetPassword replaces the password of an existing account.
func (s *UserService) ResetPassword(ctx context.Context, id string, req models.PasswordResetRequest) error {
	if req.Password == "" {
		return &AuthError{Reason: models.ReasonEmptyPassword}
	}
	if req.Password != req.Confirmation {
		return &AuthError{Reason: models.ReasonPasswordMismatch}
	}
	if len(req.Password) > maxPasswordBytes {
		return &AuthError{Reason: models.ReasonPasswordTooLong}
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}
	return nil
}

// Delete removes an account. Unknown ids succeed.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}
	return nil
}
