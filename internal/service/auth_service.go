package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/unicesmag/labcontrol/internal/models"
	appErrors "github.com/unicesmag/labcontrol/pkg/errors"
)

type authUserRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// AuthError carries the reason code displayed by the login, register and
// restore pages. Err optionally names the typed error behind the reason.
type AuthError struct {
	Reason models.AuthReason
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication rejected (reason %d): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication rejected (reason %d)", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ReasonOf extracts the reason code from err, or ReasonNone.
func ReasonOf(err error) models.AuthReason {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Reason
	}
	return models.ReasonNone
}

// AuthService verifies administrator credentials.
type AuthService struct {
	users  authUserRepository
	logger *zap.Logger
}

// NewAuthService constructs an AuthService.
func NewAuthService(users authUserRepository, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{users: users, logger: logger}
}

// Login returns the account matching the credentials. Unknown users and wrong
// passwords share the same reason so the page does not reveal which failed.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, &AuthError{Reason: models.ReasonEmptyUsername}
	}
	if req.Password == "" {
		return nil, &AuthError{Reason: models.ReasonEmptyPassword}
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &AuthError{Reason: models.ReasonBadCredentials, Err: appErrors.ErrInvalidCredentials}
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Info("login rejected", zap.String("username", username))
		return nil, &AuthError{Reason: models.ReasonBadCredentials, Err: appErrors.ErrInvalidCredentials}
	}
	return user, nil
}
