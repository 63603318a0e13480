package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/userdeck/backend/internal/auth"
	"github.com/userdeck/backend/internal/users"
	"go.uber.org/zap"
)

const defaultPasswordMinLength = 6

var (
	// ErrInvalidCredentials covers both unknown email and wrong password so
	// the response cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("accounts: invalid credentials")
	// ErrBlocked indicates the account exists but is blocked from logging in.
	ErrBlocked = errors.New("accounts: identity is blocked")
)

// ValidationError reports a registration input that failed shape checks.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("accounts: validation failed: %s", e.Reason)
}

// TokenIssuer is the slice of the auth issuer the service depends on.
type TokenIssuer interface {
	Issue(subject string) (token string, expiresIn int64, err error)
}

// ServiceConfig describes the dependencies for registration and login.
type ServiceConfig struct {
	Store             users.Store
	Tokens            TokenIssuer
	Clock             func() time.Time
	PasswordMinLength int
	Logger            *zap.Logger
}

// Service implements the account state transitions: registration creates an
// active identity with a hashed credential, login verifies the credential
// and issues a token.
type Service struct {
	store             users.Store
	tokens            TokenIssuer
	clock             func() time.Time
	passwordMinLength int
	logger            *zap.Logger
}

// NewService constructs the account service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("accounts: store is required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("accounts: token issuer is required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	minLength := cfg.PasswordMinLength
	if minLength <= 0 {
		minLength = defaultPasswordMinLength
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:             cfg.Store,
		tokens:            cfg.Tokens,
		clock:             clock,
		passwordMinLength: minLength,
		logger:            logger,
	}, nil
}

// Register creates a new active identity. No token is issued; the caller
// logs in separately.
func (s *Service) Register(ctx context.Context, name, email, password string) error {
	name = strings.TrimSpace(name)
	email = users.NormalizeEmail(email)

	if name == "" {
		return &ValidationError{Reason: "name must not be empty"}
	}
	if email == "" {
		return &ValidationError{Reason: "email must not be empty"}
	}
	if !strings.Contains(email, "@") {
		return &ValidationError{Reason: "email must contain @"}
	}
	if len(password) < s.passwordMinLength {
		return &ValidationError{Reason: fmt.Sprintf("password must be at least %d characters", s.passwordMinLength)}
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return err
	}

	identity := users.Identity{
		ID:           id.String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Status:       users.StatusActive,
	}
	if err := s.store.Create(ctx, identity); err != nil {
		return err
	}

	s.logger.Info("identity registered", zap.String("user_id", identity.ID))
	return nil
}

// Login verifies the credential and returns a signed token with its
// lifetime in seconds. The check order is deliberate: existence first
// (enumeration-safe), blocked second, password last, so a blocked account
// with a correct password still reads as blocked rather than as a bad
// password.
func (s *Service) Login(ctx context.Context, email, password string) (string, int64, error) {
	identity, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, users.ErrNotFound) {
		return "", 0, ErrInvalidCredentials
	}
	if err != nil {
		return "", 0, err
	}

	if identity.Blocked() {
		return "", 0, ErrBlocked
	}

	if err := auth.ComparePasswordAndHash(password, identity.PasswordHash); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return "", 0, ErrInvalidCredentials
		}
		return "", 0, err
	}

	// Best effort: a failed stamp must not fail the login.
	if err := s.store.TouchLastLogin(ctx, identity.ID, s.clock()); err != nil {
		s.logger.Warn("failed to stamp last login",
			zap.String("user_id", identity.ID),
			zap.Error(err))
	}

	token, expiresIn, err := s.tokens.Issue(identity.ID)
	if err != nil {
		return "", 0, err
	}
	return token, expiresIn, nil
}
