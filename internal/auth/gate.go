package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/userdeck/backend/internal/users"
)

var (
	// ErrUnknownSubject indicates the token verified but its subject no
	// longer exists in the store.
	ErrUnknownSubject = errors.New("auth: unknown subject")
	// ErrBlocked indicates the resolved identity is blocked.
	ErrBlocked = errors.New("auth: identity is blocked")
)

// TokenVerifier is the slice of the issuer the gate depends on.
type TokenVerifier interface {
	Validate(token string) (string, error)
}

// GateConfig describes the dependencies of the auth gate.
type GateConfig struct {
	Verifier TokenVerifier
	Store    users.Store
}

// Gate authorizes protected requests: it validates the bearer token,
// resolves the subject against the store, and denies blocked or vanished
// identities. The store is consulted on every call so a moderation block
// takes effect on the target's very next request.
type Gate struct {
	verifier TokenVerifier
	store    users.Store
}

// NewGate constructs the gate.
func NewGate(cfg GateConfig) (*Gate, error) {
	if cfg.Verifier == nil {
		return nil, fmt.Errorf("auth: token verifier is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("auth: store is required")
	}
	return &Gate{verifier: cfg.Verifier, store: cfg.Store}, nil
}

// Authorize turns a raw bearer token into the calling identity or a
// rejection. The rejection order is fixed: missing token, invalid token,
// unknown subject, blocked identity.
func (g *Gate) Authorize(ctx context.Context, rawToken string) (users.Identity, error) {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return users.Identity{}, ErrMissingToken
	}

	subject, err := g.verifier.Validate(token)
	if err != nil {
		return users.Identity{}, err
	}

	identity, err := g.store.FindByID(ctx, subject)
	if errors.Is(err, users.ErrNotFound) {
		return users.Identity{}, ErrUnknownSubject
	}
	if err != nil {
		return users.Identity{}, err
	}

	if identity.Blocked() {
		return users.Identity{}, ErrBlocked
	}
	return identity, nil
}
