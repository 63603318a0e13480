package users

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates no identity matches the lookup key.
	ErrNotFound = errors.New("users: identity not found")
	// ErrEmailTaken indicates the email already belongs to another identity.
	ErrEmailTaken = errors.New("users: email already registered")
)

// Store is the persistence capability the services depend on. The gorm
// implementation is the production binding; tests run the same
// implementation over an in-memory database.
type Store interface {
	// FindByEmail resolves an identity by its normalized email.
	FindByEmail(ctx context.Context, email string) (Identity, error)
	// FindByID resolves an identity by its id.
	FindByID(ctx context.Context, id string) (Identity, error)
	// Create inserts a new identity. A colliding email yields ErrEmailTaken.
	Create(ctx context.Context, identity Identity) error
	// List returns all identities ordered by most recent login first.
	List(ctx context.Context) ([]Identity, error)
	// UpdateStatus sets the status on every listed id in one statement.
	// Ids without a matching row are skipped.
	UpdateStatus(ctx context.Context, ids []string, status Status) error
	// Delete removes every listed id in one statement. Ids without a
	// matching row are skipped.
	Delete(ctx context.Context, ids []string) error
	// TouchLastLogin stamps the last successful login time for one identity.
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}
