package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// GormStore persists identities through a gorm database handle.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps the provided database handle.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("users: database handle is required")
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) FindByEmail(ctx context.Context, email string) (Identity, error) {
	var identity Identity
	err := s.db.WithContext(ctx).
		Where("email = ?", NormalizeEmail(email)).
		First(&identity).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Identity{}, ErrNotFound
	}
	if err != nil {
		return Identity{}, err
	}
	return identity, nil
}

func (s *GormStore) FindByID(ctx context.Context, id string) (Identity, error) {
	var identity Identity
	err := s.db.WithContext(ctx).
		Where("id = ?", id).
		First(&identity).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Identity{}, ErrNotFound
	}
	if err != nil {
		return Identity{}, err
	}
	return identity, nil
}

func (s *GormStore) Create(ctx context.Context, identity Identity) error {
	identity.Email = NormalizeEmail(identity.Email)
	err := s.db.WithContext(ctx).Create(&identity).Error
	if err != nil && isUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

func (s *GormStore) List(ctx context.Context) ([]Identity, error) {
	var identities []Identity
	err := s.db.WithContext(ctx).
		Order("last_login_at IS NULL, last_login_at DESC").
		Find(&identities).
		Error
	if err != nil {
		return nil, err
	}
	return identities, nil
}

func (s *GormStore) UpdateStatus(ctx context.Context, ids []string, status Status) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&Identity{}).
		Where("id IN ?", ids).
		Update("status", status).
		Error
}

func (s *GormStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&Identity{}).
		Error
}

func (s *GormStore) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&Identity{}).
		Where("id = ?", id).
		Update("last_login_at", at.UTC()).
		Error
}

// isUniqueViolation matches the sqlite and generic gorm duplicate-key
// signals without binding to one driver's error type.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint") ||
		strings.Contains(message, "duplicate")
}
