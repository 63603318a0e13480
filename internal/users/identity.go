package users

import (
	"strings"
	"time"
)

// Status enumerates the moderation state of an identity.
type Status string

const (
	StatusActive  Status = "active"
	StatusBlocked Status = "blocked"
)

// Identity is a single user account row. The password hash is written at
// registration and only ever compared against, never surfaced to callers.
type Identity struct {
	ID           string     `gorm:"column:id;primaryKey;size:190;not null"`
	Name         string     `gorm:"column:name;size:320;not null"`
	Email        string     `gorm:"column:email;size:320;not null;uniqueIndex"`
	PasswordHash string     `gorm:"column:password_hash;size:190;not null"`
	Status       Status     `gorm:"column:status;size:32;not null;default:active"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName exposes the table backing user identities.
func (Identity) TableName() string {
	return "users"
}

// Blocked reports whether the identity is denied access.
func (i Identity) Blocked() bool {
	return i.Status == StatusBlocked
}

// NormalizeEmail canonicalizes an email for lookup and storage.
func NormalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
