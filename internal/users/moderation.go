package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

var (
	// ErrInvalidAction indicates an unrecognized moderation action string.
	ErrInvalidAction = errors.New("users: invalid moderation action")
	// ErrNoTargets indicates an empty target id set.
	ErrNoTargets = errors.New("users: no target ids provided")
)

// Action is a bulk moderation verb applied to a set of identities.
type Action string

const (
	ActionBlock   Action = "block"
	ActionUnblock Action = "unblock"
	ActionDelete  Action = "delete"
)

// ParseAction maps a wire action string to an Action. Unknown values fail
// before any mutation is attempted.
func ParseAction(value string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(value))) {
	case ActionBlock:
		return ActionBlock, nil
	case ActionUnblock:
		return ActionUnblock, nil
	case ActionDelete:
		return ActionDelete, nil
	default:
		return "", ErrInvalidAction
	}
}

// ModerationConfig describes the dependencies of the moderation service.
type ModerationConfig struct {
	Store  Store
	Logger *zap.Logger
}

// Moderation applies one action across a batch of identities as a single
// set-oriented store operation.
type Moderation struct {
	store  Store
	logger *zap.Logger
}

// NewModeration constructs the moderation service.
func NewModeration(cfg ModerationConfig) (*Moderation, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("users: store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Moderation{store: cfg.Store, logger: logger}, nil
}

// Apply runs one action over every id in the set. Ids without a matching
// row are skipped, which makes block/unblock idempotent and delete safe to
// repeat. Validation happens before the store is touched.
func (m *Moderation) Apply(ctx context.Context, ids []string, action Action) error {
	if len(ids) == 0 {
		return ErrNoTargets
	}

	var err error
	switch action {
	case ActionBlock:
		err = m.store.UpdateStatus(ctx, ids, StatusBlocked)
	case ActionUnblock:
		err = m.store.UpdateStatus(ctx, ids, StatusActive)
	case ActionDelete:
		err = m.store.Delete(ctx, ids)
	default:
		return ErrInvalidAction
	}
	if err != nil {
		return err
	}

	m.logger.Info("moderation action applied",
		zap.String("action", string(action)),
		zap.Int("targets", len(ids)))
	return nil
}
