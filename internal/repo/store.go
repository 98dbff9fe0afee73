package repo

import (
	"context"
	"errors"
	"strings"

	"formcraft/internal/domain"
)

// Store is one complete dataset: users, forms and submissions.
type Store interface {
	domain.UserRepository
	domain.FormRepository
	domain.SubmissionRepository

	Name() string
	Ping(ctx context.Context) error
	// Migrate prepares tables/indexes; safe to run repeatedly.
	Migrate(ctx context.Context) error
	Close(ctx context.Context) error
}

// isOutcome reports errors that are answers from a healthy store rather
// than store failures. They never trigger fallback.
func isOutcome(err error) bool {
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrConflict) ||
		errors.Is(err, domain.ErrValidation)
}

func isDupKey(err error) bool {
	// 不依赖 gorm.ErrDuplicatedKey，避免版本差异
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation") ||
		strings.Contains(msg, "duplicate key")
}
