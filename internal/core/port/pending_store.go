package port

import (
	"context"

	"github.com/eaeoz/shortcuts-app/internal/core/domain"
)

// PendingCodeStore holds short-lived one-time codes keyed by purpose and
// identifier. Put overwrites any existing record for the same key. Expired
// records behave as absent. Attempt-counter increments must be atomic with
// respect to concurrent requests for the same key; there is no ordering
// guarantee across different keys.
type PendingCodeStore interface {
	Put(ctx context.Context, purpose, identifier string, record domain.PendingCode) error
	Get(ctx context.Context, purpose, identifier string) (*domain.PendingCode, error)
	IncrementAttempts(ctx context.Context, purpose, identifier string) (int, error)
	Delete(ctx context.Context, purpose, identifier string) error
}
