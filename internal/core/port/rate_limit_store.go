package port

import (
	"context"
	"time"
)

// RateLimitStore records request attempts inside a sliding window. Consumed
// by the HTTP layer as a pre-check ahead of the credential flows.
type RateLimitStore interface {
	TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error
	CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error)
	RecordAttempt(ctx context.Context, identifier string, at time.Time) error
}
