package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/eaeoz/shortcuts-app/internal/core/domain"
	"github.com/eaeoz/shortcuts-app/internal/repository"
)

const (
	defaultPendingPrefix = "pending"

	fieldCode         = "code"
	fieldUsername     = "username"
	fieldPasswordHash = "password_hash"
	fieldCreatedAt    = "created_at"
	fieldExpiresAt    = "expires_at"
	fieldAttempts     = "attempts"
)

// PendingCodeStore persists one-time codes in Redis. Redis TTLs back the
// expiry sweep and HINCRBY provides the per-key atomic attempt counter.
type PendingCodeStore struct {
	client *red.Client
	prefix string
	now    func() time.Time
}

// NewPendingCodeStore constructs a store with the provided client and key prefix.
func NewPendingCodeStore(client *red.Client, keyPrefix string) *PendingCodeStore {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultPendingPrefix
	}

	return &PendingCodeStore{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

// Put overwrites any existing record for the key and applies the TTL.
func (s *PendingCodeStore) Put(ctx context.Context, purpose, identifier string, record domain.PendingCode) error {
	key, err := s.key(purpose, identifier)
	if err != nil {
		return err
	}

	now := record.CreatedAt
	if now.IsZero() {
		now = s.now().UTC()
	}
	ttl := time.Until(record.ExpiresAt)
	if ttl <= 0 {
		return errors.New("record expiry must be in the future")
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, map[string]any{
		fieldCode:         record.Code,
		fieldUsername:     record.Username,
		fieldPasswordHash: record.PasswordHash,
		fieldCreatedAt:    strconv.FormatInt(now.Unix(), 10),
		fieldExpiresAt:    strconv.FormatInt(record.ExpiresAt.Unix(), 10),
		fieldAttempts:     strconv.Itoa(record.Attempts),
	})
	pipe.Expire(ctx, key, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis store pending code: %w", err)
	}

	return nil
}

// Get retrieves the live record for the key or repository.ErrNotFound.
func (s *PendingCodeStore) Get(ctx context.Context, purpose, identifier string) (*domain.PendingCode, error) {
	key, err := s.key(purpose, identifier)
	if err != nil {
		return nil, err
	}

	values, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall pending code: %w", err)
	}
	if len(values) == 0 {
		return nil, repository.ErrNotFound
	}

	code := strings.TrimSpace(values[fieldCode])
	if code == "" {
		return nil, repository.ErrNotFound
	}

	createdAt, err := parseUnix(values[fieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	expiresAt, err := parseUnix(values[fieldExpiresAt])
	if err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}

	attempts := 0
	if raw := values[fieldAttempts]; raw != "" {
		if v, convErr := strconv.Atoi(raw); convErr == nil {
			attempts = v
		}
	}

	rec := domain.PendingCode{
		Code:         code,
		Username:     values[fieldUsername],
		PasswordHash: values[fieldPasswordHash],
		Attempts:     attempts,
		CreatedAt:    createdAt,
		ExpiresAt:    expiresAt,
	}

	if rec.Expired(s.now().UTC()) {
		_ = s.client.Del(ctx, key).Err()
		return nil, repository.ErrNotFound
	}

	return &rec, nil
}

// incrementAttemptsScript bumps the counter only while the record is still
// live. A bare HINCRBY would recreate a consumed or expired hash as a
// TTL-less orphan holding nothing but the counter.
var incrementAttemptsScript = red.NewScript(`
if redis.call("HEXISTS", KEYS[1], ARGV[1]) == 0 then
	return -1
end
return redis.call("HINCRBY", KEYS[1], ARGV[2], 1)`)

// IncrementAttempts increments the attempt counter and returns the new value.
func (s *PendingCodeStore) IncrementAttempts(ctx context.Context, purpose, identifier string) (int, error) {
	key, err := s.key(purpose, identifier)
	if err != nil {
		return 0, err
	}

	count, err := incrementAttemptsScript.Run(ctx, s.client, []string{key}, fieldCode, fieldAttempts).Int()
	if err != nil {
		return 0, fmt.Errorf("redis increment pending attempts: %w", err)
	}
	if count < 0 {
		return 0, repository.ErrNotFound
	}

	return count, nil
}

// Delete removes the record, enforcing single-use semantics.
func (s *PendingCodeStore) Delete(ctx context.Context, purpose, identifier string) error {
	key, err := s.key(purpose, identifier)
	if err != nil {
		return err
	}

	deleted, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis delete pending code: %w", err)
	}
	if deleted == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// WithClock overrides the internal clock, used in tests.
func (s *PendingCodeStore) WithClock(clock func() time.Time) *PendingCodeStore {
	if clock != nil {
		s.now = clock
	}
	return s
}

func (s *PendingCodeStore) key(purpose, identifier string) (string, error) {
	purpose = strings.TrimSpace(purpose)
	identifier = strings.TrimSpace(identifier)
	if purpose == "" || identifier == "" {
		return "", errors.New("purpose and identifier are required")
	}
	return fmt.Sprintf("%s:%s:%s", s.prefix, purpose, strings.ToLower(identifier)), nil
}

func parseUnix(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, errors.New("timestamp is empty")
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(v, 0).UTC(), nil
}
