package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"

	"github.com/eaeoz/shortcuts-app/internal/core/domain"
	"github.com/eaeoz/shortcuts-app/internal/repository"
)

func newTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return client, server
}

func pendingRecord(code string, ttl time.Duration) domain.PendingCode {
	now := time.Now().UTC()
	return domain.PendingCode{
		Code:         code,
		Username:     "alice",
		PasswordHash: "hashed",
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}
}

func TestPendingCodeStore_PutGetRoundTrip(t *testing.T) {
	client, _ := newTestRedis(t)
	store := NewPendingCodeStore(client, "shortcuts")
	ctx := context.Background()

	if err := store.Put(ctx, domain.PurposeRegistration, "Alice@Example.com", pendingRecord("123456", time.Minute)); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	got, err := store.Get(ctx, domain.PurposeRegistration, "alice@example.com")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Code != "123456" || got.Username != "alice" || got.PasswordHash != "hashed" {
		t.Fatalf("unexpected record %+v", got)
	}
	if got.Attempts != 0 {
		t.Fatalf("attempts = %d, want 0", got.Attempts)
	}
}

func TestPendingCodeStore_PutAppliesTTL(t *testing.T) {
	client, server := newTestRedis(t)
	store := NewPendingCodeStore(client, "shortcuts")
	ctx := context.Background()

	if err := store.Put(ctx, domain.PurposeRegistration, "alice@example.com", pendingRecord("123456", time.Minute)); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	server.FastForward(2 * time.Minute)

	if _, err := store.Get(ctx, domain.PurposeRegistration, "alice@example.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("Get after TTL: got %v, want ErrNotFound", err)
	}
}

func TestPendingCodeStore_PutRejectsPastExpiry(t *testing.T) {
	client, _ := newTestRedis(t)
	store := NewPendingCodeStore(client, "shortcuts")

	record := pendingRecord("123456", -time.Minute)
	if err := store.Put(context.Background(), domain.PurposeRegistration, "alice@example.com", record); err == nil {
		t.Fatal("past expiry must be rejected")
	}
}

func TestPendingCodeStore_OverwriteResetsAttempts(t *testing.T) {
	client, _ := newTestRedis(t)
	store := NewPendingCodeStore(client, "shortcuts")
	ctx := context.Background()

	if err := store.Put(ctx, domain.PurposeRegistration, "alice@example.com", pendingRecord("111111", time.Minute)); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if _, err := store.IncrementAttempts(ctx, domain.PurposeRegistration, "alice@example.com"); err != nil {
		t.Fatalf("IncrementAttempts returned error: %v", err)
	}

	if err := store.Put(ctx, domain.PurposeRegistration, "alice@example.com", pendingRecord("222222", time.Minute)); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	got, err := store.Get(ctx, domain.PurposeRegistration, "alice@example.com")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Code != "222222" || got.Attempts != 0 {
		t.Fatalf("after overwrite: code=%q attempts=%d", got.Code, got.Attempts)
	}
}

func TestPendingCodeStore_IncrementAttempts(t *testing.T) {
	client, _ := newTestRedis(t)
	store := NewPendingCodeStore(client, "shortcuts")
	ctx := context.Background()

	if err := store.Put(ctx, domain.PurposeRegistration, "alice@example.com", pendingRecord("123456", time.Minute)); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	for want := 1; want <= 4; want++ {
		got, err := store.IncrementAttempts(ctx, domain.PurposeRegistration, "alice@example.com")
		if err != nil {
			t.Fatalf("IncrementAttempts returned error: %v", err)
		}
		if got != want {
			t.Fatalf("attempts = %d, want %d", got, want)
		}
	}

	if _, err := store.IncrementAttempts(ctx, domain.PurposeRegistration, "ghost@example.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("missing key: got %v, want ErrNotFound", err)
	}
}

func TestPendingCodeStore_IncrementAfterConsumeLeavesNoOrphan(t *testing.T) {
	client, server := newTestRedis(t)
	store := NewPendingCodeStore(client, "shortcuts")
	ctx := context.Background()

	if err := store.Put(ctx, domain.PurposeRegistration, "alice@example.com", pendingRecord("123456", time.Minute)); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	// The record is consumed between the caller's Get and the increment.
	key := "shortcuts:" + domain.PurposeRegistration + ":alice@example.com"
	if err := client.Del(ctx, key).Err(); err != nil {
		t.Fatalf("Del returned error: %v", err)
	}

	if _, err := store.IncrementAttempts(ctx, domain.PurposeRegistration, "alice@example.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("consumed record: got %v, want ErrNotFound", err)
	}
	if server.Exists(key) {
		t.Fatal("increment must not recreate a consumed record")
	}
}

func TestPendingCodeStore_DeleteSingleUse(t *testing.T) {
	client, _ := newTestRedis(t)
	store := NewPendingCodeStore(client, "shortcuts")
	ctx := context.Background()

	if err := store.Put(ctx, domain.PurposeRegistration, "alice@example.com", pendingRecord("123456", time.Minute)); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if err := store.Delete(ctx, domain.PurposeRegistration, "alice@example.com"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if err := store.Delete(ctx, domain.PurposeRegistration, "alice@example.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("second Delete: got %v, want ErrNotFound", err)
	}
}

func TestPendingCodeStore_PurposesAreIsolated(t *testing.T) {
	client, _ := newTestRedis(t)
	store := NewPendingCodeStore(client, "shortcuts")
	ctx := context.Background()

	if err := store.Put(ctx, domain.PurposeRegistration, "alice@example.com", pendingRecord("123456", time.Minute)); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	if _, err := store.Get(ctx, domain.PurposePasswordReset, "alice@example.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("cross-purpose read: got %v, want ErrNotFound", err)
	}
}
