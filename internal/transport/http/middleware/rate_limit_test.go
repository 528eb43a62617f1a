package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type memoryRateLimitStore struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
}

func newMemoryRateLimitStore() *memoryRateLimitStore {
	return &memoryRateLimitStore{attempts: make(map[string][]time.Time)}
}

func (s *memoryRateLimitStore) TrimWindow(_ context.Context, identifier string, window time.Duration, reference time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := reference.Add(-window)
	kept := s.attempts[identifier][:0]
	for _, at := range s.attempts[identifier] {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	s.attempts[identifier] = kept
	return nil
}

func (s *memoryRateLimitStore) CountAttempts(_ context.Context, identifier string, window time.Duration, reference time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := reference.Add(-window)
	count := 0
	for _, at := range s.attempts[identifier] {
		if at.After(cutoff) {
			count++
		}
	}
	return count, nil
}

func (s *memoryRateLimitStore) RecordAttempt(_ context.Context, identifier string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[identifier] = append(s.attempts[identifier], at)
	return nil
}

func newLimitedEngine(limiter *RateLimiter, rule RateLimitRule) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.POST("/limited", limiter.RateLimit(rule), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return engine
}

func hit(engine *gin.Engine) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/limited", nil)
	req.RemoteAddr = "198.51.100.7:1234"
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitBlocksAfterCeiling(t *testing.T) {
	limiter := NewRateLimiter(newMemoryRateLimitStore(), zap.NewNop())
	engine := newLimitedEngine(limiter, RateLimitRule{
		Name:       "test",
		Limit:      3,
		Window:     time.Minute,
		Identifier: ClientIPIdentifier(),
	})

	for i := 0; i < 3; i++ {
		if rec := hit(engine); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}

	rec := hit(engine)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("Retry-After header missing on 429")
	}
}

func TestRateLimitWindowSlides(t *testing.T) {
	store := newMemoryRateLimitStore()
	limiter := NewRateLimiter(store, zap.NewNop())

	base := time.Now()
	limiter.WithClock(func() time.Time { return base })

	engine := newLimitedEngine(limiter, RateLimitRule{
		Name:       "test",
		Limit:      1,
		Window:     time.Minute,
		Identifier: ClientIPIdentifier(),
	})

	if rec := hit(engine); rec.Code != http.StatusOK {
		t.Fatalf("first request: status = %d, want 200", rec.Code)
	}
	if rec := hit(engine); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status = %d, want 429", rec.Code)
	}

	limiter.WithClock(func() time.Time { return base.Add(2 * time.Minute) })
	if rec := hit(engine); rec.Code != http.StatusOK {
		t.Fatalf("after window: status = %d, want 200", rec.Code)
	}
}

func TestRateLimitNilStoreAllowsAll(t *testing.T) {
	limiter := NewRateLimiter(nil, zap.NewNop())
	engine := newLimitedEngine(limiter, RateLimitRule{
		Name:       "test",
		Limit:      1,
		Window:     time.Minute,
		Identifier: ClientIPIdentifier(),
	})

	for i := 0; i < 5; i++ {
		if rec := hit(engine); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}
}
