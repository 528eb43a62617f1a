package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/eaeoz/shortcuts-app/internal/core/domain"
	"github.com/eaeoz/shortcuts-app/internal/repository"
)

const defaultSweepInterval = time.Minute

// PendingCodeStore keeps one-time codes in process memory. Records survive
// only for the process lifetime. All read-modify-write operations on a
// single key are atomic; expired records behave as absent and are removed
// on access and by a periodic sweep.
type PendingCodeStore struct {
	mu      sync.Mutex
	records map[string]domain.PendingCode
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// NewPendingCodeStore constructs an empty store and starts its expiry sweep.
func NewPendingCodeStore() *PendingCodeStore {
	s := &PendingCodeStore{
		records: make(map[string]domain.PendingCode),
		now:     time.Now,
		stop:    make(chan struct{}),
	}

	go s.sweepLoop(defaultSweepInterval)

	return s
}

// Put overwrites any existing record for the key, resetting its attempts.
func (s *PendingCodeStore) Put(_ context.Context, purpose, identifier string, record domain.PendingCode) error {
	key, err := key(purpose, identifier)
	if err != nil {
		return err
	}
	if record.ExpiresAt.IsZero() {
		return errors.New("record expiry is required")
	}

	s.mu.Lock()
	s.records[key] = record
	s.mu.Unlock()
	return nil
}

// Get returns the live record for the key or repository.ErrNotFound.
func (s *PendingCodeStore) Get(_ context.Context, purpose, identifier string) (*domain.PendingCode, error) {
	key, err := key(purpose, identifier)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if rec.Expired(s.now().UTC()) {
		delete(s.records, key)
		return nil, repository.ErrNotFound
	}

	copied := rec
	return &copied, nil
}

// IncrementAttempts atomically increments the attempt counter and returns
// the new value. Losing an increment under concurrency would let a caller
// exceed the attempt ceiling, so the whole read-modify-write holds the lock.
func (s *PendingCodeStore) IncrementAttempts(_ context.Context, purpose, identifier string) (int, error) {
	key, err := key(purpose, identifier)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return 0, repository.ErrNotFound
	}
	if rec.Expired(s.now().UTC()) {
		delete(s.records, key)
		return 0, repository.ErrNotFound
	}

	rec.Attempts++
	s.records[key] = rec
	return rec.Attempts, nil
}

// Delete removes the record, enforcing single-use semantics.
func (s *PendingCodeStore) Delete(_ context.Context, purpose, identifier string) error {
	key, err := key(purpose, identifier)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[key]; !ok {
		return repository.ErrNotFound
	}
	delete(s.records, key)
	return nil
}

// Close stops the background sweep.
func (s *PendingCodeStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

// WithClock overrides the internal clock, used in tests.
func (s *PendingCodeStore) WithClock(clock func() time.Time) *PendingCodeStore {
	if clock != nil {
		s.mu.Lock()
		s.now = clock
		s.mu.Unlock()
	}
	return s
}

func (s *PendingCodeStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *PendingCodeStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	for k, rec := range s.records {
		if rec.Expired(now) {
			delete(s.records, k)
		}
	}
}

func key(purpose, identifier string) (string, error) {
	purpose = strings.TrimSpace(purpose)
	identifier = strings.TrimSpace(identifier)
	if purpose == "" || identifier == "" {
		return "", errors.New("purpose and identifier are required")
	}
	return fmt.Sprintf("%s:%s", purpose, strings.ToLower(identifier)), nil
}
