package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/eaeoz/shortcuts-app/internal/core/domain"
	"github.com/eaeoz/shortcuts-app/internal/core/port"
	"github.com/eaeoz/shortcuts-app/internal/repository"
)

// fakeUserRepository is a map-backed stand-in for the Postgres repository.
// Error fields let individual tests inject failures.
type fakeUserRepository struct {
	mu    sync.Mutex
	users map[string]*domain.User

	createErr        error
	createCalls      int
	updatePassCalls  int
	lastPasswordHash string
	lastLoginCalls   int
	linkCalls        int
}

func newFakeUserRepository() *fakeUserRepository {
	return &fakeUserRepository{users: make(map[string]*domain.User)}
}

func (f *fakeUserRepository) add(user domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := user
	f.users[user.ID] = &u
}

func (f *fakeUserRepository) remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
}

func (f *fakeUserRepository) Create(_ context.Context, user domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	u := user
	f.users[user.ID] = &u
	return nil
}

func (f *fakeUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			copy := *u
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepository) GetByUsernameOrEmail(_ context.Context, username, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if (username != "" && u.Username == username) || (email != "" && strings.EqualFold(u.Email, email)) {
			copy := *u
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepository) GetByGoogleID(_ context.Context, googleID string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.GoogleID != nil && *u.GoogleID == googleID {
			copy := *u
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepository) UpdatePassword(_ context.Context, id string, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updatePassCalls++
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = passwordHash
	f.lastPasswordHash = passwordHash
	return nil
}

func (f *fakeUserRepository) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLoginCalls++
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.LastLogin = &at
	return nil
}

func (f *fakeUserRepository) LinkProvider(_ context.Context, id string, googleID, provider string, avatar *string, verified bool, lastLogin time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.linkCalls++
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.GoogleID = &googleID
	u.AuthProvider = &provider
	if avatar != nil {
		u.Avatar = avatar
	}
	u.IsVerified = verified
	u.LastLogin = &lastLogin
	return nil
}

// captureSender records outbound messages so tests can observe dispatch
// without real SMTP.
type captureSender struct {
	mu       sync.Mutex
	messages []port.EmailMessage
}

func (s *captureSender) SendEmail(_ context.Context, msg port.EmailMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil
}

func (s *captureSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}
