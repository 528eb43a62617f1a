package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/eaeoz/shortcuts-app/internal/core/domain"
	"github.com/eaeoz/shortcuts-app/internal/repository"
)

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *UserRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock, NewUserRepository(mock)
}

func TestUserRepository_CreateLowercasesEmail(t *testing.T) {
	mock, repo := newMockRepo(t)

	createdAt := time.Now().UTC()
	user := domain.User{
		ID:           "user-1",
		Username:     "alice",
		Email:        "Alice@Example.com",
		PasswordHash: "argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		Role:         domain.RoleUser,
		IsVerified:   true,
		CreatedAt:    createdAt,
	}

	mock.ExpectExec(`INSERT INTO shortcuts\.users`).
		WithArgs(
			user.ID,
			user.Username,
			"alice@example.com",
			user.PasswordHash,
			user.Role,
			user.IsVerified,
			(*string)(nil),
			(*string)(nil),
			(*string)(nil),
			user.CreatedAt,
			(*time.Time)(nil),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_GetByEmail(t *testing.T) {
	mock, repo := newMockRepo(t)

	createdAt := time.Now().UTC()
	rows := pgxmock.NewRows([]string{
		"id", "username", "email", "password_hash", "role", "is_verified",
		"google_id", "auth_provider", "avatar", "created_at", "last_login",
	}).AddRow(
		"user-1", "alice", "alice@example.com", "hash", domain.RoleUser, true,
		nil, nil, nil, createdAt, nil,
	)

	mock.ExpectQuery(`SELECT .+ FROM shortcuts\.users WHERE email = \$1`).
		WithArgs("alice@example.com").
		WillReturnRows(rows)

	user, err := repo.GetByEmail(context.Background(), " Alice@Example.com ")
	if err != nil {
		t.Fatalf("GetByEmail returned error: %v", err)
	}
	if user.ID != "user-1" || user.Username != "alice" {
		t.Fatalf("unexpected user %+v", user)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_GetByEmailNotFound(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectQuery(`SELECT .+ FROM shortcuts\.users`).
		WithArgs("ghost@example.com").
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.GetByEmail(context.Background(), "ghost@example.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("got %v, want repository.ErrNotFound", err)
	}
}

func TestUserRepository_UpdatePasswordMissingRow(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectExec(`UPDATE shortcuts\.users SET password_hash = \$1`).
		WithArgs("newhash", "ghost").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.UpdatePassword(context.Background(), "ghost", "newhash"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("got %v, want repository.ErrNotFound", err)
	}
}

func TestUserRepository_LinkProviderKeepsAvatarWhenNil(t *testing.T) {
	mock, repo := newMockRepo(t)

	at := time.Now().UTC()
	mock.ExpectExec(`UPDATE shortcuts\.users SET google_id = \$1, auth_provider = \$2, is_verified = \$3, last_login = \$4 WHERE id = \$5`).
		WithArgs("google-123", "google", true, at, "user-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.LinkProvider(context.Background(), "user-1", "google-123", "google", nil, true, at); err != nil {
		t.Fatalf("LinkProvider returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
