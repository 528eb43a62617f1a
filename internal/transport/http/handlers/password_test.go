package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eaeoz/shortcuts-app/internal/core/domain"
	"github.com/eaeoz/shortcuts-app/internal/infra/config"
	"github.com/eaeoz/shortcuts-app/internal/infra/mailer"
	"github.com/eaeoz/shortcuts-app/internal/infra/security"
	memoryrepo "github.com/eaeoz/shortcuts-app/internal/repository/memory"
	"github.com/eaeoz/shortcuts-app/internal/usecase"
)

type resetHandlerFixture struct {
	engine *gin.Engine
	users  *stubUserRepository
	codes  *memoryrepo.PendingCodeStore
}

func newResetHandlerFixture(t *testing.T) resetHandlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := security.HashPassword("oldpass1")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	users := &stubUserRepository{users: map[string]*domain.User{
		"user-1": {
			ID:           "user-1",
			Username:     "alice",
			Email:        "alice@example.com",
			PasswordHash: hash,
			Role:         domain.RoleUser,
			IsVerified:   true,
		},
	}}

	codes := memoryrepo.NewPendingCodeStore()
	t.Cleanup(codes.Close)

	reset := usecase.NewPasswordResetService(users, codes, mailer.NewCodeMailer(nil, zap.NewNop()), config.VerificationSettings{
		CodeTTL:           15 * time.Minute,
		MaxAttempts:       4,
		ResetCodeDigits:   4,
		MinPasswordLength: 6,
		MinUsernameLength: 3,
	}, zap.NewNop())

	handler := NewPasswordResetHandler(reset, zap.NewNop())

	engine := gin.New()
	handler.RegisterRoutes(engine.Group("/api/password-reset"))

	return resetHandlerFixture{engine: engine, users: users, codes: codes}
}

func (f resetHandlerFixture) post(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func TestRequestResetResponseHidesAccountExistence(t *testing.T) {
	f := newResetHandlerFixture(t)

	known := f.post(t, "/api/password-reset/request-reset", `{"email":"alice@example.com"}`)
	unknown := f.post(t, "/api/password-reset/request-reset", `{"email":"nobody@example.com"}`)

	if known.Code != http.StatusOK || unknown.Code != http.StatusOK {
		t.Fatalf("status known=%d unknown=%d, want 200/200", known.Code, unknown.Code)
	}
	if known.Body.String() != unknown.Body.String() {
		t.Fatalf("bodies differ:\nknown:   %s\nunknown: %s", known.Body.String(), unknown.Body.String())
	}
}

func TestVerifyResetReplacesPasswordOverHTTP(t *testing.T) {
	f := newResetHandlerFixture(t)

	rec := f.post(t, "/api/password-reset/request-reset", `{"email":"alice@example.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("request-reset status = %d, want 200", rec.Code)
	}

	record, err := f.codes.Get(context.Background(), domain.PurposePasswordReset, "alice@example.com")
	if err != nil {
		t.Fatalf("staged record: %v", err)
	}

	rec = f.post(t, "/api/password-reset/verify-reset",
		`{"email":"alice@example.com","code":"`+record.Code+`","newPassword":"newpass1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify-reset status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	if ok, _ := security.VerifyPassword("newpass1", f.users.users["user-1"].PasswordHash); !ok {
		t.Fatal("new password does not verify")
	}
}

func TestVerifyResetWrongCodeReportsRemainingAttempts(t *testing.T) {
	f := newResetHandlerFixture(t)

	rec := f.post(t, "/api/password-reset/request-reset", `{"email":"alice@example.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("request-reset status = %d, want 200", rec.Code)
	}

	record, err := f.codes.Get(context.Background(), domain.PurposePasswordReset, "alice@example.com")
	if err != nil {
		t.Fatalf("staged record: %v", err)
	}
	wrong := "0000"
	if wrong == record.Code {
		wrong = "1111"
	}

	rec = f.post(t, "/api/password-reset/verify-reset",
		`{"email":"alice@example.com","code":"`+wrong+`","newPassword":"newpass1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("verify-reset status = %d, want 400", rec.Code)
	}

	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.AttemptsRemaining == nil || *body.AttemptsRemaining != 3 {
		t.Fatalf("attemptsRemaining = %v, want 3", body.AttemptsRemaining)
	}
}
