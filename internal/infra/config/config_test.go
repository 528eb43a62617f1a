package config

import (
	"testing"
	"time"
)

func TestLoadRequiresSessionSecret(t *testing.T) {
	if _, err := Load(); err == nil {
		t.Fatal("missing session secret must fail")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SHORTCUTS_SESSION_SECRET", "unit-test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.App.Port != 5000 {
		t.Fatalf("app port = %d, want 5000", cfg.App.Port)
	}
	if cfg.Verification.CodeTTL != 15*time.Minute {
		t.Fatalf("code ttl = %v, want 15m", cfg.Verification.CodeTTL)
	}
	if cfg.Verification.MaxAttempts != 4 {
		t.Fatalf("max attempts = %d, want 4", cfg.Verification.MaxAttempts)
	}
	if cfg.Verification.RegistrationCodeDigits != 6 || cfg.Verification.ResetCodeDigits != 4 {
		t.Fatalf("code digits = %d/%d, want 6/4",
			cfg.Verification.RegistrationCodeDigits, cfg.Verification.ResetCodeDigits)
	}
	if cfg.Session.Lifetime != 1440*time.Minute {
		t.Fatalf("session lifetime = %v, want 24h", cfg.Session.Lifetime)
	}
	if cfg.Session.CookieName != "token" {
		t.Fatalf("cookie name = %q, want token", cfg.Session.CookieName)
	}
	if cfg.Redis.Enabled() {
		t.Fatal("redis must default to disabled")
	}
	if cfg.SMTP.Enabled() {
		t.Fatal("smtp must default to disabled")
	}
	if cfg.Google.Enabled() {
		t.Fatal("google oauth must default to disabled")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SHORTCUTS_SESSION_SECRET", "unit-test-secret")
	t.Setenv("SHORTCUTS_VERIFICATION_CODE_TTL", "5m")
	t.Setenv("SHORTCUTS_VERIFICATION_MAX_ATTEMPTS", "2")
	t.Setenv("SHORTCUTS_REDIS_HOST", "redis.internal")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Verification.CodeTTL != 5*time.Minute {
		t.Fatalf("code ttl = %v, want 5m", cfg.Verification.CodeTTL)
	}
	if cfg.Verification.MaxAttempts != 2 {
		t.Fatalf("max attempts = %d, want 2", cfg.Verification.MaxAttempts)
	}
	if !cfg.Redis.Enabled() {
		t.Fatal("redis must be enabled when host is set")
	}
}

func TestCrossSiteDetection(t *testing.T) {
	cases := []struct {
		clientURL string
		want      bool
	}{
		{"http://localhost:3000", false},
		{"http://127.0.0.1:3000", false},
		{"https://shortcuts.example.com", true},
		{"", false},
	}

	for _, tc := range cases {
		app := AppSettings{ClientURL: tc.clientURL}
		if got := app.CrossSite(); got != tc.want {
			t.Fatalf("CrossSite(%q) = %v, want %v", tc.clientURL, got, tc.want)
		}
	}
}
