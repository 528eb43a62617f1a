package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App          AppSettings          `mapstructure:"app"`
	Postgres     PostgresSettings     `mapstructure:"postgres"`
	Redis        RedisSettings        `mapstructure:"redis"`
	Session      SessionSettings      `mapstructure:"session"`
	Verification VerificationSettings `mapstructure:"verification"`
	SMTP         SMTPSettings         `mapstructure:"smtp"`
	Google       GoogleOAuthSettings  `mapstructure:"google"`
	RateLimit    RateLimitSettings    `mapstructure:"rate_limit"`
	Argon2       Argon2Settings       `mapstructure:"argon2"`
}

type AppSettings struct {
	Name      string `mapstructure:"name"`
	Env       string `mapstructure:"env"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	ClientURL string `mapstructure:"client_url"`
}

// CrossSite reports whether the client is served from a different
// registrable domain than the API, which forces SameSite=None cookies.
func (a AppSettings) CrossSite() bool {
	return a.ClientURL != "" && !strings.Contains(a.ClientURL, "localhost") && !strings.Contains(a.ClientURL, "127.0.0.1")
}

type PostgresSettings struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// DSN renders the pgx connection string.
func (p PostgresSettings) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// RedisSettings configures the optional Redis backends (pending-code store
// and rate limiting). Disabled when Host is empty.
type RedisSettings struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
	KeyPrefix  string `mapstructure:"key_prefix"`
}

// Enabled reports whether a Redis backend was configured.
func (r RedisSettings) Enabled() bool {
	return r.Host != ""
}

type SessionSettings struct {
	Secret     string        `mapstructure:"secret"`
	Lifetime   time.Duration `mapstructure:"lifetime"`
	CookieName string        `mapstructure:"cookie_name"`
}

// VerificationSettings holds product policy for one-time codes. The attempt
// ceiling and TTLs are configuration, not structural constants.
type VerificationSettings struct {
	CodeTTL                time.Duration `mapstructure:"code_ttl"`
	MaxAttempts            int           `mapstructure:"max_attempts"`
	RegistrationCodeDigits int           `mapstructure:"registration_code_digits"`
	ResetCodeDigits        int           `mapstructure:"reset_code_digits"`
	MinPasswordLength      int           `mapstructure:"min_password_length"`
	MinUsernameLength      int           `mapstructure:"min_username_length"`
}

type SMTPSettings struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// Enabled reports whether outbound SMTP delivery was configured.
func (s SMTPSettings) Enabled() bool {
	return s.Host != ""
}

type GoogleOAuthSettings struct {
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	CallbackURL  string        `mapstructure:"callback_url"`
	StateTTL     time.Duration `mapstructure:"state_ttl"`
}

// Enabled reports whether Google sign-in was configured.
func (g GoogleOAuthSettings) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// RateLimitSettings configures sliding-window limits applied as pre-checks
// on the credential endpoints.
type RateLimitSettings struct {
	WindowDuration   time.Duration `mapstructure:"window_duration"`
	AuthMaxAttempts  int           `mapstructure:"auth_max_attempts"`
	ResetMaxAttempts int           `mapstructure:"reset_max_attempts"`
}

// Argon2Settings configures Argon2id password hashing parameters.
type Argon2Settings struct {
	Memory      uint32 `mapstructure:"memory"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("SHORTCUTS")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"app.client_url",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.key_prefix",
		"session.secret",
		"session.lifetime",
		"session.cookie_name",
		"verification.code_ttl",
		"verification.max_attempts",
		"verification.registration_code_digits",
		"verification.reset_code_digits",
		"verification.min_password_length",
		"verification.min_username_length",
		"smtp.host",
		"smtp.port",
		"smtp.user",
		"smtp.password",
		"smtp.from",
		"google.client_id",
		"google.client_secret",
		"google.callback_url",
		"google.state_ttl",
		"rate_limit.window_duration",
		"rate_limit.auth_max_attempts",
		"rate_limit.reset_max_attempts",
		"argon2.memory",
		"argon2.iterations",
		"argon2.parallelism",
		"argon2.salt_length",
		"argon2.key_length",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Session.Secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "shortcuts-app")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 5000)
	v.SetDefault("app.client_url", "http://localhost:3000")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "shortcuts")
	v.SetDefault("postgres.password", "shortcuts_password")
	v.SetDefault("postgres.database", "shortcuts")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)

	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.key_prefix", "shortcuts")

	v.SetDefault("session.secret", "")
	v.SetDefault("session.lifetime", "1440m")
	v.SetDefault("session.cookie_name", "token")

	v.SetDefault("verification.code_ttl", "15m")
	v.SetDefault("verification.max_attempts", 4)
	v.SetDefault("verification.registration_code_digits", 6)
	v.SetDefault("verification.reset_code_digits", 4)
	v.SetDefault("verification.min_password_length", 6)
	v.SetDefault("verification.min_username_length", 3)

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.user", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")

	v.SetDefault("google.client_id", "")
	v.SetDefault("google.client_secret", "")
	v.SetDefault("google.callback_url", "http://localhost:5000/api/auth/google/callback")
	v.SetDefault("google.state_ttl", "10m")

	v.SetDefault("rate_limit.window_duration", "15m")
	v.SetDefault("rate_limit.auth_max_attempts", 5)
	v.SetDefault("rate_limit.reset_max_attempts", 3)

	v.SetDefault("argon2.memory", 65536)
	v.SetDefault("argon2.iterations", 3)
	v.SetDefault("argon2.parallelism", 4)
	v.SetDefault("argon2.salt_length", 16)
	v.SetDefault("argon2.key_length", 32)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "SHORTCUTS_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
