package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidSessionToken indicates the token is malformed or its signature failed validation.
	ErrInvalidSessionToken = errors.New("invalid session token")
	// ErrExpiredSessionToken indicates the token's expiry has elapsed.
	ErrExpiredSessionToken = errors.New("session token expired")
)

// SessionClaims binds a session token to a user identity.
type SessionClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// SessionIssuer mints and verifies signed, time-limited session tokens.
// Verification is identical regardless of the channel (cookie or bearer)
// that carried the token.
type SessionIssuer struct {
	secret   []byte
	issuer   string
	lifetime time.Duration
	now      func() time.Time
}

// NewSessionIssuer constructs a SessionIssuer signing with the server-held secret.
func NewSessionIssuer(secret string, issuer string, lifetime time.Duration) (*SessionIssuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("session secret is required")
	}
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}

	return &SessionIssuer{
		secret:   []byte(secret),
		issuer:   issuer,
		lifetime: lifetime,
		now:      time.Now,
	}, nil
}

// Lifetime returns the configured token lifetime.
func (s *SessionIssuer) Lifetime() time.Duration {
	return s.lifetime
}

// Issue mints a signed token for the given user identity.
func (s *SessionIssuer) Issue(userID string) (string, time.Time, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", time.Time{}, fmt.Errorf("user id is required")
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.lifetime)

	claims := SessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}

	return signed, expiresAt, nil
}

// Verify validates signature and expiry and returns the embedded user id.
// There is no partial trust: any failure rejects the token outright.
func (s *SessionIssuer) Verify(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidSessionToken
	}

	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredSessionToken
		}
		return "", ErrInvalidSessionToken
	}

	if !parsed.Valid || claims.UserID == "" {
		return "", ErrInvalidSessionToken
	}

	return claims.UserID, nil
}

// WithClock overrides the internal clock, used in tests.
func (s *SessionIssuer) WithClock(clock func() time.Time) *SessionIssuer {
	if clock != nil {
		s.now = clock
	}
	return s
}
