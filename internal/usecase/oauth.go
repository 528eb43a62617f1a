package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/eaeoz/shortcuts-app/internal/core/domain"
	"github.com/eaeoz/shortcuts-app/internal/core/port"
	"github.com/eaeoz/shortcuts-app/internal/infra/config"
	"github.com/eaeoz/shortcuts-app/internal/infra/logger"
	"github.com/eaeoz/shortcuts-app/internal/infra/security"
	"github.com/eaeoz/shortcuts-app/internal/repository"

	"github.com/google/uuid"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// OAuthService handles Google sign-in: the redirect to the consent screen,
// the callback exchange, and resolving the external profile onto a local
// account.
type OAuthService struct {
	users    port.UserRepository
	states   port.PendingCodeStore
	sessions *security.SessionIssuer
	oauth    *oauth2.Config
	stateTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewOAuthService(
	users port.UserRepository,
	states port.PendingCodeStore,
	sessions *security.SessionIssuer,
	cfg config.GoogleOAuthSettings,
	log *zap.Logger,
) *OAuthService {
	return &OAuthService{
		users:    users,
		states:   states,
		sessions: sessions,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		stateTTL: cfg.StateTTL,
		logger:   log.Named("oauth"),
		now:      time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *OAuthService) WithClock(clock func() time.Time) *OAuthService {
	s.now = clock
	return s
}

// AuthURL stages a single-use state value and returns the consent-screen
// URL to redirect the browser to.
func (s *OAuthService) AuthURL(ctx context.Context) (string, error) {
	state, err := security.GenerateSecureToken(32)
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}

	now := s.now()
	record := domain.PendingCode{
		Code:      state,
		CreatedAt: now,
		ExpiresAt: now.Add(s.stateTTL),
	}
	if err := s.states.Put(ctx, domain.PurposeOAuthState, state, record); err != nil {
		return "", fmt.Errorf("stage oauth state: %w", err)
	}

	return s.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account")), nil
}

// HandleCallback consumes the state, exchanges the authorization code for a
// profile, resolves it onto a local account, and returns the user with a
// fresh session token. Provider failures come back as *AuthProviderError so
// the handler can redirect instead of erroring.
func (s *OAuthService) HandleCallback(ctx context.Context, code, state string) (*domain.User, string, error) {
	if err := s.consumeState(ctx, state); err != nil {
		return nil, "", err
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, "", &AuthProviderError{Reason: "exchange_failed", Err: err}
	}

	profile, err := s.fetchProfile(ctx, token)
	if err != nil {
		return nil, "", &AuthProviderError{Reason: "profile_fetch_failed", Err: err}
	}

	user, err := s.Resolve(ctx, profile)
	if err != nil {
		return nil, "", err
	}

	sessionToken, _, err := s.sessions.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("issue session: %w", err)
	}

	s.logger.Info("google sign-in resolved",
		zap.String("user_id", user.ID),
		zap.String("email", logger.MaskEmail(user.Email)))
	return user, sessionToken, nil
}

func (s *OAuthService) consumeState(ctx context.Context, state string) error {
	if state == "" {
		return &AuthProviderError{Reason: "missing_state"}
	}
	record, err := s.states.Get(ctx, domain.PurposeOAuthState, state)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &AuthProviderError{Reason: "invalid_state"}
		}
		return fmt.Errorf("load oauth state: %w", err)
	}
	if err := s.states.Delete(ctx, domain.PurposeOAuthState, state); err != nil {
		s.logger.Warn("delete consumed oauth state", zap.Error(err))
	}
	if record.Code != state {
		return &AuthProviderError{Reason: "invalid_state"}
	}
	return nil
}

func (s *OAuthService) fetchProfile(ctx context.Context, token *oauth2.Token) (domain.ExternalProfile, error) {
	client := s.oauth.Client(ctx, token)

	resp, err := client.Get(googleUserInfoURL)
	if err != nil {
		return domain.ExternalProfile{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.ExternalProfile{}, fmt.Errorf("fetch userinfo: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.ExternalProfile{}, fmt.Errorf("decode userinfo: %w", err)
	}
	if payload.ID == "" || payload.Email == "" {
		return domain.ExternalProfile{}, fmt.Errorf("userinfo missing id or email")
	}

	return domain.ExternalProfile{
		ProviderID:  payload.ID,
		Provider:    "google",
		Email:       strings.ToLower(payload.Email),
		DisplayName: payload.Name,
		AvatarURL:   payload.Picture,
	}, nil
}

// Resolve maps an external profile onto a local account. Three outcomes:
// the provider ID is already linked, the email matches an existing account
// which gets linked in place, or a brand-new verified account is created
// with an unguessable placeholder password.
func (s *OAuthService) Resolve(ctx context.Context, profile domain.ExternalProfile) (*domain.User, error) {
	now := s.now()

	user, err := s.users.GetByGoogleID(ctx, profile.ProviderID)
	if err == nil {
		if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
			s.logger.Warn("stamp last login", zap.String("user_id", user.ID), zap.Error(err))
		} else {
			user.LastLogin = &now
		}
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("look up by provider id: %w", err)
	}

	user, err = s.users.GetByEmail(ctx, profile.Email)
	if err == nil {
		var avatar *string
		if profile.AvatarURL != "" {
			avatar = &profile.AvatarURL
		}
		if err := s.users.LinkProvider(ctx, user.ID, profile.ProviderID, profile.Provider, avatar, true, now); err != nil {
			return nil, fmt.Errorf("link provider: %w", err)
		}
		user.GoogleID = &profile.ProviderID
		user.AuthProvider = &profile.Provider
		user.IsVerified = true
		if avatar != nil {
			user.Avatar = avatar
		}
		user.LastLogin = &now
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("look up by email: %w", err)
	}

	placeholder, err := security.GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("generate placeholder password: %w", err)
	}
	hash, err := security.HashPassword(placeholder)
	if err != nil {
		return nil, fmt.Errorf("hash placeholder password: %w", err)
	}

	username, err := s.pickUsername(ctx, profile)
	if err != nil {
		return nil, err
	}

	var avatar *string
	if profile.AvatarURL != "" {
		avatar = &profile.AvatarURL
	}
	provider := profile.Provider
	created := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        profile.Email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		IsVerified:   true,
		GoogleID:     &profile.ProviderID,
		AuthProvider: &provider,
		Avatar:       avatar,
		CreatedAt:    now,
		LastLogin:    &now,
	}
	if err := s.users.Create(ctx, created); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &created, nil
}

// pickUsername derives a username from the display name or the email local
// part, falling back to a random suffix when the candidate is taken.
func (s *OAuthService) pickUsername(ctx context.Context, profile domain.ExternalProfile) (string, error) {
	base := strings.ToLower(strings.ReplaceAll(profile.DisplayName, " ", ""))
	if base == "" {
		if at := strings.IndexByte(profile.Email, '@'); at > 0 {
			base = profile.Email[:at]
		} else {
			base = "user"
		}
	}

	_, err := s.users.GetByUsernameOrEmail(ctx, base, "")
	if errors.Is(err, repository.ErrNotFound) {
		return base, nil
	}
	if err != nil {
		return "", fmt.Errorf("check username: %w", err)
	}

	suffix, err := security.GenerateNumericCode(4)
	if err != nil {
		return "", fmt.Errorf("generate username suffix: %w", err)
	}
	return base + suffix, nil
}
