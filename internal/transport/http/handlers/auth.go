package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eaeoz/shortcuts-app/internal/transport/http/middleware"
	"github.com/eaeoz/shortcuts-app/internal/transport/http/session"
	"github.com/eaeoz/shortcuts-app/internal/usecase"
)

// AuthHandler exposes registration, login, session, and Google sign-in
// endpoints.
type AuthHandler struct {
	registration    *usecase.RegistrationService
	auth            *usecase.AuthService
	oauth           *usecase.OAuthService
	channel         session.TokenChannel
	sessionLifetime time.Duration
	clientURL       string
	logger          *zap.Logger
}

func NewAuthHandler(
	registration *usecase.RegistrationService,
	auth *usecase.AuthService,
	oauth *usecase.OAuthService,
	channel session.TokenChannel,
	sessionLifetime time.Duration,
	clientURL string,
	log *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		registration:    registration,
		auth:            auth,
		oauth:           oauth,
		channel:         channel,
		sessionLifetime: sessionLifetime,
		clientURL:       strings.TrimRight(clientURL, "/"),
		logger:          log.Named("auth_handler"),
	}
}

// RegisterRoutes binds the auth endpoints. The rate-limit middlewares guard
// the endpoints that generate codes or test credentials.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, requireAuth gin.HandlerFunc, rateLimits ...gin.HandlerFunc) {
	r.POST("/send-verification", append(append([]gin.HandlerFunc{}, rateLimits...), h.SendVerification)...)
	r.POST("/verify-email", h.VerifyEmail)
	r.POST("/login", append(append([]gin.HandlerFunc{}, rateLimits...), h.Login)...)
	r.POST("/logout", h.Logout)
	r.POST("/set-cookie", h.SetCookie)
	r.GET("/me", requireAuth, h.Me)

	if h.oauth != nil {
		r.GET("/google", h.GoogleRedirect)
		r.GET("/google/callback", h.GoogleCallback)
	}
}

// SendVerification stages a new account and emails a verification code.
func (h *AuthHandler) SendVerification(c *gin.Context) {
	var req SendVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "username, email and password are required"))
		return
	}

	err := h.registration.StartRegistration(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		respondError(c, err, http.StatusInternalServerError, "failed to send verification code",
			errorCase{usecase.ErrUserExists, http.StatusBadRequest, "user with this email or username already exists"},
			errorCase{usecase.ErrPasswordTooShort, http.StatusBadRequest, "password is too short"},
			errorCase{usecase.ErrInvalidInput, http.StatusBadRequest, "invalid registration payload"},
		)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Verification code sent to your email"})
}

// VerifyEmail completes registration and establishes a session.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "email and code are required"))
		return
	}

	user, token, err := h.registration.VerifyRegistration(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		h.respondCodeError(c, err)
		return
	}

	h.channel.Apply(c.Writer, token, time.Now().Add(h.sessionLifetime))
	c.JSON(http.StatusCreated, AuthResponse{
		Message: "Email verified successfully",
		Token:   token,
		User:    NewUserSummary(user),
	})
}

// Login verifies credentials and establishes a session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "email and password are required"))
		return
	}

	user, token, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, usecase.ErrAccountUnverified) {
			c.JSON(http.StatusForbidden, ErrorResponse{
				Error:     "account is not verified",
				Status:    "unverified",
				RequestID: middleware.GetRequestID(c),
			})
			return
		}
		respondError(c, err, http.StatusInternalServerError, "login failed",
			errorCase{usecase.ErrInvalidCredentials, http.StatusBadRequest, "invalid email or password"},
		)
		return
	}

	h.channel.Apply(c.Writer, token, time.Now().Add(h.sessionLifetime))
	c.JSON(http.StatusOK, AuthResponse{
		Message: "Login successful",
		Token:   token,
		User:    NewUserSummary(user),
	})
}

// Logout clears the session cookie. Bearer clients simply discard their token.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.channel.Clear(c.Writer)
	c.JSON(http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

// SetCookie exchanges a bearer token for a session cookie. Used after
// provider redirects, where the token arrives via the URL and the browser
// still needs a cookie.
func (h *AuthHandler) SetCookie(c *gin.Context) {
	var req SetCookieRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "token is required"))
		return
	}

	user, err := h.auth.ExchangeToken(c.Request.Context(), req.Token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid session token"))
		return
	}

	h.channel.Apply(c.Writer, req.Token, time.Now().Add(h.sessionLifetime))
	c.JSON(http.StatusOK, AuthResponse{
		Message: "Session cookie set",
		Token:   req.Token,
		User:    NewUserSummary(user),
	})
}

// Me returns the account behind the authenticated session.
func (h *AuthHandler) Me(c *gin.Context) {
	auth, ok := middleware.GetAuthContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": NewUserSummary(auth.User)})
}

// GoogleRedirect sends the browser to the Google consent screen.
func (h *AuthHandler) GoogleRedirect(c *gin.Context) {
	authURL, err := h.oauth.AuthURL(c.Request.Context())
	if err != nil {
		h.logger.Error("build google auth url", zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to start google sign-in"))
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, authURL)
}

// GoogleCallback finishes the provider flow and redirects back to the
// client with the token in the URL. Errors redirect too, so the user lands
// on the login page instead of a raw JSON error.
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")

	user, token, err := h.oauth.HandleCallback(c.Request.Context(), code, state)
	if err != nil {
		var provErr *usecase.AuthProviderError
		reason := "authentication_failed"
		if errors.As(err, &provErr) {
			reason = provErr.Reason
		}
		h.logger.Warn("google callback failed", zap.String("reason", reason), zap.Error(err))
		c.Redirect(http.StatusTemporaryRedirect, h.clientURL+"/login?error="+url.QueryEscape(reason))
		return
	}

	h.channel.Apply(c.Writer, token, time.Now().Add(h.sessionLifetime))
	h.logger.Info("google sign-in completed", zap.String("user_id", user.ID))

	c.Redirect(http.StatusTemporaryRedirect, h.clientURL+"/auth/callback?token="+url.QueryEscape(token))
}

func (h *AuthHandler) respondCodeError(c *gin.Context, err error) {
	var invalid *usecase.InvalidCodeError
	if errors.As(err, &invalid) {
		remaining := invalid.Remaining
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:             "invalid verification code",
			AttemptsRemaining: &remaining,
			RequestID:         middleware.GetRequestID(c),
		})
		return
	}

	respondError(c, err, http.StatusInternalServerError, "verification failed",
		errorCase{usecase.ErrCodeNotFound, http.StatusBadRequest, "verification code is invalid or has expired"},
		errorCase{usecase.ErrTooManyAttempts, http.StatusBadRequest, "too many failed attempts, request a new code"},
		errorCase{usecase.ErrPasswordTooShort, http.StatusBadRequest, "password is too short"},
	)
}
