package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eaeoz/shortcuts-app/internal/core/domain"
	"github.com/eaeoz/shortcuts-app/internal/infra/security"
	"github.com/eaeoz/shortcuts-app/internal/transport/http/session"
	"github.com/eaeoz/shortcuts-app/internal/usecase"
)

const authContextKey = "auth_context"

// ErrorResponse matches the handlers.ErrorResponse structure.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:     errorMsg,
		RequestID: GetRequestID(c),
	}
}

// AuthenticatedContext carries the identity proven for the current request.
type AuthenticatedContext struct {
	UserID string
	User   *domain.User
}

// RequireAuth extracts a session token from the configured channel, verifies
// it, and loads the account behind it. Requests without a provable identity
// are rejected with 401 before reaching the handler.
func RequireAuth(channel session.TokenChannel, authService *usecase.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := channel.Extract(c.Request)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "authentication required"))
			return
		}

		user, err := authService.ExchangeToken(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, security.ErrExpiredSessionToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "session expired"))
			case errors.Is(err, security.ErrInvalidSessionToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "invalid session token"))
			case errors.Is(err, usecase.ErrUserNotFound):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "invalid session token"))
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					newErrorResponse(c, "authentication failed"))
			}
			return
		}

		c.Set(authContextKey, &AuthenticatedContext{UserID: user.ID, User: user})

		c.Next()
	}
}

// RequireAdmin rejects authenticated requests whose account does not hold
// the admin role. It must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth, ok := GetAuthContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "authentication required"))
			return
		}

		if auth.User == nil || !auth.User.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden,
				newErrorResponse(c, "insufficient permissions"))
			return
		}

		c.Next()
	}
}

// GetAuthContext retrieves the proven identity for the current request.
func GetAuthContext(c *gin.Context) (*AuthenticatedContext, bool) {
	val, exists := c.Get(authContextKey)
	if !exists {
		return nil, false
	}
	auth, ok := val.(*AuthenticatedContext)
	return auth, ok
}
