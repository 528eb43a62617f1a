package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eaeoz/shortcuts-app/internal/core/domain"
	"github.com/eaeoz/shortcuts-app/internal/transport/http/middleware"
)

// ErrorResponse represents a generic error payload with the request ID for
// debugging. AttemptsRemaining is present only on code-mismatch responses;
// Status carries a machine-readable reason when the client branches on it.
type ErrorResponse struct {
	Error             string `json:"error"`
	Status            string `json:"status,omitempty"`
	AttemptsRemaining *int   `json:"attemptsRemaining,omitempty"`
	RequestID         string `json:"request_id,omitempty"`
}

// NewErrorResponse creates an error response with the request ID from context.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:     errorMsg,
		RequestID: middleware.GetRequestID(c),
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// UserSummary describes the view of a user returned by the API. The
// password hash never leaves the server.
type UserSummary struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	Role         string     `json:"role"`
	IsVerified   bool       `json:"isVerified"`
	AuthProvider *string    `json:"authProvider,omitempty"`
	Avatar       *string    `json:"avatar,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
}

// NewUserSummary projects a domain user into its API shape.
func NewUserSummary(u *domain.User) UserSummary {
	return UserSummary{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Role:         string(u.Role),
		IsVerified:   u.IsVerified,
		AuthProvider: u.AuthProvider,
		Avatar:       u.Avatar,
		CreatedAt:    u.CreatedAt,
		LastLogin:    u.LastLogin,
	}
}

// AuthResponse is returned by endpoints that establish a session. The token
// is delivered both here and as a cookie so browser and API clients can
// each pick their channel.
type AuthResponse struct {
	Message string      `json:"message"`
	Token   string      `json:"token"`
	User    UserSummary `json:"user"`
}

// SendVerificationRequest defines the payload that starts registration.
type SendVerificationRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// VerifyEmailRequest defines the payload that completes registration.
type VerifyEmailRequest struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SetCookieRequest exchanges a bearer token for a session cookie.
type SetCookieRequest struct {
	Token string `json:"token" binding:"required"`
}

// RequestResetRequest starts the forgotten-password flow.
type RequestResetRequest struct {
	Email string `json:"email" binding:"required"`
}

// VerifyResetRequest completes the forgotten-password flow.
type VerifyResetRequest struct {
	Email       string `json:"email" binding:"required"`
	Code        string `json:"code" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// HealthResponse reports liveness alongside the process start time.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}
