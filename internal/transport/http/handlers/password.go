package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eaeoz/shortcuts-app/internal/transport/http/middleware"
	"github.com/eaeoz/shortcuts-app/internal/usecase"
)

// PasswordResetHandler exposes the forgotten-password endpoints.
type PasswordResetHandler struct {
	reset  *usecase.PasswordResetService
	logger *zap.Logger
}

func NewPasswordResetHandler(reset *usecase.PasswordResetService, log *zap.Logger) *PasswordResetHandler {
	return &PasswordResetHandler{
		reset:  reset,
		logger: log.Named("password_handler"),
	}
}

// RegisterRoutes binds the password reset endpoints. The rate-limit
// middlewares guard the code-generating endpoint.
func (h *PasswordResetHandler) RegisterRoutes(r *gin.RouterGroup, rateLimits ...gin.HandlerFunc) {
	r.POST("/request-reset", append(append([]gin.HandlerFunc{}, rateLimits...), h.RequestReset)...)
	r.POST("/verify-reset", h.VerifyReset)
}

// RequestReset stages a reset code. The response is identical whether or
// not the email matches an account.
func (h *PasswordResetHandler) RequestReset(c *gin.Context) {
	var req RequestResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "email is required"))
		return
	}

	if err := h.reset.RequestReset(c.Request.Context(), req.Email); err != nil {
		respondError(c, err, http.StatusInternalServerError, "failed to process reset request",
			errorCase{usecase.ErrInvalidInput, http.StatusBadRequest, "email is required"},
		)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{
		Message: "If an account with that email exists, a reset code has been sent",
	})
}

// VerifyReset completes the flow and replaces the password.
func (h *PasswordResetHandler) VerifyReset(c *gin.Context) {
	var req VerifyResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "email, code and newPassword are required"))
		return
	}

	if err := h.reset.VerifyReset(c.Request.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		respondResetError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Password reset successful"})
}

func respondResetError(c *gin.Context, err error) {
	var invalid *usecase.InvalidCodeError
	if errors.As(err, &invalid) {
		remaining := invalid.Remaining
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:             "invalid reset code",
			AttemptsRemaining: &remaining,
			RequestID:         middleware.GetRequestID(c),
		})
		return
	}

	respondError(c, err, http.StatusInternalServerError, "password reset failed",
		errorCase{usecase.ErrUserNotFound, http.StatusNotFound, "user not found"},
		errorCase{usecase.ErrCodeNotFound, http.StatusBadRequest, "reset code is invalid or has expired"},
		errorCase{usecase.ErrTooManyAttempts, http.StatusBadRequest, "too many failed attempts, request a new code"},
		errorCase{usecase.ErrPasswordTooShort, http.StatusBadRequest, "password is too short"},
	)
}
