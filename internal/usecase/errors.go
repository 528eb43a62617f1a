package usecase

import (
	"errors"
	"fmt"
)

var (
	// ErrUserExists indicates the username or email already belongs to an account.
	ErrUserExists = errors.New("user with this email or username already exists")
	// ErrUserNotFound indicates no account matches the supplied identifier.
	ErrUserNotFound = errors.New("user not found")
	// ErrCodeNotFound indicates no live pending code exists for the identifier,
	// either because none was requested or because it expired.
	ErrCodeNotFound = errors.New("verification code invalid or expired")
	// ErrTooManyAttempts indicates the attempt ceiling was reached and the
	// pending code was destroyed; the caller must restart the flow.
	ErrTooManyAttempts = errors.New("too many failed attempts")
	// ErrInvalidCredentials indicates the email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountUnverified indicates the account exists but has not completed
	// email verification.
	ErrAccountUnverified = errors.New("account is unverified or suspended")
	// ErrPasswordTooShort indicates the password does not meet the minimum length.
	ErrPasswordTooShort = errors.New("password is too short")
	// ErrInvalidInput indicates a request field failed validation.
	ErrInvalidInput = errors.New("invalid input")
)

// InvalidCodeError reports a code mismatch along with how many attempts
// remain before the pending record is destroyed.
type InvalidCodeError struct {
	Remaining int
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("invalid code, %d attempts remaining", e.Remaining)
}

// AuthProviderError wraps a failure while talking to the external identity
// provider. Callers redirect it into an error-carrying URL instead of
// surfacing a raw server error.
type AuthProviderError struct {
	Reason string
	Err    error
}

func (e *AuthProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth provider: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("auth provider: %s", e.Reason)
}

func (e *AuthProviderError) Unwrap() error {
	return e.Err
}
