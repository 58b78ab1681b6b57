package auth

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrNotAdmin           = errors.New("admin access required")
	ErrForbidden          = errors.New("insufficient permissions")
	ErrGoogleDisabled     = errors.New("google login is not configured")
	ErrOTPInvalid         = errors.New("invalid or expired otp")
	ErrOTPCooldown        = errors.New("otp recently sent, try again later")
	ErrOTPAttempts        = errors.New("too many otp attempts")
)
