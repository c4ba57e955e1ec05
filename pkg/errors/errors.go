package apperrors

import "errors"

// Standardized remote-platform errors
var (
	ErrTimeout            = errors.New("request timed out")
	ErrNetwork            = errors.New("network error")
	ErrNotConnected       = errors.New("account is not connected")
	ErrAccessDenied       = errors.New("access denied")
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrLimiterUnavailable = errors.New("gift rate limiter is not initialized")
	ErrNoAuthenticator    = errors.New("mobile authenticator is not available")
)
