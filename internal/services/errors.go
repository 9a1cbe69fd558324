package services

import "errors"

// Business-level outcomes. Handlers map these onto HTTP statuses; anything
// not in this list is an internal storage failure and surfaces as a 500.
var (
	// NotFound
	ErrCodeNotFound     = errors.New("invalid redeem code")
	ErrTokenNotFound    = errors.New("invalid token")
	ErrDocumentNotFound = errors.New("document not found")

	// StateInvalid
	ErrCodeInactive  = errors.New("code is inactive")
	ErrCodeExpired   = errors.New("code has expired")
	ErrCodeExhausted = errors.New("code has been fully used")
	ErrTokenExpired  = errors.New("token expired")

	// AuthorizationDenied
	ErrMembershipExpired = errors.New("membership expired")
	ErrQuotaExceeded     = errors.New("download quota exceeded")
	ErrWrongSecret       = errors.New("incorrect password")

	// Conflict
	ErrCodeExists = errors.New("code already exists")
)
