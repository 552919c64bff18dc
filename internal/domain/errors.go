package domain

import "errors"

// Session errors
var (
	ErrMissingToken = errors.New("missing session token")
	ErrInvalidToken = errors.New("invalid session token")
)

// Delivery errors
var (
	ErrPersistence = errors.New("message store unavailable")
	ErrUpload      = errors.New("media upload failed")
	ErrPushFailed  = errors.New("realtime push failed")
)

// Validation errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingFields      = errors.New("all fields are required")
	ErrWeakPassword       = errors.New("password must be at least 6 characters long")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrEmptyMessage       = errors.New("message must have text or an image")
)

// IsAuthError reports whether err means the caller is not authenticated.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrMissingToken) || errors.Is(err, ErrInvalidToken)
}
