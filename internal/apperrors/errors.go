package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")

	// Login identifier (username or email) missing from the request
	ErrIdentifierRequired = errors.New("username or email required")

	ErrWrongPassword = errors.New("wrong password")

	// Any token verification failure: bad signature, malformed structure,
	// expiry, vanished subject or a refresh token that doesn't match the
	// stored one. Single value on purpose so callers can't tell the cause apart.
	ErrInvalidToken = errors.New("invalid token")

	ErrMediaUploadFailed = errors.New("media upload failed")
)
