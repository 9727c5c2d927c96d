package errors

import "errors"

var (
	ErrNotFound = errors.New("client not found")

	ErrInvalidID = errors.New("invalid client ID format")

	ErrDuplicateEmail = errors.New("client email already registered in organization")
)
