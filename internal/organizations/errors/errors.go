package errors

import "errors"

var (
	ErrNotFound = errors.New("organization not found")

	ErrInvalidID = errors.New("invalid organization ID format")

	ErrDuplicateSlug = errors.New("organization slug already taken")
)
