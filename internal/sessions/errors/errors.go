package errors

import "errors"

var (
	ErrNotFound = errors.New("service session not found")

	ErrInvalidID = errors.New("invalid service session ID format")

	ErrSlotNotFound = errors.New("time slot template not found")
)
