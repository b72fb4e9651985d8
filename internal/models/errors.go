package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by lookups that match no assessment.
	ErrNotFound = errors.New("assessment not found")
	// ErrUserNotFound is returned by user lookups that match no user.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when the username or email is already taken.
	ErrUserExists = errors.New("username or email already taken")
)

// ValidationError reports a missing or malformed submission field
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %s: %s", e.Field, e.Reason)
}

// ScoringError reports a failed or out-of-range scoring model call
type ScoringError struct {
	Err error
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("scoring failed: %v", e.Err)
}

func (e *ScoringError) Unwrap() error {
	return e.Err
}
