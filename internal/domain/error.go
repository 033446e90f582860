package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrRemote          = errors.New("remote call failed")
	ErrBusy            = errors.New("another request for this user is in progress")

	// Credential errors
	ErrNoActiveCredential = errors.New("no active credential")
	ErrBadCredentials     = errors.New("bad credentials")

	// Flow errors
	ErrNoActiveFlow = errors.New("no active flow")
	ErrValidation   = errors.New("validation failed")
	ErrSubmission   = errors.New("submission failed")

	// Re-promptable reasons. Each one satisfies errors.Is(err, ErrValidation).
	ErrUnknownRepository  = validationReason("unknown repository")
	ErrUnknownBranch      = validationReason("unknown branch")
	ErrBaseBranchMismatch = validationReason("base branch is not the default branch")
	ErrInvalidDraft       = validationReason("draft must be true or false")
)

type reasonError struct {
	msg string
}

func (e *reasonError) Error() string        { return e.msg }
func (e *reasonError) Is(target error) bool { return target == ErrValidation }

func validationReason(msg string) error { return &reasonError{msg: msg} }

// Remote wraps a transport or API failure so callers can match ErrRemote.
func Remote(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrRemote, err)
}
