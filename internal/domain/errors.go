package domain

import "errors"

// -----------------------------------------------------------------------------
// Domain Errors
// Shared by the backend stores, the REST client and the quiz session so that
// callers can branch with errors.Is regardless of where the failure came from.
// -----------------------------------------------------------------------------

// Task errors
var (
	ErrTaskNotFound         = errors.New("task not found")
	ErrQuestionNotFound     = errors.New("question not found")
	ErrTaskAlreadyCompleted = errors.New("task already completed")
)

// User errors
var (
	ErrUserNotFound = errors.New("user not found")
)

// General errors
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnavailable  = errors.New("service unavailable")
)
