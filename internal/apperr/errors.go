package apperr

import "errors"

// Sentinel errors for the progression and evaluation flow. Services wrap them
// with fmt.Errorf("...: %w", ...) so controllers can map them to HTTP statuses
// with errors.Is.
var (
	// ErrNotFound is returned for unknown catalog or progress ids.
	ErrNotFound = errors.New("not found")

	// ErrInvalidSubmission is returned when a submitted attempt does not match
	// the test: answer count mismatch, unknown question id, answer shape not
	// matching the question type, or an unparseable number answer.
	ErrInvalidSubmission = errors.New("invalid submission")

	// ErrAccessDenied is returned when the access gate denies a test: tenant
	// mismatch, no active grant and no open trajectory stage.
	ErrAccessDenied = errors.New("access denied")

	// ErrAttemptsExhausted is returned once a trainee has used up
	// Test.MaxAttempts attempts for a test.
	ErrAttemptsExhausted = errors.New("attempts exhausted")

	// ErrInvalidTransition is returned for illegal progression transitions,
	// e.g. opening a stage whose predecessor is not completed.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrConcurrentModification is returned when an optimistic-lock update of a
	// progress row lost the race twice in a row.
	ErrConcurrentModification = errors.New("concurrent modification")
)
