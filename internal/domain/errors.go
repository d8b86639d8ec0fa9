package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable: the hosted backend was unreachable or errored on
	// a read. Callers show an empty/error state; no automatic retry.
	ErrStoreUnavailable = errors.New("feedback store unavailable")

	// ErrNotFound is not a failure for profile lookups; callers fall back
	// to the account identifier fields.
	ErrNotFound = errors.New("not found")

	// Submission preconditions, resolved client-side before any store call.
	ErrUnauthorized       = errors.New("sign in required to leave a review")
	ErrAlreadySubmitted   = errors.New("a review from this viewer already exists")
	ErrInvalidRating      = errors.New("rating must be an integer between 1 and 5")
	ErrCommentTooShort    = errors.New("comment must be at least 50 characters")
	ErrSubmissionInFlight = errors.New("another submission is still in flight")
)

// RejectedError carries the store's insert rejection reason verbatim.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("store rejected review: %s", e.Reason)
}

// IsRejected reports whether err is a store-side insert rejection.
func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}
