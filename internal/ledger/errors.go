package ledger

import "errors"

var (
	// ErrQuotaExceeded is returned when a patron already has five pending
	// requests plus current loans combined.
	ErrQuotaExceeded = errors.New("you can only borrow 5 books at maximum")

	// ErrAlreadyRequested is returned when an identical pending request exists.
	ErrAlreadyRequested = errors.New("the request has already been placed")

	// ErrAlreadyIssued is returned when the patron already holds a current
	// loan of the book.
	ErrAlreadyIssued = errors.New("the book has already been issued")

	// ErrNotPending guards grant/reject/delete against requests that have
	// already reached a terminal status.
	ErrNotPending = errors.New("the request is no longer pending")

	// ErrAlreadyReturned is returned when revoking a loan that has ended.
	ErrAlreadyReturned = errors.New("the book has already been returned")

	// ErrInvalidDays is returned for a borrow duration outside 1-7 days.
	ErrInvalidDays = errors.New("borrow duration must be between 1 and 7 days")

	// ErrForbidden is returned when the caller does not own the record.
	ErrForbidden = errors.New("not allowed")

	// ErrNotFound is returned when the referenced record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned after a concurrent-mutation race persists
	// through the internal retry. Callers may try again.
	ErrConflict = errors.New("the operation conflicted with another change, please try again")
)
