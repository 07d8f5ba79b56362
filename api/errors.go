package api

import (
	"errors"
	"net/http"
)

// Failure classes surfaced to callers. Stores and handlers wrap these
// sentinels with context; the transport mapping lives in statusFor.
var (
	// ErrUnauthenticated means the request carries no valid caller
	// identity.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrNotAuthorized means the caller is authenticated but not
	// permitted to act on the resource.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrNotFound means a referenced entity is absent or soft-deleted.
	ErrNotFound = errors.New("not found")

	// ErrUnknownRecipient means a message receiver does not exist.
	ErrUnknownRecipient = errors.New("recipient not found")

	// ErrInvalidTarget means a connection request targets the
	// requester themselves.
	ErrInvalidTarget = errors.New("cannot connect to yourself")

	// ErrDuplicateRequest means a connection row already exists for
	// the unordered user pair, in either direction.
	ErrDuplicateRequest = errors.New("connection already exists")

	// ErrEmailTaken means the email is already registered.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidState means the entity is not in a state that permits
	// the requested transition.
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidParent means a reply references a comment that is
	// missing, deleted, on another post, or itself a reply.
	ErrInvalidParent = errors.New("invalid parent comment")
)

// statusFor maps a failure to its HTTP status. Anything unrecognized
// is a storage or programming failure and maps to 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnknownRecipient):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateRequest), errors.Is(err, ErrEmailTaken), errors.Is(err, ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidTarget), errors.Is(err, ErrInvalidParent):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
