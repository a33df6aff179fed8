// Package services defines the business logic for jokes and the external
// sync. This file centralizes common service-level error values so that they
// can be consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler/controller layer.
package services

import "errors"

var (
	// ErrInvalidJokeID is returned when an externally supplied identifier
	// cannot be parsed as a joke ID (UUID).
	ErrInvalidJokeID = errors.New("invalid joke id format")

	// ErrJokeNotFound indicates that the identifier is well-formed but no
	// matching joke exists.
	ErrJokeNotFound = errors.New("joke not found")

	// ErrDuplicateJoke is returned when creating or updating a joke would
	// violate the rule that no two stored jokes share the same text.
	ErrDuplicateJoke = errors.New("joke already exists")

	// ErrExternalAPI is returned when the external joke provider is
	// unreachable, responds with a non-success status, or returns a body
	// that cannot be parsed.
	ErrExternalAPI = errors.New("failed to fetch joke from external API")

	// ErrStorage wraps any unanticipated persistence failure. The original
	// cause is carried in the wrapped error for logging but is never shown
	// to API clients.
	ErrStorage = errors.New("storage failure")
)
