// Package services defines the business logic for refreshing and querying
// the country cache. This file centralizes common service-level error values
// so that they can be consistently returned by service methods and checked
// by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes should be performed at the
// handler layer.
package services

import "errors"

var (
	// ErrCountryNotFound indicates that no cached country matches the
	// requested name (compared case-insensitively).
	ErrCountryNotFound = errors.New("country not found")

	// ErrStorage wraps transactional write or bulk read failures. When a
	// refresh fails with this error, nothing has been committed.
	ErrStorage = errors.New("storage failure")

	// ErrRefreshInFlight is returned when a refresh is requested while a
	// previous one is still running. Refreshes are serialized; callers
	// should retry once the running one finishes.
	ErrRefreshInFlight = errors.New("refresh already in progress")
)
