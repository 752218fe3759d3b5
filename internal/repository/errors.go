// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios without string matching. The taxonomy mirrors the HTTP
// statuses the API surfaces: not-found, forbidden, conflict and the
// time-based "expired" variant that clients treat differently from a
// generic conflict.
package repository

import (
    "errors"
    "fmt"
)

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers should translate this into an
// HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation cannot proceed because of
// conflicting state, such as confirming a reservation that is no longer
// pending or a seat that is not in the expected status. Handlers should
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrSessionNotFound is returned when a session id does not exist.
var ErrSessionNotFound = errors.New("session not found")

// ErrSeatNotFound is returned when a seat id does not exist.
var ErrSeatNotFound = errors.New("seat not found")

// ErrReservationNotFound is returned when a reservation id does not exist.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrReservationExpired is returned when a confirmation or cancellation
// arrives after the reservation's expires_at. It is deliberately
// distinct from ErrConflict so clients know that retrying with a fresh
// reservation is the right move, rather than the seat having been taken
// by someone else.
var ErrReservationExpired = errors.New("reservation expired")

// ErrEmailExists is returned when registering a user with an email that
// is already taken.
var ErrEmailExists = errors.New("email already exists")

// ErrUserNotFound is returned when a user lookup by email or id fails.
var ErrUserNotFound = errors.New("user not found")

// SeatConflictError reports which seats of a multi-seat reservation
// request were not available. The enclosing transaction has been rolled
// back, so no partial state survives. It unwraps to ErrConflict so
// errors.Is(err, ErrConflict) holds.
type SeatConflictError struct {
    SeatIDs []uint64 // the seats that could not be claimed
}

func (e *SeatConflictError) Error() string {
    return fmt.Sprintf("seat conflict: %d seat(s) unavailable", len(e.SeatIDs))
}

// Unwrap makes the error match ErrConflict in errors.Is chains.
func (e *SeatConflictError) Unwrap() error { return ErrConflict }
