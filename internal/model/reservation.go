package model

import "time"

// Reservation statuses.  A reservation starts PENDING and ends in exactly
// one of the three terminal states.
const (
    ReservationPending   = "PENDING"
    ReservationConfirmed = "CONFIRMED"
    ReservationExpired   = "EXPIRED"
    ReservationCancelled = "CANCELLED"
)

// Reservation records a user's temporary hold on exactly one seat within
// one session.  At most one PENDING reservation may exist per
// (seat_id, session_id) pair; the reservations table enforces this with a
// unique index over a generated column that is NULL for non-pending rows.
//
// Fields:
//  ID        – primary key identifier.
//  SessionID – session the seat belongs to.
//  SeatID    – seat being held.
//  UserID    – user who requested the hold.
//  Status    – one of the Reservation* constants.
//  ExpiresAt – absolute UTC timestamp after which the hold lapses.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Reservation struct {
    ID        uint64    `json:"id"`         // reservations.id
    SessionID uint64    `json:"session_id"` // reservations.session_id
    SeatID    uint64    `json:"seat_id"`    // reservations.seat_id
    UserID    uint64    `json:"user_id"`    // reservations.user_id
    Status    string    `json:"status"`     // reservations.status
    ExpiresAt time.Time `json:"expires_at"` // reservations.expires_at
    CreatedAt time.Time `json:"created_at"` // reservations.created_at
    UpdatedAt time.Time `json:"updated_at"` // reservations.updated_at
}

// IsExpiredAt reports whether the reservation's hold has lapsed at the
// given instant.  The boundary itself still counts as valid, so a
// confirmation arriving exactly at ExpiresAt succeeds.
func (r *Reservation) IsExpiredAt(now time.Time) bool {
    return now.After(r.ExpiresAt)
}
