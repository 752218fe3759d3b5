package model

import "time"

// Sale is the durable record that a seat was paid for.  It is created
// exclusively by the sale confirmation flow from a validated pending
// reservation and is immutable thereafter.  The sales table carries a
// unique (seat_id, session_id) constraint so a seat can be sold at most
// once per session regardless of application bugs.
type Sale struct {
    ID            uint64    `json:"id"`             // sales.id
    ReservationID uint64    `json:"reservation_id"` // sales.reservation_id (unique)
    SessionID     uint64    `json:"session_id"`     // sales.session_id
    SeatID        uint64    `json:"seat_id"`        // sales.seat_id
    UserID        uint64    `json:"user_id"`        // sales.user_id
    AmountCents   uint32    `json:"amount_cents"`   // sales.amount_cents
    CreatedAt     time.Time `json:"created_at"`     // sales.created_at
}
