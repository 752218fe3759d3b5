package model

import "time"

// Session statuses.  Reservations are only accepted while a session is
// ACTIVE.
const (
    SessionDraft    = "DRAFT"
    SessionActive   = "ACTIVE"
    SessionClosed   = "CLOSED"
    SessionArchived = "ARCHIVED"
)

// Session groups the seats of a single ticketed event occurrence.  It
// carries the ticket price applied to every sale and the minimum number
// of provisioned seats required before reservations are accepted.
//
// Fields:
//  ID               – primary key identifier.
//  Name             – display name of the session.
//  Status           – one of the Session* constants.
//  TicketPriceCents – price charged per seat, in cents.
//  MinSeats         – minimum provisioned seat count required for booking.
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type Session struct {
    ID               uint64    `json:"id"`                 // sessions.id
    Name             string    `json:"name"`               // sessions.name
    Status           string    `json:"status"`             // sessions.status
    TicketPriceCents uint32    `json:"ticket_price_cents"` // sessions.ticket_price_cents
    MinSeats         uint32    `json:"min_seats"`          // sessions.min_seats
    CreatedAt        time.Time `json:"created_at"`         // sessions.created_at
    UpdatedAt        time.Time `json:"updated_at"`         // sessions.updated_at
}

// IsBookable reports whether the session accepts new reservations.
func (s *Session) IsBookable() bool {
    return s.Status == SessionActive
}
