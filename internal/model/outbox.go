package model

import "time"

// Event names published through the outbox.  Downstream consumers key
// their behaviour off these strings, so they are part of the public
// contract and must not change casually.
const (
    EventReservationCreated = "reservation.created"
    EventReservationExpired = "reservation.expired"
    EventSeatReleased       = "seat.released"
    EventPaymentConfirmed   = "payment.confirmed"
)

// OutboxEntry captures a fact that must be published externally.  Entries
// are written in the same database transaction as the state change they
// describe, which is what makes delivery at-least-once: a committed state
// change always has its entry, and the relay keeps retrying until the
// publish succeeds.
//
// Retry bookkeeping lives on the row rather than in memory so a process
// restart does not lose backoff state.
type OutboxEntry struct {
    ID          uint64     `json:"id"`            // outbox id
    EventName   string     `json:"event_name"`    // one of the Event* constants
    Payload     []byte     `json:"payload"`       // denormalized JSON event body
    Published   bool       `json:"published"`     // set by the relay on successful publish
    RetryCount  uint32     `json:"retry_count"`   // number of failed publish attempts
    NextRetryAt *time.Time `json:"next_retry_at"` // nil until the first failure
    CreatedAt   time.Time  `json:"created_at"`    // insertion timestamp
}

// NextRetryDelay computes the exponential backoff delay applied after a
// failed publish attempt: min(base * 2^retryCount, max).  It is a pure
// function so the schedule can be tested without a database.
func NextRetryDelay(retryCount uint32, base, max time.Duration) time.Duration {
    if base <= 0 {
        return max
    }
    d := base
    for i := uint32(0); i < retryCount; i++ {
        d *= 2
        if d >= max || d <= 0 { // d <= 0 guards against overflow
            return max
        }
    }
    if d > max {
        return max
    }
    return d
}
