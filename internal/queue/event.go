// Package queue defines message payloads exchanged over the message broker.
package queue

// ReservationCreatedEvent is written to the outbox when a seat claim
// commits.  It contains enough information for downstream consumers to
// notify or trigger analytics without querying the primary database.
type ReservationCreatedEvent struct {
    ReservationID uint64 `json:"reservation_id"`
    SessionID     uint64 `json:"session_id"`
    SeatID        uint64 `json:"seat_id"`
    SeatLabel     string `json:"seat_label"`
    UserID        uint64 `json:"user_id"`
    ExpiresAt     string `json:"expires_at"`
    CreatedAt     string `json:"created_at"`
}

// ReservationExpiredEvent is written when the sweeper lapses a pending
// reservation.  SeatReleased records whether the seat actually went back
// to the pool; it stays false when a concurrent sale won the race.
type ReservationExpiredEvent struct {
    ReservationID uint64 `json:"reservation_id"`
    SessionID     uint64 `json:"session_id"`
    SeatID        uint64 `json:"seat_id"`
    UserID        uint64 `json:"user_id"`
    SeatReleased  bool   `json:"seat_released"`
    ExpiredAt     string `json:"expired_at"`
}

// SeatReleasedEvent is written alongside ReservationExpiredEvent when
// the sweep returned the seat to the pool.
type SeatReleasedEvent struct {
    SessionID  uint64 `json:"session_id"`
    SeatID     uint64 `json:"seat_id"`
    ReleasedAt string `json:"released_at"`
}

// PaymentConfirmedEvent is written when a pending reservation converts
// into a sale.
type PaymentConfirmedEvent struct {
    SaleID        uint64 `json:"sale_id"`
    ReservationID uint64 `json:"reservation_id"`
    SessionID     uint64 `json:"session_id"`
    SeatID        uint64 `json:"seat_id"`
    UserID        uint64 `json:"user_id"`
    AmountCents   uint32 `json:"amount_cents"`
    ConfirmedAt   string `json:"confirmed_at"`
}
