package model

import "time"

// Seat statuses.  A seat moves through these states over the lifetime of a
// session.  The legal transitions are encoded in seatTransitions below and
// enforced both here and by conditional UPDATE statements in the
// repository layer.
const (
    SeatAvailable   = "AVAILABLE"
    SeatReserved    = "RESERVED"
    SeatSold        = "SOLD"
    SeatBlocked     = "BLOCKED"
    SeatMaintenance = "MAINTENANCE"
)

// Seat describes a purchasable position within one session.  Seats are
// uniquely identified by their session and label.  The version counter is
// incremented on every state-changing update so that concurrent writers
// can detect lost updates.
//
// Fields:
//  ID        – primary key identifier.
//  SessionID – session to which this seat belongs.
//  Label     – human readable label such as "A1"; unique per session.
//  Status    – one of the Seat* constants above.
//  Version   – monotonic counter bumped on every status change.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Seat struct {
    ID        uint64    `json:"id"`         // seats.id
    SessionID uint64    `json:"session_id"` // seats.session_id
    Label     string    `json:"label"`      // seats.label
    Status    string    `json:"status"`     // seats.status
    Version   uint32    `json:"version"`    // seats.version
    CreatedAt time.Time `json:"created_at"` // seats.created_at
    UpdatedAt time.Time `json:"updated_at"` // seats.updated_at
}

// seatTransitions lists every legal seat status transition.  There is no
// transition out of SOLD; a sold seat stays sold for the lifetime of the
// session.
var seatTransitions = map[string][]string{
    SeatAvailable:   {SeatReserved, SeatBlocked, SeatMaintenance},
    SeatReserved:    {SeatSold, SeatAvailable},
    SeatBlocked:     {SeatAvailable},
    SeatMaintenance: {SeatAvailable},
}

// CanTransitionSeat reports whether moving a seat from one status to
// another is permitted.  Unknown statuses never transition.
func CanTransitionSeat(from, to string) bool {
    for _, t := range seatTransitions[from] {
        if t == to {
            return true
        }
    }
    return false
}

// ValidSeatStatus reports whether s is one of the known seat statuses.
func ValidSeatStatus(s string) bool {
    switch s {
    case SeatAvailable, SeatReserved, SeatSold, SeatBlocked, SeatMaintenance:
        return true
    }
    return false
}
