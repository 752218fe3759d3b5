// Package service contains the reservation and sale engines plus the
// periodic outbox relay.  Every engine runs its mutations inside one
// database transaction: either the whole request takes effect, or none
// of it does, and the matching outbox rows commit atomically with the
// state change they describe.
package service

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"
    "fmt"
    "log"
    "sort"
    "time"

    "github.com/tickethub/event-seat-reservation/internal/model"
    "github.com/tickethub/event-seat-reservation/internal/queue"
    "github.com/tickethub/event-seat-reservation/internal/repository"
)

// ErrValidation marks failures rejected before any mutation: bad input
// shape, seat counts out of range, sessions not open for booking.
// Handlers translate it into HTTP 400.
var ErrValidation = errors.New("validation")

// Bounds on the number of seats a single reservation request may claim.
const (
    MinSeatsPerRequest = 1
    MaxSeatsPerRequest = 20
)

// ReservationService implements the reservation lifecycle: creation of
// time-bounded holds, cancellation, and the expiration sweep body.
type ReservationService struct {
    db           *sql.DB
    sessions     *repository.SessionRepo
    seats        *repository.SeatRepo
    reservations *repository.ReservationRepo
    outbox       *repository.OutboxRepo
    ttl          time.Duration // hold duration for new reservations
}

// NewReservationService constructs the service.  ttl is the reservation
// hold duration (expires_at = now + ttl).
func NewReservationService(db *sql.DB, sessions *repository.SessionRepo, seats *repository.SeatRepo, reservations *repository.ReservationRepo, outbox *repository.OutboxRepo, ttl time.Duration) *ReservationService {
    if db == nil || sessions == nil || seats == nil || reservations == nil || outbox == nil {
        panic("nil dependency passed to NewReservationService")
    }
    return &ReservationService{
        db:           db,
        sessions:     sessions,
        seats:        seats,
        reservations: reservations,
        outbox:       outbox,
        ttl:          ttl,
    }
}

// CreatedReservation is the per-seat result returned to the caller.
type CreatedReservation struct {
    ID        uint64    `json:"id"`
    SeatID    uint64    `json:"seat_id"`
    ExpiresAt time.Time `json:"expires_at"`
}

// canonicalSeatIDs deduplicates the requested seat ids and sorts them
// into ascending order.  The sort is the deadlock-avoidance rule: two
// concurrent requests wanting overlapping seats always lock rows in the
// same order, so the database's internal locking cannot form a cycle.
// It is a pure function applied before any I/O.
func canonicalSeatIDs(seatIDs []uint64) []uint64 {
    unique := make([]uint64, 0, len(seatIDs))
    seen := make(map[uint64]struct{}, len(seatIDs))
    for _, id := range seatIDs {
        if id == 0 {
            continue
        }
        if _, ok := seen[id]; !ok {
            seen[id] = struct{}{}
            unique = append(unique, id)
        }
    }
    sort.Slice(unique, func(i, j int) bool { return unique[i] < unique[j] })
    return unique
}

// Create attempts to reserve all requested seats for the user in one
// transaction.  Either every seat is claimed and one PENDING reservation
// per seat is inserted together with its outbox entry, or the whole
// request rolls back.  A seat that is not AVAILABLE aborts the request
// with a SeatConflictError naming it.
func (s *ReservationService) Create(ctx context.Context, sessionID, userID uint64, seatIDs []uint64) ([]CreatedReservation, error) {
    ids := canonicalSeatIDs(seatIDs)
    if len(ids) < MinSeatsPerRequest {
        return nil, fmt.Errorf("%w: at least one seat id required", ErrValidation)
    }
    if len(ids) > MaxSeatsPerRequest {
        return nil, fmt.Errorf("%w: at most %d seats per request", ErrValidation, MaxSeatsPerRequest)
    }

    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    sess, err := s.sessions.GetByIDTx(ctx, tx, sessionID)
    if err != nil {
        return nil, err
    }
    if !sess.IsBookable() {
        return nil, fmt.Errorf("%w: session is not open for booking", ErrValidation)
    }
    seatCount, err := s.seats.CountBySessionTx(ctx, tx, sessionID)
    if err != nil {
        return nil, err
    }
    if seatCount < sess.MinSeats {
        return nil, fmt.Errorf("%w: session has %d seats, minimum is %d", ErrValidation, seatCount, sess.MinSeats)
    }

    // Claim each seat with a conditional update, in canonical order.
    // The first failed claim aborts the whole unit of work; the deferred
    // rollback releases every claim made so far.
    for _, seatID := range ids {
        ok, err := s.seats.ClaimTx(ctx, tx, sessionID, seatID)
        if err != nil {
            return nil, err
        }
        if !ok {
            return nil, &repository.SeatConflictError{SeatIDs: []uint64{seatID}}
        }
    }

    labels, err := s.seats.LabelsByIDTx(ctx, tx, ids)
    if err != nil {
        return nil, err
    }

    expiresAt := time.Now().UTC().Add(s.ttl)
    created := make([]CreatedReservation, 0, len(ids))
    entries := make([]model.OutboxEntry, 0, len(ids))
    for _, seatID := range ids {
        res := &model.Reservation{
            SessionID: sessionID,
            SeatID:    seatID,
            UserID:    userID,
            ExpiresAt: expiresAt,
        }
        if err := s.reservations.CreateTx(ctx, tx, res); err != nil {
            return nil, err
        }
        created = append(created, CreatedReservation{ID: res.ID, SeatID: seatID, ExpiresAt: res.ExpiresAt})

        payload, err := json.Marshal(queue.ReservationCreatedEvent{
            ReservationID: res.ID,
            SessionID:     sessionID,
            SeatID:        seatID,
            SeatLabel:     labels[seatID],
            UserID:        userID,
            ExpiresAt:     res.ExpiresAt.Format(time.RFC3339),
            CreatedAt:     res.CreatedAt.UTC().Format(time.RFC3339),
        })
        if err != nil {
            return nil, err
        }
        entries = append(entries, model.OutboxEntry{EventName: model.EventReservationCreated, Payload: payload})
    }
    if err := s.outbox.InsertBulkTx(ctx, tx, repository.ReservationOutbox, entries); err != nil {
        return nil, err
    }

    if err := tx.Commit(); err != nil {
        return nil, err
    }
    committed = true
    return created, nil
}

// Cancel sets a PENDING reservation to CANCELLED and releases its seat
// if still RESERVED.  The same pending-only precondition as the sale
// engine applies, under the same exclusive row lock, so a cancel can
// never race past a concurrent confirmation or sweep.
func (s *ReservationService) Cancel(ctx context.Context, reservationID, userID uint64) error {
    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    res, err := s.reservations.GetByIDForUpdateTx(ctx, tx, reservationID)
    if err != nil {
        return err
    }
    if res.UserID != userID {
        return repository.ErrForbidden
    }
    if res.Status != model.ReservationPending {
        return repository.ErrConflict
    }
    if err := s.reservations.UpdateStatusTx(ctx, tx, res.ID, model.ReservationCancelled); err != nil {
        return err
    }
    released, err := s.seats.ReleaseIfReservedTx(ctx, tx, res.SeatID)
    if err != nil {
        return err
    }
    if released {
        payload, err := json.Marshal(queue.SeatReleasedEvent{
            SessionID:  res.SessionID,
            SeatID:     res.SeatID,
            ReleasedAt: time.Now().UTC().Format(time.RFC3339),
        })
        if err != nil {
            return err
        }
        if err := s.outbox.InsertTx(ctx, tx, repository.ReservationOutbox, model.EventSeatReleased, payload); err != nil {
            return err
        }
    }

    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// ListByUser returns the caller's reservations, newest first.
func (s *ReservationService) ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
    return s.reservations.ListByUser(ctx, userID)
}

// ExpireDue is the sweep body: it finds PENDING reservations past their
// expiry and lapses each in its own transaction, so one bad row cannot
// block the rest.  It returns how many reservations were expired.
// Per-row failures are logged and skipped.
func (s *ReservationService) ExpireDue(ctx context.Context, batch int) (int, error) {
    now := time.Now().UTC()
    ids, err := s.reservations.SelectDue(ctx, now, batch)
    if err != nil {
        return 0, err
    }
    expired := 0
    for _, id := range ids {
        ok, err := s.expireOne(ctx, id, now)
        if err != nil {
            log.Printf("sweeper: reservation %d: %v", id, err)
            continue
        }
        if ok {
            expired++
        }
    }
    return expired, nil
}

// expireOne lapses a single reservation in its own transaction.  The
// status is re-checked under an exclusive lock because time has passed
// since the due-scan; a reservation confirmed in the meantime is left
// alone.  The seat is released only if still RESERVED, guarding against
// the race where a just-completed sale moved it to SOLD, and the
// outcome is recorded in the expiration outbox.
func (s *ReservationService) expireOne(ctx context.Context, reservationID uint64, now time.Time) (bool, error) {
    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil {
        return false, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    res, err := s.reservations.GetByIDForUpdateTx(ctx, tx, reservationID)
    if err != nil {
        return false, err
    }
    if res.Status != model.ReservationPending || !res.IsExpiredAt(now) {
        return false, nil
    }
    if err := s.reservations.UpdateStatusTx(ctx, tx, res.ID, model.ReservationExpired); err != nil {
        return false, err
    }
    released, err := s.seats.ReleaseIfReservedTx(ctx, tx, res.SeatID)
    if err != nil {
        return false, err
    }

    expiredPayload, err := json.Marshal(queue.ReservationExpiredEvent{
        ReservationID: res.ID,
        SessionID:     res.SessionID,
        SeatID:        res.SeatID,
        UserID:        res.UserID,
        SeatReleased:  released,
        ExpiredAt:     now.Format(time.RFC3339),
    })
    if err != nil {
        return false, err
    }
    if err := s.outbox.InsertTx(ctx, tx, repository.ExpirationOutbox, model.EventReservationExpired, expiredPayload); err != nil {
        return false, err
    }
    if released {
        releasedPayload, err := json.Marshal(queue.SeatReleasedEvent{
            SessionID:  res.SessionID,
            SeatID:     res.SeatID,
            ReleasedAt: now.Format(time.RFC3339),
        })
        if err != nil {
            return false, err
        }
        if err := s.outbox.InsertTx(ctx, tx, repository.ExpirationOutbox, model.EventSeatReleased, releasedPayload); err != nil {
            return false, err
        }
    }

    if err := tx.Commit(); err != nil {
        return false, err
    }
    committed = true
    return true, nil
}
