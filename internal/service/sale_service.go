package service

import (
    "context"
    "database/sql"
    "encoding/json"
    "time"

    "github.com/tickethub/event-seat-reservation/internal/model"
    "github.com/tickethub/event-seat-reservation/internal/queue"
    "github.com/tickethub/event-seat-reservation/internal/repository"
)

// SaleService converts a pending reservation into a finalized sale.
type SaleService struct {
    db           *sql.DB
    sessions     *repository.SessionRepo
    seats        *repository.SeatRepo
    reservations *repository.ReservationRepo
    sales        *repository.SaleRepo
    outbox       *repository.OutboxRepo
}

func NewSaleService(db *sql.DB, sessions *repository.SessionRepo, seats *repository.SeatRepo, reservations *repository.ReservationRepo, sales *repository.SaleRepo, outbox *repository.OutboxRepo) *SaleService {
    if db == nil || sessions == nil || seats == nil || reservations == nil || sales == nil || outbox == nil {
        panic("nil dependency passed to NewSaleService")
    }
    return &SaleService{
        db:           db,
        sessions:     sessions,
        seats:        seats,
        reservations: reservations,
        sales:        sales,
        outbox:       outbox,
    }
}

// Confirm finalizes a reservation into a sale.  It takes exclusive row
// locks on the reservation and its seat, in that order, so it cannot
// interleave with the expiration sweep or a concurrent confirmation of
// the same reservation.  The reservation must still be PENDING and
// unexpired, and the seat must be exactly RESERVED.  On success the
// reservation becomes CONFIRMED, the seat becomes SOLD, a sale row is
// inserted at the session's current ticket price, and the payment event
// goes into the outbox, all in one commit.
func (s *SaleService) Confirm(ctx context.Context, reservationID, userID uint64) (*model.Sale, error) {
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

    res, err := s.reservations.GetByIDForUpdateTx(ctx, tx, reservationID)
    if err != nil {
        return nil, err
    }
    if res.UserID != userID {
        return nil, repository.ErrForbidden
    }
    now := time.Now().UTC()
    if res.Status == model.ReservationPending && res.IsExpiredAt(now) {
        // Lapsed but not yet swept.  Reported distinctly from a plain
        // conflict so clients can tell "too late" from "already taken".
        return nil, repository.ErrReservationExpired
    }
    if res.Status != model.ReservationPending {
        return nil, repository.ErrConflict
    }

    seat, err := s.seats.GetByIDForUpdateTx(ctx, tx, res.SeatID)
    if err != nil {
        return nil, err
    }
    if seat.Status != model.SeatReserved {
        return nil, repository.ErrConflict
    }

    sess, err := s.sessions.GetByIDTx(ctx, tx, res.SessionID)
    if err != nil {
        return nil, err
    }

    if err := s.reservations.UpdateStatusTx(ctx, tx, res.ID, model.ReservationConfirmed); err != nil {
        return nil, err
    }
    sold, err := s.seats.MarkSoldTx(ctx, tx, seat.ID)
    if err != nil {
        return nil, err
    }
    if !sold {
        return nil, repository.ErrConflict
    }

    sale := &model.Sale{
        ReservationID: res.ID,
        SessionID:     res.SessionID,
        SeatID:        seat.ID,
        UserID:        userID,
        AmountCents:   sess.TicketPriceCents,
    }
    if err := s.sales.CreateTx(ctx, tx, sale); err != nil {
        return nil, err
    }

    payload, err := json.Marshal(queue.PaymentConfirmedEvent{
        SaleID:        sale.ID,
        ReservationID: res.ID,
        SessionID:     res.SessionID,
        SeatID:        seat.ID,
        UserID:        userID,
        AmountCents:   sale.AmountCents,
        ConfirmedAt:   now.Format(time.RFC3339),
    })
    if err != nil {
        return nil, err
    }
    if err := s.outbox.InsertTx(ctx, tx, repository.ReservationOutbox, model.EventPaymentConfirmed, payload); err != nil {
        return nil, err
    }

    if err := tx.Commit(); err != nil {
        return nil, err
    }
    committed = true
    return sale, nil
}
