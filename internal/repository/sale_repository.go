package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/tickethub/event-seat-reservation/internal/model"
)

// SaleRepo provides data access to the sales table.  Sales are written
// exactly once and never mutated; the storage-level unique constraints
// on reservation_id and (session_id, seat_id) back up the application's
// no-double-sale invariant.
type SaleRepo struct {
    db *sql.DB
}

// NewSaleRepo returns a new SaleRepo bound to the given database.
func NewSaleRepo(db *sql.DB) *SaleRepo { return &SaleRepo{db: db} }

// CreateTx inserts a sale within the provided transaction and populates
// the generated ID and created_at on the record.  A unique-constraint
// violation here means a concurrent writer already sold the seat, which
// the caller reports as a conflict.
func (r *SaleRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.Sale) error {
    const q = `INSERT INTO sales (reservation_id, session_id, seat_id, user_id, amount_cents)
               VALUES (?, ?, ?, ?, ?)`
    result, err := tx.ExecContext(ctx, q, s.ReservationID, s.SessionID, s.SeatID, s.UserID, s.AmountCents)
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    s.ID = uint64(id)
    const sel = `SELECT id, reservation_id, session_id, seat_id, user_id, amount_cents, created_at
                 FROM sales WHERE id = ?`
    return tx.QueryRowContext(ctx, sel, s.ID).Scan(
        &s.ID, &s.ReservationID, &s.SessionID, &s.SeatID, &s.UserID, &s.AmountCents, &s.CreatedAt,
    )
}

// GetByReservation returns the sale created from a reservation, or
// sql.ErrNoRows wrapped as ErrReservationNotFound when none exists.
func (r *SaleRepo) GetByReservation(ctx context.Context, reservationID uint64) (*model.Sale, error) {
    const q = `SELECT id, reservation_id, session_id, seat_id, user_id, amount_cents, created_at
               FROM sales WHERE reservation_id = ?`
    var s model.Sale
    err := r.db.QueryRowContext(ctx, q, reservationID).Scan(
        &s.ID, &s.ReservationID, &s.SessionID, &s.SeatID, &s.UserID, &s.AmountCents, &s.CreatedAt,
    )
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrReservationNotFound
    }
    if err != nil {
        return nil, err
    }
    return &s, nil
}

// CountBySession returns how many sales exist for a session.  Used by
// tests to assert the no-double-sale property after concurrent runs.
func (r *SaleRepo) CountBySession(ctx context.Context, sessionID uint64) (int, error) {
    var n int
    err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sales WHERE session_id = ?`, sessionID).Scan(&n)
    return n, err
}
