package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/tickethub/event-seat-reservation/internal/model"
)

// ReservationRepo provides data access to the reservations table.  A
// reservation holds exactly one seat, so a multi-seat request produces
// one row per seat inside a single transaction.  All timestamp fields
// are stored in UTC.
type ReservationRepo struct {
    db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// CreateTx inserts a new PENDING reservation within the scope of an
// existing transaction and populates the generated ID and timestamps on
// the provided record.  The partial unique index on
// (session_id, pending_seat) makes a duplicate pending hold on the same
// seat fail here even if the seat-claim UPDATE was somehow bypassed.
// The caller must commit or roll back the transaction.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
    const q = `INSERT INTO reservations (session_id, seat_id, user_id, status, expires_at)
               VALUES (?, ?, ?, ?, ?)`
    result, err := tx.ExecContext(ctx, q,
        res.SessionID, res.SeatID, res.UserID, model.ReservationPending,
        res.ExpiresAt.UTC().Format("2006-01-02 15:04:05"),
    )
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    res.ID = uint64(id)
    // Query back the full row to populate timestamps and defaults
    const sel = `SELECT id, session_id, seat_id, user_id, status, expires_at, created_at, updated_at
                 FROM reservations WHERE id = ?`
    return tx.QueryRowContext(ctx, sel, res.ID).Scan(
        &res.ID, &res.SessionID, &res.SeatID, &res.UserID, &res.Status,
        &res.ExpiresAt, &res.CreatedAt, &res.UpdatedAt,
    )
}

// GetByIDForUpdateTx loads a reservation under an exclusive row lock.
// Pessimistic locking is deliberate here: the sale confirmation and the
// expiration sweep race on exactly this row, and the lock forces them to
// serialize so precisely one of them wins.  Returns
// ErrReservationNotFound when no row exists.
func (r *ReservationRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reservation, error) {
    const q = `SELECT id, session_id, seat_id, user_id, status, expires_at, created_at, updated_at
               FROM reservations WHERE id = ? FOR UPDATE`
    var res model.Reservation
    err := tx.QueryRowContext(ctx, q, id).Scan(
        &res.ID, &res.SessionID, &res.SeatID, &res.UserID, &res.Status,
        &res.ExpiresAt, &res.CreatedAt, &res.UpdatedAt,
    )
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrReservationNotFound
    }
    if err != nil {
        return nil, err
    }
    return &res, nil
}

// UpdateStatusTx sets the reservation status within a transaction.  The
// pending_seat generated column recomputes automatically, freeing the
// partial-unique slot for the seat once the row leaves PENDING.
func (r *ReservationRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
    _, err := tx.ExecContext(ctx, `UPDATE reservations SET status = ? WHERE id = ?`, status, id)
    return err
}

// SelectDue returns the ids of PENDING reservations whose expires_at has
// passed, oldest first, bounded by limit.  This read runs outside any
// transaction; the sweeper re-validates each row under a lock before
// mutating it because time passes between the select and the per-row
// work.
func (r *ReservationRepo) SelectDue(ctx context.Context, now time.Time, limit int) ([]uint64, error) {
    const q = `SELECT id FROM reservations
               WHERE status = ? AND expires_at <= ?
               ORDER BY expires_at
               LIMIT ?`
    rows, err := r.db.QueryContext(ctx, q, model.ReservationPending, now.UTC().Format("2006-01-02 15:04:05"), limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var ids []uint64
    for rows.Next() {
        var id uint64
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        ids = append(ids, id)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return ids, nil
}

// GetByID returns a reservation without locking, or ErrReservationNotFound.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
    const q = `SELECT id, session_id, seat_id, user_id, status, expires_at, created_at, updated_at
               FROM reservations WHERE id = ?`
    var res model.Reservation
    err := r.db.QueryRowContext(ctx, q, id).Scan(
        &res.ID, &res.SessionID, &res.SeatID, &res.UserID, &res.Status,
        &res.ExpiresAt, &res.CreatedAt, &res.UpdatedAt,
    )
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrReservationNotFound
    }
    if err != nil {
        return nil, err
    }
    return &res, nil
}

// ListByUser returns all reservations for the given user, newest first.
// When no reservations exist, an empty slice is returned.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
    const q = `SELECT id, session_id, seat_id, user_id, status, expires_at, created_at, updated_at
               FROM reservations
               WHERE user_id = ?
               ORDER BY created_at DESC`
    rows, err := r.db.QueryContext(ctx, q, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Reservation, 0)
    for rows.Next() {
        var res model.Reservation
        if err := rows.Scan(
            &res.ID, &res.SessionID, &res.SeatID, &res.UserID, &res.Status,
            &res.ExpiresAt, &res.CreatedAt, &res.UpdatedAt,
        ); err != nil {
            return nil, err
        }
        out = append(out, res)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}
