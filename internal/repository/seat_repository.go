package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/tickethub/event-seat-reservation/internal/model"
)

// SeatRepo encapsulates database operations for seats.  Seat status
// changes on the hot reservation path are expressed as single
// conditional UPDATE statements whose affected-row count is the success
// signal; read-then-write would race under contention.  All timestamps
// are stored and compared in UTC.
type SeatRepo struct {
    db *sql.DB
}

// NewSeatRepo returns a new SeatRepo bound to the given database.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

// CreateBulk inserts multiple seats in one statement.  It is used by the
// admin provisioning flow.  Only session_id, label and status are
// supplied; version and timestamps default in the DB.  Passing an empty
// slice has no effect and returns nil.
func (r *SeatRepo) CreateBulk(ctx context.Context, seats []model.Seat) error {
    if len(seats) == 0 {
        return nil
    }
    query := `INSERT INTO seats (session_id, label, status) VALUES `
    args := make([]interface{}, 0, len(seats)*3)
    for i, s := range seats {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?)"
        status := s.Status
        if status == "" {
            status = model.SeatAvailable
        }
        args = append(args, s.SessionID, s.Label, status)
    }
    _, err := r.db.ExecContext(ctx, query, args...)
    return err
}

// ListBySession returns all seats of a session ordered by label.  It is
// used for the public seat-map endpoint and by tests to assert seat
// state after concurrent runs.
func (r *SeatRepo) ListBySession(ctx context.Context, sessionID uint64) ([]model.Seat, error) {
    const q = `SELECT id, session_id, label, status, version, created_at, updated_at
               FROM seats WHERE session_id = ? ORDER BY label`
    rows, err := r.db.QueryContext(ctx, q, sessionID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    seats := make([]model.Seat, 0)
    for rows.Next() {
        var s model.Seat
        if err := rows.Scan(&s.ID, &s.SessionID, &s.Label, &s.Status, &s.Version, &s.CreatedAt, &s.UpdatedAt); err != nil {
            return nil, err
        }
        seats = append(seats, s)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return seats, nil
}

// GetByID returns a single seat or ErrSeatNotFound.
func (r *SeatRepo) GetByID(ctx context.Context, id uint64) (*model.Seat, error) {
    const q = `SELECT id, session_id, label, status, version, created_at, updated_at
               FROM seats WHERE id = ?`
    var s model.Seat
    err := r.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.SessionID, &s.Label, &s.Status, &s.Version, &s.CreatedAt, &s.UpdatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrSeatNotFound
    }
    if err != nil {
        return nil, err
    }
    return &s, nil
}

// LabelsByIDTx returns a map from seat id to label for the given ids,
// within the provided transaction.  Used to denormalize labels into
// outbox payloads.  Passing an empty slice returns an empty map.
func (r *SeatRepo) LabelsByIDTx(ctx context.Context, tx *sql.Tx, ids []uint64) (map[uint64]string, error) {
    labels := make(map[uint64]string, len(ids))
    if len(ids) == 0 {
        return labels, nil
    }
    q := `SELECT id, label FROM seats WHERE id IN (`
    args := make([]interface{}, 0, len(ids))
    for i, id := range ids {
        if i > 0 {
            q += ","
        }
        q += "?"
        args = append(args, id)
    }
    q += `)`
    rows, err := tx.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    for rows.Next() {
        var id uint64
        var label string
        if err := rows.Scan(&id, &label); err != nil {
            return nil, err
        }
        labels[id] = label
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return labels, nil
}

// CountBySessionTx returns the number of seats provisioned for a session
// within the given transaction.  The reservation engine uses this to
// validate the session's minimum seat count before claiming anything.
func (r *SeatRepo) CountBySessionTx(ctx context.Context, tx *sql.Tx, sessionID uint64) (uint32, error) {
    var n uint32
    err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM seats WHERE session_id = ?`, sessionID).Scan(&n)
    return n, err
}

// ClaimTx attempts the seat claim: AVAILABLE -> RESERVED with a version
// bump, as one conditional UPDATE.  It returns false without error when
// the seat was not available (someone else holds it, or it does not
// belong to the session).  The caller decides whether that aborts the
// whole transaction.
func (r *SeatRepo) ClaimTx(ctx context.Context, tx *sql.Tx, sessionID, seatID uint64) (bool, error) {
    const q = `UPDATE seats
               SET status = ?, version = version + 1
               WHERE id = ? AND session_id = ? AND status = ?`
    res, err := tx.ExecContext(ctx, q, model.SeatReserved, seatID, sessionID, model.SeatAvailable)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n == 1, nil
}

// GetByIDForUpdateTx loads a seat under an exclusive row lock.  The sale
// confirmation flow uses it to serialize against the expiration sweeper
// touching the same seat.  Returns ErrSeatNotFound when no row exists.
func (r *SeatRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Seat, error) {
    const q = `SELECT id, session_id, label, status, version, created_at, updated_at
               FROM seats WHERE id = ? FOR UPDATE`
    var s model.Seat
    err := tx.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.SessionID, &s.Label, &s.Status, &s.Version, &s.CreatedAt, &s.UpdatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrSeatNotFound
    }
    if err != nil {
        return nil, err
    }
    return &s, nil
}

// MarkSoldTx flips a seat RESERVED -> SOLD.  Returns false when the seat
// was not in RESERVED state, which the caller must treat as a conflict:
// a seat being confirmed must still hold its reservation's claim.
func (r *SeatRepo) MarkSoldTx(ctx context.Context, tx *sql.Tx, seatID uint64) (bool, error) {
    const q = `UPDATE seats SET status = ?, version = version + 1
               WHERE id = ? AND status = ?`
    res, err := tx.ExecContext(ctx, q, model.SeatSold, seatID, model.SeatReserved)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n == 1, nil
}

// ReleaseIfReservedTx returns a seat to AVAILABLE only when it is
// currently RESERVED.  The expiration sweeper calls this; the condition
// guards against the race where a just-completed sale already moved the
// seat to SOLD.  The boolean reports whether a release actually
// happened.
func (r *SeatRepo) ReleaseIfReservedTx(ctx context.Context, tx *sql.Tx, seatID uint64) (bool, error) {
    const q = `UPDATE seats SET status = ?, version = version + 1
               WHERE id = ? AND status = ?`
    res, err := tx.ExecContext(ctx, q, model.SeatAvailable, seatID, model.SeatReserved)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n == 1, nil
}

// UpdateStatus performs an administrative status change (for example
// AVAILABLE -> BLOCKED) as a conditional update from an expected current
// status.  Returns false when the seat was not in the expected state.
// Callers must validate the transition with model.CanTransitionSeat
// before calling.
func (r *SeatRepo) UpdateStatus(ctx context.Context, seatID uint64, from, to string) (bool, error) {
    const q = `UPDATE seats SET status = ?, version = version + 1
               WHERE id = ? AND status = ?`
    res, err := r.db.ExecContext(ctx, q, to, seatID, from)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n == 1, nil
}
