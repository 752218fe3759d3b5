package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/tickethub/event-seat-reservation/internal/model"
)

// SessionRepo provides data access to the sessions table.  It is the
// session-provider collaborator the engines consume: the reservation
// engine validates the session's status and minimum seat count through
// it, and the sale engine reads the ticket price.
type SessionRepo struct {
    db *sql.DB
}

// NewSessionRepo returns a new SessionRepo bound to the given database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

// Create inserts a new session and populates the generated ID and
// timestamps on the provided record.
func (r *SessionRepo) Create(ctx context.Context, s *model.Session) error {
    const q = `INSERT INTO sessions (name, status, ticket_price_cents, min_seats) VALUES (?, ?, ?, ?)`
    result, err := r.db.ExecContext(ctx, q, s.Name, s.Status, s.TicketPriceCents, s.MinSeats)
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    s.ID = uint64(id)
    const sel = `SELECT id, name, status, ticket_price_cents, min_seats, created_at, updated_at
                 FROM sessions WHERE id = ?`
    return r.db.QueryRowContext(ctx, sel, s.ID).Scan(
        &s.ID, &s.Name, &s.Status, &s.TicketPriceCents, &s.MinSeats, &s.CreatedAt, &s.UpdatedAt,
    )
}

// GetByID returns a session or ErrSessionNotFound.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (*model.Session, error) {
    const q = `SELECT id, name, status, ticket_price_cents, min_seats, created_at, updated_at
               FROM sessions WHERE id = ?`
    var s model.Session
    err := r.db.QueryRowContext(ctx, q, id).Scan(
        &s.ID, &s.Name, &s.Status, &s.TicketPriceCents, &s.MinSeats, &s.CreatedAt, &s.UpdatedAt,
    )
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrSessionNotFound
    }
    if err != nil {
        return nil, err
    }
    return &s, nil
}

// GetByIDTx is GetByID executed within a transaction, so the session
// snapshot the engines validate against belongs to the same unit of
// work as the seat claims.
func (r *SessionRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Session, error) {
    const q = `SELECT id, name, status, ticket_price_cents, min_seats, created_at, updated_at
               FROM sessions WHERE id = ?`
    var s model.Session
    err := tx.QueryRowContext(ctx, q, id).Scan(
        &s.ID, &s.Name, &s.Status, &s.TicketPriceCents, &s.MinSeats, &s.CreatedAt, &s.UpdatedAt,
    )
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrSessionNotFound
    }
    if err != nil {
        return nil, err
    }
    return &s, nil
}

// UpdateStatus sets the session status.  Returns ErrSessionNotFound when
// no row exists.  MySQL reports zero affected rows for an update that
// leaves the row unchanged, so a zero count alone cannot distinguish a
// missing session from a no-op; an existence check settles it.
func (r *SessionRepo) UpdateStatus(ctx context.Context, id uint64, status string) error {
    res, err := r.db.ExecContext(ctx, `UPDATE sessions SET status = ? WHERE id = ?`, status, id)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        var one int
        err := r.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, id).Scan(&one)
        if errors.Is(err, sql.ErrNoRows) {
            return ErrSessionNotFound
        }
        return err
    }
    return nil
}
