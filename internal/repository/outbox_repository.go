package repository

import (
    "context"
    "database/sql"
    "fmt"
    "time"

    "github.com/tickethub/event-seat-reservation/internal/model"
)

// OutboxTable selects which of the two outbox tables an operation works
// on.  Creation-side events (reservation.created, payment.confirmed) and
// expiration-side events (reservation.expired, seat.released) live in
// separate tables so the sweeper and the request path never contend on
// the same rows.
type OutboxTable string

const (
    ReservationOutbox OutboxTable = "reservation_outbox"
    ExpirationOutbox  OutboxTable = "expiration_outbox"
)

// name returns the SQL table name after validating the selector.  Table
// names cannot be bound as placeholders, so the whitelist here is what
// keeps the query construction safe.
func (t OutboxTable) name() (string, error) {
    switch t {
    case ReservationOutbox, ExpirationOutbox:
        return string(t), nil
    }
    return "", fmt.Errorf("unknown outbox table %q", string(t))
}

// OutboxRepo provides data access to the two outbox tables.  Entries are
// inserted inside the transaction of the state change they describe and
// later drained by the relay.
type OutboxRepo struct {
    db *sql.DB
}

// NewOutboxRepo returns a new OutboxRepo bound to the given database.
func NewOutboxRepo(db *sql.DB) *OutboxRepo { return &OutboxRepo{db: db} }

// InsertTx appends a single entry within the provided transaction.
func (r *OutboxRepo) InsertTx(ctx context.Context, tx *sql.Tx, table OutboxTable, eventName string, payload []byte) error {
    tbl, err := table.name()
    if err != nil {
        return err
    }
    q := `INSERT INTO ` + tbl + ` (event_name, payload) VALUES (?, ?)`
    _, err = tx.ExecContext(ctx, q, eventName, payload)
    return err
}

// InsertBulkTx appends multiple entries in one statement within the
// provided transaction.  Passing an empty slice has no effect and
// returns nil.
func (r *OutboxRepo) InsertBulkTx(ctx context.Context, tx *sql.Tx, table OutboxTable, entries []model.OutboxEntry) error {
    if len(entries) == 0 {
        return nil
    }
    tbl, err := table.name()
    if err != nil {
        return err
    }
    q := `INSERT INTO ` + tbl + ` (event_name, payload) VALUES `
    args := make([]interface{}, 0, len(entries)*2)
    for i, e := range entries {
        if i > 0 {
            q += ","
        }
        q += "(?, ?)"
        args = append(args, e.EventName, e.Payload)
    }
    _, err = tx.ExecContext(ctx, q, args...)
    return err
}

// FetchDue returns up to limit unpublished entries whose retry schedule
// allows an attempt now, oldest first.  Rows that exhausted maxRetries
// are excluded; they stay in the table for inspection until an operator
// intervenes or retention deletes their published siblings around them.
func (r *OutboxRepo) FetchDue(ctx context.Context, table OutboxTable, now time.Time, limit int, maxRetries uint32) ([]model.OutboxEntry, error) {
    tbl, err := table.name()
    if err != nil {
        return nil, err
    }
    q := `SELECT id, event_name, payload, published, retry_count, next_retry_at, created_at
          FROM ` + tbl + `
          WHERE published = 0
            AND retry_count <= ?
            AND (next_retry_at IS NULL OR next_retry_at <= ?)
          ORDER BY created_at
          LIMIT ?`
    rows, err := r.db.QueryContext(ctx, q, maxRetries, now.UTC().Format("2006-01-02 15:04:05"), limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var entries []model.OutboxEntry
    for rows.Next() {
        var e model.OutboxEntry
        var nextRetry sql.NullTime
        if err := rows.Scan(&e.ID, &e.EventName, &e.Payload, &e.Published, &e.RetryCount, &nextRetry, &e.CreatedAt); err != nil {
            return nil, err
        }
        if nextRetry.Valid {
            t := nextRetry.Time
            e.NextRetryAt = &t
        }
        entries = append(entries, e)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return entries, nil
}

// MarkPublished flags an entry as delivered.
func (r *OutboxRepo) MarkPublished(ctx context.Context, table OutboxTable, id uint64) error {
    tbl, err := table.name()
    if err != nil {
        return err
    }
    _, err = r.db.ExecContext(ctx, `UPDATE `+tbl+` SET published = 1 WHERE id = ?`, id)
    return err
}

// ScheduleRetry records a failed publish attempt: it bumps retry_count
// and stores the next attempt time computed by the relay's backoff.
func (r *OutboxRepo) ScheduleRetry(ctx context.Context, table OutboxTable, id uint64, nextRetryAt time.Time) error {
    tbl, err := table.name()
    if err != nil {
        return err
    }
    q := `UPDATE ` + tbl + ` SET retry_count = retry_count + 1, next_retry_at = ? WHERE id = ?`
    _, err = r.db.ExecContext(ctx, q, nextRetryAt.UTC().Format("2006-01-02 15:04:05"), id)
    return err
}

// DeletePublishedBefore removes published entries created before the
// cutoff and returns how many rows were deleted.  Called by the
// retention cleanup job.
func (r *OutboxRepo) DeletePublishedBefore(ctx context.Context, table OutboxTable, cutoff time.Time) (int64, error) {
    tbl, err := table.name()
    if err != nil {
        return 0, err
    }
    q := `DELETE FROM ` + tbl + ` WHERE published = 1 AND created_at < ?`
    res, err := r.db.ExecContext(ctx, q, cutoff.UTC().Format("2006-01-02 15:04:05"))
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}
