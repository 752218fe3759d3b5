package database

import (
    "context"
    "database/sql"
    "fmt"
)

// migrations contains the schema statements executed on startup, in
// order.  Every statement is idempotent (CREATE TABLE IF NOT EXISTS) so
// repeated boots are safe.
//
// Concurrency-relevant details of the schema:
//   - seats carries a unique (session_id, label) plus a version counter
//     bumped on every state change.
//   - reservations enforces "at most one PENDING reservation per seat"
//     through pending_seat, a generated column that holds the seat id
//     only while status='PENDING' and is NULL otherwise.  The unique
//     index over (session_id, pending_seat) ignores NULLs, which gives
//     the partial-uniqueness semantics MySQL lacks natively.  This is
//     the last line of defense against races the application misses.
//   - sales is doubly guarded: reservation_id is unique and so is
//     (session_id, seat_id), so a seat sells at most once per session.
//   - the two outbox tables keep retry bookkeeping on the row and are
//     indexed by (published, next_retry_at, created_at) for the relay's
//     due-batch scan.
var migrations = []string{
    `CREATE TABLE IF NOT EXISTS users (
        id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
        email VARCHAR(255) NOT NULL,
        password_hash VARCHAR(255) NOT NULL,
        role VARCHAR(16) NOT NULL DEFAULT 'CUSTOMER',
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
        PRIMARY KEY (id),
        UNIQUE KEY uq_users_email (email)
    ) ENGINE=InnoDB`,

    `CREATE TABLE IF NOT EXISTS sessions (
        id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
        name VARCHAR(255) NOT NULL,
        status VARCHAR(16) NOT NULL DEFAULT 'DRAFT',
        ticket_price_cents INT UNSIGNED NOT NULL,
        min_seats INT UNSIGNED NOT NULL DEFAULT 1,
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
        PRIMARY KEY (id)
    ) ENGINE=InnoDB`,

    `CREATE TABLE IF NOT EXISTS seats (
        id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
        session_id BIGINT UNSIGNED NOT NULL,
        label VARCHAR(16) NOT NULL,
        status VARCHAR(16) NOT NULL DEFAULT 'AVAILABLE',
        version INT UNSIGNED NOT NULL DEFAULT 0,
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
        PRIMARY KEY (id),
        UNIQUE KEY uq_seats_session_label (session_id, label),
        KEY idx_seats_session_status (session_id, status),
        CONSTRAINT fk_seats_session FOREIGN KEY (session_id) REFERENCES sessions(id)
    ) ENGINE=InnoDB`,

    `CREATE TABLE IF NOT EXISTS reservations (
        id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
        session_id BIGINT UNSIGNED NOT NULL,
        seat_id BIGINT UNSIGNED NOT NULL,
        user_id BIGINT UNSIGNED NOT NULL,
        status VARCHAR(16) NOT NULL DEFAULT 'PENDING',
        expires_at DATETIME NOT NULL,
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
        pending_seat BIGINT UNSIGNED GENERATED ALWAYS AS (IF(status = 'PENDING', seat_id, NULL)) STORED,
        PRIMARY KEY (id),
        UNIQUE KEY uq_reservations_pending_seat (session_id, pending_seat),
        KEY idx_reservations_status_expires (status, expires_at),
        CONSTRAINT fk_reservations_session FOREIGN KEY (session_id) REFERENCES sessions(id),
        CONSTRAINT fk_reservations_seat FOREIGN KEY (seat_id) REFERENCES seats(id)
    ) ENGINE=InnoDB`,

    `CREATE TABLE IF NOT EXISTS sales (
        id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
        reservation_id BIGINT UNSIGNED NOT NULL,
        session_id BIGINT UNSIGNED NOT NULL,
        seat_id BIGINT UNSIGNED NOT NULL,
        user_id BIGINT UNSIGNED NOT NULL,
        amount_cents INT UNSIGNED NOT NULL,
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        PRIMARY KEY (id),
        UNIQUE KEY uq_sales_reservation (reservation_id),
        UNIQUE KEY uq_sales_session_seat (session_id, seat_id),
        CONSTRAINT fk_sales_reservation FOREIGN KEY (reservation_id) REFERENCES reservations(id) ON DELETE RESTRICT
    ) ENGINE=InnoDB`,

    `CREATE TABLE IF NOT EXISTS reservation_outbox (
        id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
        event_name VARCHAR(64) NOT NULL,
        payload JSON NOT NULL,
        published TINYINT(1) NOT NULL DEFAULT 0,
        retry_count INT UNSIGNED NOT NULL DEFAULT 0,
        next_retry_at DATETIME NULL,
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        PRIMARY KEY (id),
        KEY idx_reservation_outbox_due (published, next_retry_at, created_at)
    ) ENGINE=InnoDB`,

    `CREATE TABLE IF NOT EXISTS expiration_outbox (
        id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
        event_name VARCHAR(64) NOT NULL,
        payload JSON NOT NULL,
        published TINYINT(1) NOT NULL DEFAULT 0,
        retry_count INT UNSIGNED NOT NULL DEFAULT 0,
        next_retry_at DATETIME NULL,
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        PRIMARY KEY (id),
        KEY idx_expiration_outbox_due (published, next_retry_at, created_at)
    ) ENGINE=InnoDB`,
}

// Migrate applies the schema to the given database.  It is called once
// at startup, before the HTTP server and background workers begin.
func Migrate(ctx context.Context, db *sql.DB) error {
    for i, stmt := range migrations {
        if _, err := db.ExecContext(ctx, stmt); err != nil {
            return fmt.Errorf("migration %d failed: %w", i, err)
        }
    }
    return nil
}
