package repository

import (
    "context"
    "database/sql"
    "os"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/tickethub/event-seat-reservation/internal/database"
    "github.com/tickethub/event-seat-reservation/internal/model"
)

// testDB connects to the test MySQL instance and applies the schema, or
// skips the test when no database is reachable.
func testDB(t *testing.T) *sql.DB {
    t.Helper()
    get := func(key, def string) string {
        if v := os.Getenv(key); v != "" {
            return v
        }
        return def
    }
    db, err := database.Open(
        get("TEST_DB_USER", "root"), os.Getenv("TEST_DB_PASS"),
        get("TEST_DB_HOST", "localhost"), get("TEST_DB_PORT", "3306"),
        get("TEST_DB_NAME", "seat_reservation_test"),
    )
    if err != nil {
        t.Skipf("mysql not available: %v", err)
    }
    t.Cleanup(func() { _ = db.Close() })
    require.NoError(t, database.Migrate(context.Background(), db))
    return db
}

func TestSessionUpdateStatus(t *testing.T) {
    db := testDB(t)
    repo := NewSessionRepo(db)
    ctx := context.Background()

    sess := &model.Session{Name: "status test", Status: model.SessionDraft, TicketPriceCents: 1000, MinSeats: 1}
    require.NoError(t, repo.Create(ctx, sess))

    require.NoError(t, repo.UpdateStatus(ctx, sess.ID, model.SessionActive))
    got, err := repo.GetByID(ctx, sess.ID)
    require.NoError(t, err)
    assert.Equal(t, model.SessionActive, got.Status)

    assert.ErrorIs(t, repo.UpdateStatus(ctx, sess.ID+1000000, model.SessionActive), ErrSessionNotFound)
}

func TestSessionUpdateStatusNoOpIsNotNotFound(t *testing.T) {
    db := testDB(t)
    repo := NewSessionRepo(db)
    ctx := context.Background()

    sess := &model.Session{Name: "no-op status test", Status: model.SessionActive, TicketPriceCents: 1000, MinSeats: 1}
    require.NoError(t, repo.Create(ctx, sess))

    // Setting the current status again affects zero rows; that must not
    // be reported as a missing session.
    assert.NoError(t, repo.UpdateStatus(ctx, sess.ID, model.SessionActive))

    got, err := repo.GetByID(ctx, sess.ID)
    require.NoError(t, err)
    assert.Equal(t, model.SessionActive, got.Status)
}
