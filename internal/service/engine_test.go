package service

import (
    "context"
    "database/sql"
    "fmt"
    "os"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/tickethub/event-seat-reservation/internal/database"
    "github.com/tickethub/event-seat-reservation/internal/model"
    "github.com/tickethub/event-seat-reservation/internal/repository"
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

// engineEnv bundles the repositories and services under test against a
// real database.  Each test provisions its own session, so tests never
// contend on each other's seats.
type engineEnv struct {
    db           *sql.DB
    sessions     *repository.SessionRepo
    seats        *repository.SeatRepo
    reservations *repository.ReservationRepo
    sales        *repository.SaleRepo
    outbox       *repository.OutboxRepo
}

func newEngineEnv(t *testing.T) *engineEnv {
    db := testDB(t)
    return &engineEnv{
        db:           db,
        sessions:     repository.NewSessionRepo(db),
        seats:        repository.NewSeatRepo(db),
        reservations: repository.NewReservationRepo(db),
        sales:        repository.NewSaleRepo(db),
        outbox:       repository.NewOutboxRepo(db),
    }
}

func (e *engineEnv) reservationService(ttl time.Duration) *ReservationService {
    return NewReservationService(e.db, e.sessions, e.seats, e.reservations, e.outbox, ttl)
}

func (e *engineEnv) saleService() *SaleService {
    return NewSaleService(e.db, e.sessions, e.seats, e.reservations, e.sales, e.outbox)
}

// newSession provisions an ACTIVE session with seatCount seats and
// returns its id plus the seat ids in label order.
func (e *engineEnv) newSession(t *testing.T, seatCount int) (uint64, []uint64) {
    t.Helper()
    ctx := context.Background()
    sess := &model.Session{Name: "engine test", Status: model.SessionActive, TicketPriceCents: 2500, MinSeats: 1}
    require.NoError(t, e.sessions.Create(ctx, sess))
    seats := make([]model.Seat, seatCount)
    for i := range seats {
        seats[i] = model.Seat{SessionID: sess.ID, Label: fmt.Sprintf("A%02d", i+1)}
    }
    require.NoError(t, e.seats.CreateBulk(ctx, seats))
    listed, err := e.seats.ListBySession(ctx, sess.ID)
    require.NoError(t, err)
    require.Len(t, listed, seatCount)
    ids := make([]uint64, len(listed))
    for i, s := range listed {
        ids[i] = s.ID
    }
    return sess.ID, ids
}

func (e *engineEnv) seatStatus(t *testing.T, seatID uint64) string {
    t.Helper()
    seat, err := e.seats.GetByID(context.Background(), seatID)
    require.NoError(t, err)
    return seat.Status
}

// outboxCount counts this session's outbox rows for one event name, so
// assertions do not see rows written by other tests sharing the tables.
func (e *engineEnv) outboxCount(t *testing.T, table repository.OutboxTable, event string, sessionID uint64) int {
    t.Helper()
    q := `SELECT COUNT(*) FROM ` + string(table) + ` WHERE event_name = ? AND JSON_EXTRACT(payload, '$.session_id') = ?`
    var n int
    require.NoError(t, e.db.QueryRowContext(context.Background(), q, event, sessionID).Scan(&n))
    return n
}

func TestCreateClaimsAllSeatsOrNone(t *testing.T) {
    env := newEngineEnv(t)
    svc := env.reservationService(time.Minute)
    ctx := context.Background()
    sessionID, seatIDs := env.newSession(t, 3)

    created, err := svc.Create(ctx, sessionID, 101, seatIDs)
    require.NoError(t, err)
    require.Len(t, created, 3)
    for _, id := range seatIDs {
        assert.Equal(t, model.SeatReserved, env.seatStatus(t, id))
    }
    assert.Equal(t, 3, env.outboxCount(t, repository.ReservationOutbox, model.EventReservationCreated, sessionID))

    // A second request overlapping one held seat must fail whole and
    // leave no partial state behind.
    _, err = svc.Create(ctx, sessionID, 102, []uint64{seatIDs[1]})
    var conflict *repository.SeatConflictError
    require.ErrorAs(t, err, &conflict)
    assert.Equal(t, []uint64{seatIDs[1]}, conflict.SeatIDs)

    // At most one PENDING reservation exists per seat.
    var pending int
    require.NoError(t, env.db.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM reservations WHERE session_id = ? AND status = ?`,
        sessionID, model.ReservationPending).Scan(&pending))
    assert.Equal(t, 3, pending)
}

func TestCreateRejectsInactiveSession(t *testing.T) {
    env := newEngineEnv(t)
    svc := env.reservationService(time.Minute)
    ctx := context.Background()

    sess := &model.Session{Name: "draft session", Status: model.SessionDraft, TicketPriceCents: 1000, MinSeats: 1}
    require.NoError(t, env.sessions.Create(ctx, sess))
    require.NoError(t, env.seats.CreateBulk(ctx, []model.Seat{{SessionID: sess.ID, Label: "A01"}}))
    listed, err := env.seats.ListBySession(ctx, sess.ID)
    require.NoError(t, err)

    _, err = svc.Create(ctx, sess.ID, 101, []uint64{listed[0].ID})
    assert.ErrorIs(t, err, ErrValidation)
    assert.Equal(t, model.SeatAvailable, env.seatStatus(t, listed[0].ID))
}

func TestOppositeOrderRequestsBothTerminate(t *testing.T) {
    env := newEngineEnv(t)
    svc := env.reservationService(time.Minute)
    ctx := context.Background()
    sessionID, seatIDs := env.newSession(t, 3)

    asc := []uint64{seatIDs[0], seatIDs[1], seatIDs[2]}
    desc := []uint64{seatIDs[2], seatIDs[1], seatIDs[0]}

    errs := make([]error, 2)
    var wg sync.WaitGroup
    start := make(chan struct{})
    for i, ids := range [][]uint64{asc, desc} {
        wg.Add(1)
        go func(i int, ids []uint64) {
            defer wg.Done()
            <-start
            _, errs[i] = svc.Create(ctx, sessionID, uint64(200+i), ids)
        }(i, ids)
    }
    close(start)

    done := make(chan struct{})
    go func() { wg.Wait(); close(done) }()
    select {
    case <-done:
    case <-time.After(15 * time.Second):
        t.Fatal("opposite-order requests did not terminate")
    }

    // Canonical ordering means the two cannot form a lock cycle: one
    // wins all three seats, the other conflicts.
    successes := 0
    for _, err := range errs {
        if err == nil {
            successes++
        } else {
            assert.ErrorIs(t, err, repository.ErrConflict)
        }
    }
    assert.Equal(t, 1, successes)
    for _, id := range seatIDs {
        assert.Equal(t, model.SeatReserved, env.seatStatus(t, id))
    }
}

func TestConcurrentClaimsNeverOversell(t *testing.T) {
    env := newEngineEnv(t)
    svc := env.reservationService(time.Minute)
    ctx := context.Background()
    sessionID, seatIDs := env.newSession(t, 4)

    const contendersPerSeat = 4
    total := len(seatIDs) * contendersPerSeat
    errs := make([]error, total)
    var wg sync.WaitGroup
    start := make(chan struct{})
    for i := 0; i < total; i++ {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            <-start
            _, errs[i] = svc.Create(ctx, sessionID, uint64(300+i), []uint64{seatIDs[i%len(seatIDs)]})
        }(i)
    }
    close(start)
    wg.Wait()

    successes := 0
    for _, err := range errs {
        if err == nil {
            successes++
        } else {
            assert.ErrorIs(t, err, repository.ErrConflict)
        }
    }
    // Exactly one contender per seat wins, never more.
    assert.Equal(t, len(seatIDs), successes)

    var reserved int
    require.NoError(t, env.db.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM seats WHERE session_id = ? AND status IN (?, ?)`,
        sessionID, model.SeatReserved, model.SeatSold).Scan(&reserved))
    assert.Equal(t, len(seatIDs), reserved)
}

func TestConfirmProducesExactlyOneSale(t *testing.T) {
    env := newEngineEnv(t)
    resSvc := env.reservationService(time.Hour)
    saleSvc := env.saleService()
    ctx := context.Background()
    sessionID, seatIDs := env.newSession(t, 1)

    created, err := resSvc.Create(ctx, sessionID, 101, seatIDs)
    require.NoError(t, err)
    reservationID := created[0].ID

    errs := make([]error, 2)
    var wg sync.WaitGroup
    start := make(chan struct{})
    for i := 0; i < 2; i++ {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            <-start
            _, errs[i] = saleSvc.Confirm(ctx, reservationID, 101)
        }(i)
    }
    close(start)
    wg.Wait()

    successes := 0
    for _, err := range errs {
        if err == nil {
            successes++
        } else {
            assert.ErrorIs(t, err, repository.ErrConflict)
        }
    }
    assert.Equal(t, 1, successes)

    count, err := env.sales.CountBySession(ctx, sessionID)
    require.NoError(t, err)
    assert.Equal(t, 1, count)
    assert.Equal(t, model.SeatSold, env.seatStatus(t, seatIDs[0]))

    res, err := env.reservations.GetByID(ctx, reservationID)
    require.NoError(t, err)
    assert.Equal(t, model.ReservationConfirmed, res.Status)
    assert.Equal(t, 1, env.outboxCount(t, repository.ReservationOutbox, model.EventPaymentConfirmed, sessionID))
}

func TestConfirmExpiredReturnsExpiredError(t *testing.T) {
    env := newEngineEnv(t)
    resSvc := env.reservationService(-time.Second) // already lapsed
    saleSvc := env.saleService()
    ctx := context.Background()
    sessionID, seatIDs := env.newSession(t, 1)

    created, err := resSvc.Create(ctx, sessionID, 101, seatIDs)
    require.NoError(t, err)

    _, err = saleSvc.Confirm(ctx, created[0].ID, 101)
    assert.ErrorIs(t, err, repository.ErrReservationExpired)
    assert.NotErrorIs(t, err, repository.ErrConflict,
        "expired must stay distinguishable from a generic conflict")

    // The failed confirmation left the hold untouched for the sweeper.
    res, err := env.reservations.GetByID(ctx, created[0].ID)
    require.NoError(t, err)
    assert.Equal(t, model.ReservationPending, res.Status)
    assert.Equal(t, model.SeatReserved, env.seatStatus(t, seatIDs[0]))
}

func TestConfirmByNonOwnerForbidden(t *testing.T) {
    env := newEngineEnv(t)
    resSvc := env.reservationService(time.Hour)
    saleSvc := env.saleService()
    ctx := context.Background()
    sessionID, seatIDs := env.newSession(t, 1)

    created, err := resSvc.Create(ctx, sessionID, 101, seatIDs)
    require.NoError(t, err)

    _, err = saleSvc.Confirm(ctx, created[0].ID, 999)
    assert.ErrorIs(t, err, repository.ErrForbidden)

    count, err := env.sales.CountBySession(ctx, sessionID)
    require.NoError(t, err)
    assert.Zero(t, count)
}

func TestSweepExpiresOverdueAndReleasesSeat(t *testing.T) {
    env := newEngineEnv(t)
    svc := env.reservationService(-time.Second) // already lapsed
    ctx := context.Background()
    sessionID, seatIDs := env.newSession(t, 1)

    created, err := svc.Create(ctx, sessionID, 101, seatIDs)
    require.NoError(t, err)

    _, err = svc.ExpireDue(ctx, 100)
    require.NoError(t, err)

    res, err := env.reservations.GetByID(ctx, created[0].ID)
    require.NoError(t, err)
    assert.Equal(t, model.ReservationExpired, res.Status)
    assert.Equal(t, model.SeatAvailable, env.seatStatus(t, seatIDs[0]))
    assert.Equal(t, 1, env.outboxCount(t, repository.ExpirationOutbox, model.EventReservationExpired, sessionID))
    assert.Equal(t, 1, env.outboxCount(t, repository.ExpirationOutbox, model.EventSeatReleased, sessionID))
}

func TestSweepLeavesSoldSeatAlone(t *testing.T) {
    env := newEngineEnv(t)
    svc := env.reservationService(time.Hour)
    ctx := context.Background()
    sessionID, seatIDs := env.newSession(t, 1)

    created, err := svc.Create(ctx, sessionID, 101, seatIDs)
    require.NoError(t, err)

    // Recreate the narrow race: the reservation is overdue but the seat
    // was already sold by a confirmation that slipped in.
    _, err = env.db.ExecContext(ctx,
        `UPDATE reservations SET expires_at = ? WHERE id = ?`,
        time.Now().UTC().Add(-time.Minute).Format("2006-01-02 15:04:05"), created[0].ID)
    require.NoError(t, err)
    _, err = env.db.ExecContext(ctx, `UPDATE seats SET status = ? WHERE id = ?`, model.SeatSold, seatIDs[0])
    require.NoError(t, err)

    _, err = svc.ExpireDue(ctx, 100)
    require.NoError(t, err)

    res, err := env.reservations.GetByID(ctx, created[0].ID)
    require.NoError(t, err)
    assert.Equal(t, model.ReservationExpired, res.Status)
    assert.Equal(t, model.SeatSold, env.seatStatus(t, seatIDs[0]), "a sold seat is never released")
    assert.Equal(t, 1, env.outboxCount(t, repository.ExpirationOutbox, model.EventReservationExpired, sessionID))
    assert.Zero(t, env.outboxCount(t, repository.ExpirationOutbox, model.EventSeatReleased, sessionID))
}

func TestCancelReleasesSeatWhilePending(t *testing.T) {
    env := newEngineEnv(t)
    svc := env.reservationService(time.Hour)
    saleSvc := env.saleService()
    ctx := context.Background()
    sessionID, seatIDs := env.newSession(t, 1)

    created, err := svc.Create(ctx, sessionID, 101, seatIDs)
    require.NoError(t, err)

    require.NoError(t, svc.Cancel(ctx, created[0].ID, 101))
    res, err := env.reservations.GetByID(ctx, created[0].ID)
    require.NoError(t, err)
    assert.Equal(t, model.ReservationCancelled, res.Status)
    assert.Equal(t, model.SeatAvailable, env.seatStatus(t, seatIDs[0]))

    // The same pending-only precondition as the sale engine applies.
    assert.ErrorIs(t, svc.Cancel(ctx, created[0].ID, 101), repository.ErrConflict)
    _, err = saleSvc.Confirm(ctx, created[0].ID, 101)
    assert.ErrorIs(t, err, repository.ErrConflict)
}
