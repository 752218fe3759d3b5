package worker

import (
    "context"
    "sync/atomic"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"

    "github.com/tickethub/event-seat-reservation/internal/lock"
)

type countingExpirer struct {
    calls int32
}

func (c *countingExpirer) ExpireDue(ctx context.Context, batch int) (int, error) {
    atomic.AddInt32(&c.calls, 1)
    return 0, nil
}

func TestSweeperTicksAndStops(t *testing.T) {
    runner := &countingExpirer{}
    s := NewSweeper(runner, lock.NewManager(nil), 10*time.Millisecond, 5*time.Millisecond, 50)

    s.Start(context.Background())
    time.Sleep(60 * time.Millisecond)
    s.Stop()

    calls := atomic.LoadInt32(&runner.calls)
    assert.GreaterOrEqual(t, calls, int32(2), "expected multiple sweep ticks")

    // No more ticks after Stop.
    time.Sleep(30 * time.Millisecond)
    assert.Equal(t, calls, atomic.LoadInt32(&runner.calls))
}

func TestSweeperStopsOnContextCancel(t *testing.T) {
    runner := &countingExpirer{}
    s := NewSweeper(runner, lock.NewManager(nil), 5*time.Millisecond, 3*time.Millisecond, 50)

    ctx, cancel := context.WithCancel(context.Background())
    s.Start(ctx)
    time.Sleep(20 * time.Millisecond)
    cancel()
    time.Sleep(20 * time.Millisecond)

    after := atomic.LoadInt32(&runner.calls)
    time.Sleep(20 * time.Millisecond)
    assert.Equal(t, after, atomic.LoadInt32(&runner.calls), "no ticks after cancellation")
}
