package worker

import (
    "context"
    "sync/atomic"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"

    "github.com/tickethub/event-seat-reservation/internal/lock"
)

type countingRelayer struct {
    relays   int32
    cleanups int32
}

func (c *countingRelayer) RelayOnce(ctx context.Context, now time.Time) (int, error) {
    atomic.AddInt32(&c.relays, 1)
    return 0, nil
}

func (c *countingRelayer) CleanupOnce(ctx context.Context, now time.Time) (int64, error) {
    atomic.AddInt32(&c.cleanups, 1)
    return 0, nil
}

func TestRelayTicksBothLoops(t *testing.T) {
    runner := &countingRelayer{}
    r := NewRelay(runner, lock.NewManager(nil), 10*time.Millisecond, 25*time.Millisecond, 5*time.Millisecond)

    r.Start(context.Background())
    time.Sleep(80 * time.Millisecond)
    r.Stop()

    assert.GreaterOrEqual(t, atomic.LoadInt32(&runner.relays), int32(3), "expected several relay ticks")
    assert.GreaterOrEqual(t, atomic.LoadInt32(&runner.cleanups), int32(1), "expected at least one cleanup tick")
}

func TestRelayStopIsIdempotentAcrossTicks(t *testing.T) {
    runner := &countingRelayer{}
    r := NewRelay(runner, lock.NewManager(nil), 5*time.Millisecond, time.Hour, 3*time.Millisecond)

    r.Start(context.Background())
    time.Sleep(25 * time.Millisecond)
    r.Stop()

    after := atomic.LoadInt32(&runner.relays)
    time.Sleep(25 * time.Millisecond)
    assert.Equal(t, after, atomic.LoadInt32(&runner.relays), "no relay ticks after Stop")
}
