package worker

import (
    "context"
    "errors"
    "log"
    "time"

    "github.com/tickethub/event-seat-reservation/internal/lock"
)

const (
    relayLockKey   = "outbox-relay"
    cleanupLockKey = "outbox-cleanup"
)

// RelayRunner is the outbox work the relay loop drives: draining due
// entries and trimming old published rows.
type RelayRunner interface {
    RelayOnce(ctx context.Context, now time.Time) (int, error)
    CleanupOnce(ctx context.Context, now time.Time) (int64, error)
}

// Relay periodically drains the outbox tables into the broker and, on a
// slower cadence, deletes published rows past the retention window.
type Relay struct {
    runner          RelayRunner
    locks           *lock.Manager
    interval        time.Duration
    cleanupInterval time.Duration
    lockTTL         time.Duration

    stopCh chan struct{}
    doneCh chan struct{}
}

func NewRelay(runner RelayRunner, locks *lock.Manager, interval, cleanupInterval, lockTTL time.Duration) *Relay {
    return &Relay{
        runner:          runner,
        locks:           locks,
        interval:        interval,
        cleanupInterval: cleanupInterval,
        lockTTL:         lockTTL,
        stopCh:          make(chan struct{}),
        doneCh:          make(chan struct{}),
    }
}

// Start runs the relay loop until Stop is called or ctx is cancelled.
func (r *Relay) Start(ctx context.Context) {
    go func() {
        defer close(r.doneCh)
        ticker := time.NewTicker(r.interval)
        defer ticker.Stop()
        cleanup := time.NewTicker(r.cleanupInterval)
        defer cleanup.Stop()
        log.Printf("relay: started, interval=%s", r.interval)
        for {
            select {
            case <-ctx.Done():
                return
            case <-r.stopCh:
                return
            case <-ticker.C:
                r.relayTick(ctx)
            case <-cleanup.C:
                r.cleanupTick(ctx)
            }
        }
    }()
}

// Stop signals the loop to exit and waits for the current tick to
// finish.
func (r *Relay) Stop() {
    close(r.stopCh)
    <-r.doneCh
}

func (r *Relay) relayTick(ctx context.Context) {
    l, err := r.locks.Acquire(ctx, relayLockKey, r.lockTTL)
    if errors.Is(err, lock.ErrNotAcquired) {
        return
    }
    if err != nil {
        log.Printf("relay: acquire lock: %v", err)
        return
    }
    defer func() {
        if err := l.Release(ctx); err != nil && !errors.Is(err, lock.ErrNotOwned) {
            log.Printf("relay: release lock: %v", err)
        }
    }()

    published, err := r.runner.RelayOnce(ctx, time.Now().UTC())
    if err != nil {
        log.Printf("relay: %v", err)
        return
    }
    if published > 0 {
        log.Printf("relay: published %d outbox entries", published)
    }
}

func (r *Relay) cleanupTick(ctx context.Context) {
    l, err := r.locks.Acquire(ctx, cleanupLockKey, r.lockTTL)
    if errors.Is(err, lock.ErrNotAcquired) {
        return
    }
    if err != nil {
        log.Printf("relay: acquire cleanup lock: %v", err)
        return
    }
    defer func() {
        if err := l.Release(ctx); err != nil && !errors.Is(err, lock.ErrNotOwned) {
            log.Printf("relay: release cleanup lock: %v", err)
        }
    }()

    deleted, err := r.runner.CleanupOnce(ctx, time.Now().UTC())
    if err != nil {
        log.Printf("relay: cleanup: %v", err)
        return
    }
    if deleted > 0 {
        log.Printf("relay: removed %d published outbox entries", deleted)
    }
}
