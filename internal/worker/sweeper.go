// Package worker runs the periodic background loops: the expiration
// sweeper and the outbox relay.  Each loop wraps every tick in a
// distributed lock so that when several application instances run, only
// one performs the work while the rest skip the tick.
package worker

import (
    "context"
    "errors"
    "log"
    "time"

    "github.com/tickethub/event-seat-reservation/internal/lock"
)

const sweeperLockKey = "reservation-sweeper"

// ExpireRunner is the sweep body the worker drives on each tick.
type ExpireRunner interface {
    ExpireDue(ctx context.Context, batch int) (int, error)
}

// Sweeper periodically lapses overdue reservations.
type Sweeper struct {
    runner   ExpireRunner
    locks    *lock.Manager
    interval time.Duration
    lockTTL  time.Duration
    batch    int

    stopCh chan struct{}
    doneCh chan struct{}
}

// NewSweeper builds the sweep loop.  lockTTL should be shorter than
// interval so a crashed holder's lease lapses before the next tick
// elsewhere.
func NewSweeper(runner ExpireRunner, locks *lock.Manager, interval, lockTTL time.Duration, batch int) *Sweeper {
    return &Sweeper{
        runner:   runner,
        locks:    locks,
        interval: interval,
        lockTTL:  lockTTL,
        batch:    batch,
        stopCh:   make(chan struct{}),
        doneCh:   make(chan struct{}),
    }
}

// Start runs the sweep loop until Stop is called or ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
    go func() {
        defer close(s.doneCh)
        ticker := time.NewTicker(s.interval)
        defer ticker.Stop()
        log.Printf("sweeper: started, interval=%s batch=%d", s.interval, s.batch)
        for {
            select {
            case <-ctx.Done():
                return
            case <-s.stopCh:
                return
            case <-ticker.C:
                s.tick(ctx)
            }
        }
    }()
}

// Stop signals the loop to exit and waits for the current tick to
// finish.
func (s *Sweeper) Stop() {
    close(s.stopCh)
    <-s.doneCh
}

func (s *Sweeper) tick(ctx context.Context) {
    l, err := s.locks.Acquire(ctx, sweeperLockKey, s.lockTTL)
    if errors.Is(err, lock.ErrNotAcquired) {
        // Another instance is sweeping this tick.
        return
    }
    if err != nil {
        log.Printf("sweeper: acquire lock: %v", err)
        return
    }
    defer func() {
        if err := l.Release(ctx); err != nil && !errors.Is(err, lock.ErrNotOwned) {
            log.Printf("sweeper: release lock: %v", err)
        }
    }()

    expired, err := s.runner.ExpireDue(ctx, s.batch)
    if err != nil {
        log.Printf("sweeper: %v", err)
        return
    }
    if expired > 0 {
        log.Printf("sweeper: expired %d reservations", expired)
    }
}
