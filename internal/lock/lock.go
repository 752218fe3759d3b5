// Package lock provides a lease-based mutual-exclusion primitive shared
// by every server instance, backed by Redis.  The expiration sweeper,
// the outbox relay and the retention cleanup each acquire a lock keyed
// by a fixed identifier before running a tick, so the work runs
// effectively once across however many instances are live.  A crashed
// holder self-heals: the lease simply lapses and the next tick's
// acquire succeeds.
package lock

import (
    "context"
    "errors"
    "time"

    "github.com/google/uuid"
    "github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when another holder currently owns the key.
var ErrNotAcquired = errors.New("lock not acquired")

// ErrNotOwned is returned when releasing or extending a lock whose lease
// has lapsed or been taken over by another holder.
var ErrNotOwned = errors.New("lock not owned")

// Manager hands out locks against a shared Redis instance.  A nil
// client degrades to single-instance behaviour: every acquire succeeds,
// which is correct when only one process exists.
type Manager struct {
    client *redis.Client
}

// NewManager returns a Manager bound to the given Redis client.  The
// client may be nil.
func NewManager(client *redis.Client) *Manager { return &Manager{client: client} }

// Lock is a held lease.  The random value identifies this holder so a
// lapsed lease taken over by someone else is never released by us.
type Lock struct {
    client *redis.Client
    key    string
    value  string
}

// Acquire attempts to take the lock with the given TTL.  It returns
// ErrNotAcquired without blocking when another holder owns the key;
// periodic jobs treat that as "skip this tick".
func (m *Manager) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
    if m.client == nil {
        return &Lock{}, nil
    }
    value := uuid.New().String()
    ok, err := m.client.SetNX(ctx, "lock:"+key, value, ttl).Result()
    if err != nil {
        return nil, err
    }
    if !ok {
        return nil, ErrNotAcquired
    }
    return &Lock{client: m.client, key: "lock:" + key, value: value}, nil
}

// releaseScript deletes the key only while we still own it, atomically.
// A plain DEL could drop a lock that expired and was re-acquired by
// another instance.
var releaseScript = redis.NewScript(`
    if redis.call("GET", KEYS[1]) == ARGV[1] then
        return redis.call("DEL", KEYS[1])
    else
        return 0
    end
`)

// Release gives the lock back.  Safe to defer; returns ErrNotOwned when
// the lease already lapsed, which callers may log and otherwise ignore.
func (l *Lock) Release(ctx context.Context) error {
    if l.client == nil {
        return nil
    }
    n, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.value).Int()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrNotOwned
    }
    return nil
}

var extendScript = redis.NewScript(`
    if redis.call("GET", KEYS[1]) == ARGV[1] then
        return redis.call("PEXPIRE", KEYS[1], ARGV[2])
    else
        return 0
    end
`)

// Extend renews the lease for a holder whose work outlives the original
// TTL.  Returns ErrNotOwned when the lease already lapsed.
func (l *Lock) Extend(ctx context.Context, ttl time.Duration) error {
    if l.client == nil {
        return nil
    }
    n, err := extendScript.Run(ctx, l.client, []string{l.key}, l.value, ttl.Milliseconds()).Int()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrNotOwned
    }
    return nil
}
