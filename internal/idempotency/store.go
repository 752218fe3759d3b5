// Package idempotency deduplicates externally-retried mutating requests
// using a client-supplied key.  The first request to claim a key
// executes the real operation and stores its serialized response; every
// later request with the same key gets the stored response back,
// regardless of body differences.  Keys are scoped per route so the
// same token used against different endpoints never collides.
package idempotency

import (
    "context"
    "encoding/json"
    "errors"
    "time"

    "github.com/redis/go-redis/v9"
)

// ErrInFlight is returned by Get when the key has been claimed but the
// original request has not stored its response yet.  The HTTP layer
// surfaces this as a retry-shortly condition instead of blocking.
var ErrInFlight = errors.New("original request still in flight")

// ErrNotFound is returned by Get when the key is unknown.
var ErrNotFound = errors.New("idempotency key not found")

// StoredResponse is the serialized outcome of the first execution.
type StoredResponse struct {
    Status      int    `json:"status"`
    ContentType string `json:"content_type"`
    Body        []byte `json:"body"`
}

// Store is the key-store contract the middleware depends on.  The Redis
// implementation below is used in production; tests substitute an
// in-memory fake.
type Store interface {
    // SetIfAbsent atomically claims the key with a short lease.  It
    // returns true when this caller is the first holder and should
    // execute the underlying operation.
    SetIfAbsent(ctx context.Context, key string, lease time.Duration) (bool, error)
    // Get returns the stored response for a claimed key, ErrInFlight
    // while the first execution is still running, or ErrNotFound.
    Get(ctx context.Context, key string) (*StoredResponse, error)
    // Put stores the serialized response under the key with its own,
    // longer TTL.
    Put(ctx context.Context, key string, resp *StoredResponse, ttl time.Duration) error
}

// RedisStore implements Store over two Redis keys per idempotency key: a
// lease key claimed with SET NX and a response key holding the cached
// JSON.  Both expire on their own so an abandoned key frees its slot.
type RedisStore struct {
    client *redis.Client
}

// NewRedisStore returns a RedisStore bound to the given client.
func NewRedisStore(client *redis.Client) *RedisStore { return &RedisStore{client: client} }

func leaseKey(key string) string    { return "idem:lease:" + key }
func responseKey(key string) string { return "idem:resp:" + key }

// SetIfAbsent claims the lease key.
func (s *RedisStore) SetIfAbsent(ctx context.Context, key string, lease time.Duration) (bool, error) {
    return s.client.SetNX(ctx, leaseKey(key), 1, lease).Result()
}

// Get looks up the cached response.  A missing response while the lease
// key still exists means the first execution is in flight.
func (s *RedisStore) Get(ctx context.Context, key string) (*StoredResponse, error) {
    raw, err := s.client.Get(ctx, responseKey(key)).Bytes()
    if err == nil {
        var resp StoredResponse
        if err := json.Unmarshal(raw, &resp); err != nil {
            return nil, err
        }
        return &resp, nil
    }
    if !errors.Is(err, redis.Nil) {
        return nil, err
    }
    n, err := s.client.Exists(ctx, leaseKey(key)).Result()
    if err != nil {
        return nil, err
    }
    if n > 0 {
        return nil, ErrInFlight
    }
    return nil, ErrNotFound
}

// Put stores the serialized response.
func (s *RedisStore) Put(ctx context.Context, key string, resp *StoredResponse, ttl time.Duration) error {
    raw, err := json.Marshal(resp)
    if err != nil {
        return err
    }
    return s.client.Set(ctx, responseKey(key), raw, ttl).Err()
}
