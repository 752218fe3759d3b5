package model

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func TestNextRetryDelay(t *testing.T) {
    base := 2 * time.Second
    max := 5 * time.Minute

    tests := []struct {
        name       string
        retryCount uint32
        want       time.Duration
    }{
        {"first failure", 0, 2 * time.Second},
        {"second failure doubles", 1, 4 * time.Second},
        {"third failure doubles again", 2, 8 * time.Second},
        {"fifth failure", 4, 32 * time.Second},
        {"capped at max", 10, max},
        {"far beyond the cap stays at max", 100, max},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            assert.Equal(t, tt.want, NextRetryDelay(tt.retryCount, base, max))
        })
    }
}

func TestNextRetryDelayDegenerateBase(t *testing.T) {
    max := time.Minute
    assert.Equal(t, max, NextRetryDelay(3, 0, max))
    assert.Equal(t, max, NextRetryDelay(3, -time.Second, max))
}

func TestNextRetryDelayOverflow(t *testing.T) {
    // Enough doublings to overflow int64 nanoseconds must still land on
    // the cap, never on a negative duration.
    got := NextRetryDelay(80, time.Second, 10*time.Minute)
    assert.Equal(t, 10*time.Minute, got)
}
