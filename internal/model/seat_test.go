package model

import (
    "testing"

    "github.com/stretchr/testify/assert"
)

func TestCanTransitionSeat(t *testing.T) {
    tests := []struct {
        from, to string
        ok       bool
    }{
        {SeatAvailable, SeatReserved, true},
        {SeatAvailable, SeatBlocked, true},
        {SeatAvailable, SeatMaintenance, true},
        {SeatAvailable, SeatSold, false}, // a sale always goes through RESERVED
        {SeatReserved, SeatSold, true},
        {SeatReserved, SeatAvailable, true},
        {SeatReserved, SeatBlocked, false},
        {SeatBlocked, SeatAvailable, true},
        {SeatMaintenance, SeatAvailable, true},
        {SeatSold, SeatAvailable, false}, // no way out of SOLD
        {SeatSold, SeatReserved, false},
        {"BOGUS", SeatAvailable, false},
        {SeatAvailable, "BOGUS", false},
    }
    for _, tt := range tests {
        assert.Equal(t, tt.ok, CanTransitionSeat(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
    }
}

func TestValidSeatStatus(t *testing.T) {
    for _, s := range []string{SeatAvailable, SeatReserved, SeatSold, SeatBlocked, SeatMaintenance} {
        assert.True(t, ValidSeatStatus(s), s)
    }
    assert.False(t, ValidSeatStatus("FREE"))
    assert.False(t, ValidSeatStatus(""))
    assert.False(t, ValidSeatStatus("available")) // statuses are case sensitive
}
