package service

import (
    "testing"

    "github.com/stretchr/testify/assert"
)

func TestCanonicalSeatIDs(t *testing.T) {
    tests := []struct {
        name string
        in   []uint64
        want []uint64
    }{
        {"already sorted", []uint64{1, 2, 3}, []uint64{1, 2, 3}},
        {"reversed", []uint64{9, 5, 2}, []uint64{2, 5, 9}},
        {"duplicates removed", []uint64{4, 4, 4, 2}, []uint64{2, 4}},
        {"zero ids dropped", []uint64{0, 3, 0, 1}, []uint64{1, 3}},
        {"empty", nil, []uint64{}},
        {"all invalid", []uint64{0, 0}, []uint64{}},
        {"single", []uint64{7}, []uint64{7}},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            assert.Equal(t, tt.want, canonicalSeatIDs(tt.in))
        })
    }
}

func TestCanonicalSeatIDsDoesNotMutateInput(t *testing.T) {
    in := []uint64{5, 1, 3}
    _ = canonicalSeatIDs(in)
    assert.Equal(t, []uint64{5, 1, 3}, in)
}
