package handler

import (
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func testContext() echo.Context {
    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, "/", nil)
    return e.NewContext(req, httptest.NewRecorder())
}

func TestGetUserID(t *testing.T) {
    tests := []struct {
        name  string
        value interface{}
        want  uint64
        ok    bool
    }{
        {"uint64", uint64(42), 42, true},
        {"int", 7, 7, true},
        {"int64", int64(9), 9, true},
        {"float64 from json claims", float64(123), 123, true},
        {"numeric string", "55", 55, true},
        {"garbage string", "abc", 0, false},
        {"missing", nil, 0, false},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            c := testContext()
            if tt.value != nil {
                c.Set("user_id", tt.value)
            }
            got, err := getUserID(c)
            if tt.ok {
                require.NoError(t, err)
                assert.Equal(t, tt.want, got)
            } else {
                assert.Error(t, err)
            }
        })
    }
}

func TestIndexToRowLabel(t *testing.T) {
    tests := []struct {
        in   int
        want string
    }{
        {0, "A"},
        {1, "B"},
        {25, "Z"},
        {26, "AA"},
        {27, "AB"},
        {51, "AZ"},
        {52, "BA"},
        {701, "ZZ"},
        {702, "AAA"},
        {-1, ""},
    }
    for _, tt := range tests {
        assert.Equal(t, tt.want, indexToRowLabel(tt.in), "index %d", tt.in)
    }
}
