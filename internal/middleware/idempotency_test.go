package middleware

import (
    "context"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/tickethub/event-seat-reservation/internal/idempotency"
)

// fakeStore is an in-memory Store standing in for Redis.
type fakeStore struct {
    leased    map[string]bool
    responses map[string]*idempotency.StoredResponse
}

func newFakeStore() *fakeStore {
    return &fakeStore{
        leased:    map[string]bool{},
        responses: map[string]*idempotency.StoredResponse{},
    }
}

func (s *fakeStore) SetIfAbsent(_ context.Context, key string, _ time.Duration) (bool, error) {
    if s.leased[key] {
        return false, nil
    }
    s.leased[key] = true
    return true, nil
}

func (s *fakeStore) Get(_ context.Context, key string) (*idempotency.StoredResponse, error) {
    if r, ok := s.responses[key]; ok {
        return r, nil
    }
    if s.leased[key] {
        return nil, idempotency.ErrInFlight
    }
    return nil, idempotency.ErrNotFound
}

func (s *fakeStore) Put(_ context.Context, key string, resp *idempotency.StoredResponse, _ time.Duration) error {
    s.responses[key] = resp
    return nil
}

func newIdemEcho(store idempotency.Store, calls *int) *echo.Echo {
    e := echo.New()
    e.POST("/v1/things", func(c echo.Context) error {
        *calls++
        return c.JSON(http.StatusCreated, echo.Map{"n": *calls})
    }, Idempotency(store, 30*time.Second, time.Hour))
    return e
}

func doPost(e *echo.Echo, key string) *httptest.ResponseRecorder {
    req := httptest.NewRequest(http.MethodPost, "/v1/things", strings.NewReader(`{}`))
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    if key != "" {
        req.Header.Set(IdempotencyHeader, key)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func TestIdempotencyReplaysFirstResponse(t *testing.T) {
    calls := 0
    e := newIdemEcho(newFakeStore(), &calls)

    first := doPost(e, "abc")
    require.Equal(t, http.StatusCreated, first.Code)
    assert.Equal(t, 1, calls)

    second := doPost(e, "abc")
    assert.Equal(t, http.StatusCreated, second.Code)
    assert.Equal(t, first.Body.String(), second.Body.String())
    assert.Equal(t, 1, calls, "handler must not run twice for the same key")
}

func TestIdempotencyDistinctKeysExecuteSeparately(t *testing.T) {
    calls := 0
    e := newIdemEcho(newFakeStore(), &calls)

    doPost(e, "key-1")
    doPost(e, "key-2")
    assert.Equal(t, 2, calls)
}

func TestIdempotencyMissingHeaderPassesThrough(t *testing.T) {
    calls := 0
    e := newIdemEcho(newFakeStore(), &calls)

    doPost(e, "")
    doPost(e, "")
    assert.Equal(t, 2, calls, "requests without the header are not deduplicated")
}

func TestIdempotencyInFlightReturnsConflict(t *testing.T) {
    store := newFakeStore()
    calls := 0
    e := newIdemEcho(store, &calls)

    // Claim the key as if the original request were still executing.
    ok, err := store.SetIfAbsent(context.Background(), "POST:/v1/things:busy", time.Minute)
    require.NoError(t, err)
    require.True(t, ok)

    rec := doPost(e, "busy")
    assert.Equal(t, http.StatusConflict, rec.Code)
    assert.Contains(t, rec.Body.String(), "retry_after")
    assert.Zero(t, calls)
}

func TestIdempotencyServerErrorIsNotCached(t *testing.T) {
    store := newFakeStore()
    calls := 0
    e := echo.New()
    e.POST("/v1/things", func(c echo.Context) error {
        calls++
        if calls == 1 {
            return echo.NewHTTPError(http.StatusInternalServerError, "database error")
        }
        return c.JSON(http.StatusCreated, echo.Map{"n": calls})
    }, Idempotency(store, 30*time.Second, time.Hour))

    first := doPost(e, "retry-me")
    require.Equal(t, http.StatusInternalServerError, first.Code)
    assert.Empty(t, store.responses, "5xx outcomes must not be cached under the key")

    // Once the lease lapses the same key must execute again.
    store.leased = map[string]bool{}
    second := doPost(e, "retry-me")
    assert.Equal(t, http.StatusCreated, second.Code)
    assert.Equal(t, 2, calls)

    // The successful outcome is now the cached one.
    third := doPost(e, "retry-me")
    assert.Equal(t, http.StatusCreated, third.Code)
    assert.Equal(t, second.Body.String(), third.Body.String())
    assert.Equal(t, 2, calls)
}

func TestIdempotencyKeysAreScopedPerRoute(t *testing.T) {
    store := newFakeStore()
    thingCalls, otherCalls := 0, 0
    e := echo.New()
    mw := Idempotency(store, 30*time.Second, time.Hour)
    e.POST("/v1/things", func(c echo.Context) error {
        thingCalls++
        return c.JSON(http.StatusCreated, echo.Map{"kind": "thing"})
    }, mw)
    e.POST("/v1/others", func(c echo.Context) error {
        otherCalls++
        return c.JSON(http.StatusCreated, echo.Map{"kind": "other"})
    }, mw)

    for _, path := range []string{"/v1/things", "/v1/others"} {
        req := httptest.NewRequest(http.MethodPost, path, nil)
        req.Header.Set(IdempotencyHeader, "shared-token")
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, req)
        assert.Equal(t, http.StatusCreated, rec.Code)
    }
    assert.Equal(t, 1, thingCalls)
    assert.Equal(t, 1, otherCalls)
}
