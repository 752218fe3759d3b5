package middleware

import (
    "bytes"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/tickethub/event-seat-reservation/internal/idempotency"
)

// IdempotencyHeader is the request header carrying the client-supplied key.
const IdempotencyHeader = "Idempotency-Key"

// idemWriter captures the response body/status while forwarding to the client.
type idemWriter struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
}

func (w *idemWriter) WriteHeader(code int) { w.status = code; w.ResponseWriter.WriteHeader(code) }
func (w *idemWriter) Write(b []byte) (int, error) {
    w.buf.Write(b)
    return w.ResponseWriter.Write(b)
}

// Idempotency wraps a mutating endpoint so repeated calls with the same
// Idempotency-Key header return the first call's response exactly once
// executed.  Requests without the header pass through untouched.
//
// The first caller claims the key with a short lease and runs the real
// handler; its response is then stored under the key with a longer TTL.
// Later callers get the stored response verbatim.  A caller arriving
// while the first execution is still in flight receives 409 with a
// retry_after hint rather than blocking.  Same key means same cached
// result, regardless of body differences; detecting key reuse across
// different payloads is documented out of scope.
func Idempotency(store idempotency.Store, lease, responseTTL time.Duration) echo.MiddlewareFunc {
    if store == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc {
            return func(c echo.Context) error { return next(c) }
        }
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := c.Request().Header.Get(IdempotencyHeader)
            if key == "" {
                return next(c)
            }
            // Scope the key to method+route so the same token used
            // against two endpoints never collides.
            scoped := c.Request().Method + ":" + c.Path() + ":" + key
            ctx := c.Request().Context()

            ok, err := store.SetIfAbsent(ctx, scoped, lease)
            if err != nil {
                // The guard is a fast shared store; when it is down we
                // prefer availability and let the request through.
                c.Logger().Warnf("idempotency: store error, passing through: %v", err)
                return next(c)
            }
            if !ok {
                cached, err := store.Get(ctx, scoped)
                if err == nil {
                    return c.Blob(cached.Status, cached.ContentType, cached.Body)
                }
                if err == idempotency.ErrInFlight {
                    return c.JSON(http.StatusConflict, echo.Map{
                        "error":       "request with this idempotency key is in flight",
                        "retry_after": 1,
                    })
                }
                // Lease lapsed between SetIfAbsent and Get; rare enough
                // that telling the client to retry is fine.
                return c.JSON(http.StatusConflict, echo.Map{
                    "error":       "idempotency key state unknown, retry",
                    "retry_after": 1,
                })
            }

            w := &idemWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK}
            c.Response().Writer = w
            if err := next(c); err != nil {
                // Let the error handler produce the response first, then
                // fall through to capture it.
                c.Error(err)
            }
            if w.status >= http.StatusInternalServerError {
                // A server-side failure is not a replayable outcome.
                // Leave only the short lease in place so the client's
                // retry with the same key can execute once it lapses.
                return nil
            }
            resp := &idempotency.StoredResponse{
                Status:      w.status,
                ContentType: c.Response().Header().Get(echo.HeaderContentType),
                Body:        w.buf.Bytes(),
            }
            if err := store.Put(ctx, scoped, resp, responseTTL); err != nil {
                c.Logger().Warnf("idempotency: failed to store response: %v", err)
            }
            return nil
        }
    }
}
