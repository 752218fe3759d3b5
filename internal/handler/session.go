package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/tickethub/event-seat-reservation/internal/repository"
)

// SessionHandler serves public browse endpoints: session details and the
// per-session seat map with current statuses.
type SessionHandler struct {
    Sessions *repository.SessionRepo
    SeatRepo *repository.SeatRepo
}

func NewSessionHandler(sessions *repository.SessionRepo, seats *repository.SeatRepo) *SessionHandler {
    if sessions == nil || seats == nil {
        panic("nil repository passed to NewSessionHandler")
    }
    return &SessionHandler{Sessions: sessions, SeatRepo: seats}
}

// Get handles GET /v1/sessions/:id.
func (h *SessionHandler) Get(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
    }
    sess, err := h.Sessions.GetByID(c.Request().Context(), id)
    if err != nil {
        if errors.Is(err, repository.ErrSessionNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"session": sess})
}

// Seats handles GET /v1/sessions/:id/seats and returns the full seat map
// for the session.  Statuses reflect committed state only; a seat shown
// AVAILABLE may still lose a race with a concurrent reservation.
func (h *SessionHandler) Seats(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
    }
    if _, err := h.Sessions.GetByID(c.Request().Context(), id); err != nil {
        if errors.Is(err, repository.ErrSessionNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    seats, err := h.SeatRepo.ListBySession(c.Request().Context(), id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"seats": seats})
}
