package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/tickethub/event-seat-reservation/internal/repository"
    "github.com/tickethub/event-seat-reservation/internal/service"
)

// ReservationHandler exposes the reservation lifecycle over HTTP.  All
// methods assume JWT authentication has already run; they may still
// return 401 when the user id cannot be extracted from the context.
type ReservationHandler struct {
    Reservations *service.ReservationService
}

func NewReservationHandler(s *service.ReservationService) *ReservationHandler {
    if s == nil {
        panic("nil service passed to NewReservationHandler")
    }
    return &ReservationHandler{Reservations: s}
}

// Create handles POST /v1/reservations.  The body carries a session id
// and up to twenty seat ids; on success every seat is held and a 201
// response lists the per-seat reservations with their shared expiry.
// If any seat is taken the whole request fails with 409 and the body
// names the conflicting seats.
func (h *ReservationHandler) Create(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        SessionID uint64   `json:"session_id"`
        SeatIDs   []uint64 `json:"seat_ids"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.SessionID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "session_id is required"})
    }

    created, err := h.Reservations.Create(c.Request().Context(), body.SessionID, userID, body.SeatIDs)
    if err != nil {
        var conflict *repository.SeatConflictError
        switch {
        case errors.As(err, &conflict):
            return c.JSON(http.StatusConflict, echo.Map{
                "error":    "seats unavailable",
                "seat_ids": conflict.SeatIDs,
            })
        case errors.Is(err, service.ErrValidation):
            return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
        case errors.Is(err, repository.ErrSessionNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
        case errors.Is(err, repository.ErrSeatNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
        default:
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
        }
    }

    return c.JSON(http.StatusCreated, echo.Map{"reservations": created})
}

// List handles GET /v1/reservations and returns the caller's
// reservations, newest first.
func (h *ReservationHandler) List(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    items, err := h.Reservations.ListByUser(c.Request().Context(), userID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"reservations": items})
}

// Cancel handles DELETE /v1/reservations/:id.  Only the owner may
// cancel, and only while the reservation is still pending.
func (h *ReservationHandler) Cancel(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }

    if err := h.Reservations.Cancel(c.Request().Context(), id, userID); err != nil {
        switch {
        case errors.Is(err, repository.ErrReservationNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
        case errors.Is(err, repository.ErrForbidden):
            return c.JSON(http.StatusForbidden, echo.Map{"error": "not your reservation"})
        case errors.Is(err, repository.ErrConflict):
            return c.JSON(http.StatusConflict, echo.Map{"error": "reservation is not pending"})
        default:
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
        }
    }
    return c.JSON(http.StatusOK, echo.Map{"status": "CANCELLED"})
}
