package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/tickethub/event-seat-reservation/internal/repository"
    "github.com/tickethub/event-seat-reservation/internal/service"
)

// SaleHandler exposes sale confirmation over HTTP.
type SaleHandler struct {
    Sales *service.SaleService
}

func NewSaleHandler(s *service.SaleService) *SaleHandler {
    if s == nil {
        panic("nil service passed to NewSaleHandler")
    }
    return &SaleHandler{Sales: s}
}

// Confirm handles POST /v1/sales.  The body names a pending reservation
// owned by the caller; on success the reservation is confirmed, the
// seat is sold and the sale record is returned with 201.  An expired
// reservation gets a 409 with its own code so clients know to reserve
// again rather than fight over the seat.
func (h *SaleHandler) Confirm(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        ReservationID uint64 `json:"reservation_id"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.ReservationID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "reservation_id is required"})
    }

    sale, err := h.Sales.Confirm(c.Request().Context(), body.ReservationID, userID)
    if err != nil {
        switch {
        case errors.Is(err, repository.ErrReservationNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
        case errors.Is(err, repository.ErrForbidden):
            return c.JSON(http.StatusForbidden, echo.Map{"error": "not your reservation"})
        case errors.Is(err, repository.ErrReservationExpired):
            return c.JSON(http.StatusConflict, echo.Map{"error": "reservation expired", "code": "RESERVATION_EXPIRED"})
        case errors.Is(err, repository.ErrConflict):
            return c.JSON(http.StatusConflict, echo.Map{"error": "reservation cannot be confirmed", "code": "CONFLICT"})
        default:
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
        }
    }

    return c.JSON(http.StatusCreated, echo.Map{"sale": sale})
}
