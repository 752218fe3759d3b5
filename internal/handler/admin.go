package handler

import (
    "errors"
    "fmt"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/tickethub/event-seat-reservation/internal/model"
    "github.com/tickethub/event-seat-reservation/internal/repository"
)

// AdminHandler provisions sessions and seats.  Routes using it must be
// wrapped with RequireRole(ADMIN).
type AdminHandler struct {
    Sessions *repository.SessionRepo
    Seats    *repository.SeatRepo
}

func NewAdminHandler(sessions *repository.SessionRepo, seats *repository.SeatRepo) *AdminHandler {
    if sessions == nil || seats == nil {
        panic("nil repository passed to NewAdminHandler")
    }
    return &AdminHandler{Sessions: sessions, Seats: seats}
}

// CreateSession handles POST /v1/admin/sessions.  New sessions start in
// DRAFT unless an explicit valid status is given; seats are provisioned
// separately before the session is activated.
func (h *AdminHandler) CreateSession(c echo.Context) error {
    var body struct {
        Name             string `json:"name"`
        Status           string `json:"status"`
        TicketPriceCents uint32 `json:"ticket_price_cents"`
        MinSeats         uint32 `json:"min_seats"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    body.Name = strings.TrimSpace(body.Name)
    if body.Name == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
    }
    status := strings.ToUpper(strings.TrimSpace(body.Status))
    switch status {
    case "":
        status = model.SessionDraft
    case model.SessionDraft, model.SessionActive, model.SessionClosed, model.SessionArchived:
    default:
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
    }
    if body.MinSeats == 0 {
        body.MinSeats = 1
    }

    sess := &model.Session{
        Name:             body.Name,
        Status:           status,
        TicketPriceCents: body.TicketPriceCents,
        MinSeats:         body.MinSeats,
    }
    if err := h.Sessions.Create(c.Request().Context(), sess); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create session failed"})
    }
    return c.JSON(http.StatusCreated, echo.Map{"session": sess})
}

// UpdateSessionStatus handles PATCH /v1/admin/sessions/:id/status.
func (h *AdminHandler) UpdateSessionStatus(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
    }
    var body struct {
        Status string `json:"status"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    status := strings.ToUpper(strings.TrimSpace(body.Status))
    switch status {
    case model.SessionDraft, model.SessionActive, model.SessionClosed, model.SessionArchived:
    default:
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
    }
    if err := h.Sessions.UpdateStatus(c.Request().Context(), id, status); err != nil {
        if errors.Is(err, repository.ErrSessionNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"id": id, "status": status})
}

// ProvisionSeats handles POST /v1/admin/sessions/:id/seats.  The body
// gives a rows x cols grid; labels are generated as A1..A{cols},
// B1.. and so on.  All seats start AVAILABLE.  Duplicate labels within
// the session are rejected by the unique index.
func (h *AdminHandler) ProvisionSeats(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
    }
    var body struct {
        Rows int `json:"rows"`
        Cols int `json:"cols"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.Rows < 1 || body.Cols < 1 || body.Rows > 100 || body.Cols > 100 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "rows and cols must be between 1 and 100"})
    }
    if _, err := h.Sessions.GetByID(c.Request().Context(), id); err != nil {
        if errors.Is(err, repository.ErrSessionNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    seats := make([]model.Seat, 0, body.Rows*body.Cols)
    for r := 0; r < body.Rows; r++ {
        row := indexToRowLabel(r)
        for col := 1; col <= body.Cols; col++ {
            seats = append(seats, model.Seat{
                SessionID: id,
                Label:     fmt.Sprintf("%s%d", row, col),
                Status:    model.SeatAvailable,
            })
        }
    }
    if err := h.Seats.CreateBulk(c.Request().Context(), seats); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "provision seats failed"})
    }
    return c.JSON(http.StatusCreated, echo.Map{"created": len(seats)})
}

// UpdateSeatStatus handles PATCH /v1/admin/seats/:id/status.  Only
// transitions in the legal-transition table are accepted, so an admin
// can block or unblock a seat but never resurrect a sold one.
func (h *AdminHandler) UpdateSeatStatus(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
    }
    var body struct {
        Status string `json:"status"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    to := strings.ToUpper(strings.TrimSpace(body.Status))
    if !model.ValidSeatStatus(to) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
    }

    seat, err := h.Seats.GetByID(c.Request().Context(), id)
    if err != nil {
        if errors.Is(err, repository.ErrSeatNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if !model.CanTransitionSeat(seat.Status, to) {
        return c.JSON(http.StatusConflict, echo.Map{
            "error": fmt.Sprintf("cannot transition seat from %s to %s", seat.Status, to),
        })
    }
    ok, err := h.Seats.UpdateStatus(c.Request().Context(), id, seat.Status, to)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if !ok {
        // The seat changed state between the read and the update.
        return c.JSON(http.StatusConflict, echo.Map{"error": "seat status changed concurrently"})
    }
    return c.JSON(http.StatusOK, echo.Map{"id": id, "status": to})
}

// indexToRowLabel converts a zero-based row index to an alphabetical
// label: 0 -> A, 25 -> Z, 26 -> AA.
func indexToRowLabel(i int) string {
    if i < 0 {
        return ""
    }
    res := []rune{}
    for {
        res = append([]rune{rune('A' + i%26)}, res...)
        i = i/26 - 1
        if i < 0 {
            break
        }
    }
    return string(res)
}
