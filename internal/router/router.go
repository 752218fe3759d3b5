// Package router wires HTTP routes to their handlers and middleware.
package router

import (
    "time"

    "github.com/labstack/echo/v4"

    "github.com/tickethub/event-seat-reservation/internal/handler"
    "github.com/tickethub/event-seat-reservation/internal/idempotency"
    "github.com/tickethub/event-seat-reservation/internal/middleware"
    "github.com/tickethub/event-seat-reservation/internal/model"
)

// Handlers bundles every handler the router needs.
type Handlers struct {
    Auth         *handler.AuthHandler
    Sessions     *handler.SessionHandler
    Reservations *handler.ReservationHandler
    Sales        *handler.SaleHandler
    Admin        *handler.AdminHandler
}

// Options carries the cross-cutting route configuration.
type Options struct {
    JWTSecret       string
    IdemStore       idempotency.Store // nil disables the idempotency guard
    IdemLeaseTTL    time.Duration
    IdemResponseTTL time.Duration
}

// Register wires all routes.  Public browse endpoints and auth live
// without middleware; the reservation and sale mutations sit behind JWT
// auth and, when a store is configured, the idempotency guard.
func Register(e *echo.Echo, h Handlers, opts Options) {
    e.GET("/healthz", handler.Health)

    // Unauthenticated auth endpoints.
    auth := e.Group("/v1/auth")
    auth.POST("/register", h.Auth.Register)
    auth.POST("/login", h.Auth.Login)

    // Public browse.
    e.GET("/v1/sessions/:id", h.Sessions.Get)
    e.GET("/v1/sessions/:id/seats", h.Sessions.Seats)

    // Authenticated customer routes.
    v1 := e.Group("/v1")
    v1.Use(middleware.JWTAuth(opts.JWTSecret))
    v1.Use(middleware.RequireRole(model.RoleAdmin, model.RoleCustomer))
    if opts.IdemStore != nil {
        v1.Use(middleware.Idempotency(opts.IdemStore, opts.IdemLeaseTTL, opts.IdemResponseTTL))
    }
    v1.POST("/reservations", h.Reservations.Create)
    v1.GET("/reservations", h.Reservations.List)
    v1.DELETE("/reservations/:id", h.Reservations.Cancel)
    v1.POST("/sales", h.Sales.Confirm)

    // Admin provisioning.
    admin := e.Group("/v1/admin")
    admin.Use(middleware.JWTAuth(opts.JWTSecret))
    admin.Use(middleware.RequireRole(model.RoleAdmin))
    admin.POST("/sessions", h.Admin.CreateSession)
    admin.PATCH("/sessions/:id/status", h.Admin.UpdateSessionStatus)
    admin.POST("/sessions/:id/seats", h.Admin.ProvisionSeats)
    admin.PATCH("/seats/:id/status", h.Admin.UpdateSeatStatus)
}
