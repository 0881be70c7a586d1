// Package router defines how HTTP routes are registered for the API.
package router

import (
    "github.com/labstack/echo/v4"
    "github.com/prometheus/client_golang/prometheus/promhttp"

    "github.com/openbooking/escrow-core/internal/handler"
    "github.com/openbooking/escrow-core/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance: the health check used by load balancers
// and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
    e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterBookings registers the booking lifecycle endpoints.  Creation
// and state transitions live under /v1/bookings; release and refund move
// escrowed funds and are restricted to the ADMIN role because both are
// irreversible.
func RegisterBookings(e *echo.Echo, b *handler.BookingHandler, jwtSecret string) {
    g := e.Group("/v1/bookings")
    g.POST("", b.Create)
    g.GET("/:id", b.Get)
    g.GET("/:id/escrow", b.GetEscrow)
    g.GET("/:id/transitions", b.GetTransitions)
    g.POST("/:id/lock", b.Lock)
    g.POST("/:id/check-in", b.CheckIn)
    g.POST("/:id/complete", b.Complete)
    g.POST("/:id/cancel", b.Cancel)

    admin := e.Group("/v1/bookings")
    admin.Use(middleware.JWTAuth(jwtSecret))
    admin.Use(middleware.RequireRole("ADMIN"))
    admin.POST("/:id/release", b.Release)
    admin.POST("/:id/refund", b.Refund)
}

// RegisterPayments registers the payment facade and the confirmation
// feed consumed by the on-chain watcher.  The caller supplies the rate
// limiter; pass a pass-through middleware to disable it.
func RegisterPayments(e *echo.Echo, p *handler.PaymentHandler, limit echo.MiddlewareFunc) {
    g := e.Group("/v1/payments", limit)
    g.POST("", p.Process)
    g.GET("/:id", p.Status)
    g.POST("/:id/refund", p.Refund)

    e.POST("/v1/confirmations", p.Confirmations, limit)
}
