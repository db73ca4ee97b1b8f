package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/PouryDev/session-booking/internal/handler" // import the handlers that implement the reservation API
)

// RegisterRoutes registers the health check on the provided Echo
// instance.  This endpoint can be used by load balancers or monitoring
// systems to verify that the service is up and running.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterReservations registers the reservation engine's HTTP surface
// under /v1.  Authentication and request validation are performed by
// upstream collaborators, so no middleware is applied here.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler) {
	g := e.Group("/v1")
	// Book seats in a session; serializes on the session row lock.
	g.POST("/sessions/:id/reservations", h.CreateReservation)
	// Read-through cached availability for a session.
	g.GET("/sessions/:id/availability", h.GetAvailability)
	// Cancel a reservation; idempotent, reports cancelled=false on replay.
	g.DELETE("/reservations/:id", h.CancelReservation)
	// Amount the payment subsystem should charge for a reservation.
	g.GET("/reservations/:id/total", h.GetTotalAmount)
	// All reservations created by a user, newest first.
	g.GET("/users/:id/reservations", h.ListReservations)
}
