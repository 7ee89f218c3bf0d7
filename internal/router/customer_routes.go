package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-seat-booking/internal/handler"
	"github.com/iliyamo/cinema-seat-booking/internal/middleware"
	"github.com/iliyamo/cinema-seat-booking/internal/model"
)

// RegisterCustomer registers the booking endpoints under /v1.  All routes
// require a valid JWT with the CUSTOMER or ADMIN role and pass through the
// rate limiter, which runs after authentication so it can key on the user.
func RegisterCustomer(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer, model.RoleAdmin),
		limiter,
	)
	g.POST("/shows/:id/book", h.Book)
	g.POST("/bookings/:id/cancel", h.Cancel)
	g.GET("/my-bookings", h.ListMine)
}
