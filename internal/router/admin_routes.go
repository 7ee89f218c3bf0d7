package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-seat-booking/internal/handler"    // catalog handlers
	"github.com/iliyamo/cinema-seat-booking/internal/middleware" // JWT + role middlewares
	"github.com/iliyamo/cinema-seat-booking/internal/model"
)

// RegisterAdmin registers ADMIN-scoped catalog endpoints under /v1/admin.
func RegisterAdmin(e *echo.Echo, p *handler.CatalogHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.POST("/movies", p.CreateMovie)
	g.POST("/movies/:id/shows", p.CreateShow)
}
