package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/cinema-seat-booking/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/cinema-seat-booking/internal/middleware" // import middleware for JWT authentication and role enforcement
	"github.com/iliyamo/cinema-seat-booking/internal/model"
)

// RegisterRoutes registers routes that do not require authentication and
// are not part of the versioned API.  Currently it exposes only a health
// check; db may be nil when running without a database.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers all authentication‑related routes and applies the
// necessary middleware.  Unauthenticated operations live under /v1/auth,
// while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// rotates the refresh token
	g.POST("/refresh", a.Refresh)
	// Logout does not require JWT authentication: a refresh_token in the
	// body revokes that session, a bearer token alone revokes all of them.
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer, model.RoleAdmin),
	)
}

// RegisterPublic registers unauthenticated catalog endpoints.  cache
// fronts the read routes; pass a pass-through middleware to disable it.
func RegisterPublic(e *echo.Echo, p *handler.CatalogHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/movies", p.ListMovies, cache)
	e.GET("/v1/movies/:id/shows", p.ListMovieShows, cache)
	e.GET("/v1/shows/:id", p.GetShow, cache)
}
