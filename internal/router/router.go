// Package router registers the HTTP routes of the showtime API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-showtimes/internal/handler"
)

// RegisterRoutes maps the unversioned operational endpoints: the health
// check and, when metrics is non-nil, the prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, metrics echo.HandlerFunc) {
	e.GET("/healthz", handler.Health)
	if metrics != nil {
		e.GET("/metrics", metrics)
	}
}

// RegisterShowtimes maps the stateless schedule endpoints.  cache wraps the
// GET routes only; limit applies to the whole /v1 group.
func RegisterShowtimes(g *echo.Group, h *handler.ShowtimeHandler, cache echo.MiddlewareFunc) {
	g.GET("/showtimes", h.GetShowtimes, cache)
	g.GET("/listings", h.GetListings, cache)
	g.GET("/universe", h.GetUniverse, cache)
}

// RegisterSessions maps the browsing session endpoints.  Session responses
// are per-user and never cached.
func RegisterSessions(g *echo.Group, h *handler.SessionHandler) {
	s := g.Group("/sessions")
	s.POST("", h.CreateSession)
	s.GET("/:id", h.GetSession)
	s.PUT("/:id/date", h.SelectDate)
	s.PUT("/:id/filters", h.SetFilters)
	s.PUT("/:id/query", h.SetQuery)
	s.POST("/:id/titles/toggle", h.ToggleTitle)
	s.POST("/:id/cinemas/toggle", h.ToggleCinema)
	s.POST("/:id/hide", h.Hide)
	s.DELETE("/:id", h.DeleteSession)
}
