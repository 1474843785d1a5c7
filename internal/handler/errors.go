package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "bad_request", "message": msg})
}

func notFound(c echo.Context, msg string) error {
	return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": msg})
}

// upstreamFailed reports a day that could not be loaded in full.
func upstreamFailed(c echo.Context, err error, extra echo.Map) error {
	body := echo.Map{"error": "schedule_unavailable", "message": err.Error()}
	for k, v := range extra {
		body[k] = v
	}
	return c.JSON(http.StatusBadGateway, body)
}
