package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is a simple health-check endpoint used by load balancers and
// monitoring systems to verify that the service is running.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Root greets callers hitting the bare host, mostly as a smoke test.
func Root(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"message": "Hello, world!"})
}
