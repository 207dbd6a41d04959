package server

import (
	"net/http"

	"github.com/cgarov/meterflux/internal/device"
	"github.com/cgarov/meterflux/internal/events"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/status", s.StatusHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	if s.status.Healthy() {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

type statusPayload struct {
	Bridge     events.BridgeInfo        `json:"bridge"`
	Components []device.ComponentStatus `json:"components"`
}

func (s *Server) StatusHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, statusPayload{
		Bridge:     s.bridge,
		Components: s.status.ComponentStatuses(),
	})
}
