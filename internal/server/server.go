package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/cgarov/meterflux/internal/config"
	"github.com/cgarov/meterflux/internal/device"
	"github.com/cgarov/meterflux/internal/events"

	_ "github.com/joho/godotenv/autoload"
)

// StatusProvider is the operational view over the polled device.
type StatusProvider interface {
	Healthy() bool
	ComponentStatuses() []device.ComponentStatus
}

type Server struct {
	port    uint
	httpLog bool
	status  StatusProvider
	bridge  events.BridgeInfo
}

func NewServer(cfg config.Config, status StatusProvider) *http.Server {
	NewServer := &Server{
		port:    cfg.Port,
		httpLog: cfg.HttpLog,
		status:  status,
		bridge:  events.NewBridgeInfo(cfg.MQTT.BaseTopic),
	}

	// Declare Server config
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", NewServer.port),
		Handler:      NewServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server
}
