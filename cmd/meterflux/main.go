package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cgarov/meterflux/internal/config"
	"github.com/cgarov/meterflux/internal/device"
	"github.com/cgarov/meterflux/internal/mqtt"
	"github.com/cgarov/meterflux/internal/poller"
	"github.com/cgarov/meterflux/internal/server"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/lmittmann/tint"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const mqttOpTimeout = 10 * time.Second

func gracefulShutdown(apiServer *http.Server, p *poller.Poller, broker *mqtt.MQTTClient, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	p.Stop()

	if broker != nil {
		offlineDone := make(chan error, 1)
		broker.PublishBridgeState(false, func(err error) { offlineDone <- err }, mqttOpTimeout)
		<-offlineDone
		broker.Disconnect(2 * time.Second)
	}

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	setupSlog(cfg.LogLevel)
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())
	defer logger.Sync()

	// device + components
	dev := device.NewDevice(cfg.Device, logger)
	if err := dev.Initialize(); err != nil {
		logger.Fatal("device init failed", zap.Error(err))
	}
	for _, componentCfg := range cfg.Device.Components {
		if _, err := dev.CreateComponent(componentCfg); err != nil {
			logger.Fatal("component setup failed", zap.String("component", componentCfg.Id), zap.Error(err))
		}
	}

	// MQTT is optional: without a broker the HTTP surface still works
	broker, err := connectBroker(cfg, logger)
	if err != nil {
		logger.Fatal("MQTT connect failed", zap.Error(err))
	}

	var publisher poller.EventPublisher
	if broker != nil {
		publisher = broker
	}

	p := poller.NewPoller(dev, publisher, time.Duration(cfg.PollerConfig.PollIntervalMillis)*time.Millisecond, logger)
	pollCtx, cancelPoll := context.WithCancel(context.Background())
	defer cancelPoll()
	if err := p.Start(pollCtx); err != nil {
		logger.Fatal("poller start failed", zap.Error(err))
	}

	apiServer := server.NewServer(*cfg, dev)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(apiServer, p, broker, done)

	err = apiServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")
}

func initConfig() (*config.Config, error) {

	// alias PORT => METERFLUX_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("METERFLUX_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("meterflux")
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	if err := cfg.Device.Validate(); err != nil {
		return nil, err
	}

	// check and fix base topic
	if cfg.MQTT.Host != "" {
		baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
		if err != nil {
			return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
		}
		cfg.MQTT.BaseTopic = baseTopic
	}

	// check bounds
	if cfg.PollerConfig.PollIntervalMillis < 1000 {
		return nil, errors.New("config param poller.poll_interval_millis should be >= 1000")
	}

	return &cfg, nil
}

func connectBroker(cfg *config.Config, logger *zap.Logger) (*mqtt.MQTTClient, error) {
	if cfg.MQTT.Host == "" {
		logger.Info("no MQTT broker configured, publishing disabled")
		return nil, nil
	}

	broker := mqtt.CreateMQTTClient(cfg, mqtt.OptsFromConfig(cfg), func(client pahomqtt.Client) {
		logger.Info("MQTT connected")
	}, func(client pahomqtt.Client, err error) {
		logger.Warn("MQTT connection lost", zap.Error(err))
	})

	connectDone := make(chan error, 1)
	broker.Connect(func(err error) { connectDone <- err }, mqttOpTimeout)
	if err := <-connectDone; err != nil {
		return nil, err
	}

	onlineDone := make(chan error, 1)
	broker.PublishBridgeState(true, func(err error) { onlineDone <- err }, mqttOpTimeout)
	if err := <-onlineDone; err != nil {
		logger.Warn("bridge state publish failed", zap.Error(err))
	}

	return broker, nil
}

func setupSlog(level zapcore.Level) {
	var slogLevel slog.Level = slog.LevelInfo
	switch level {
	case zap.DebugLevel:
		slogLevel = slog.LevelDebug
	case zap.WarnLevel:
		slogLevel = slog.LevelWarn
	case zap.ErrorLevel, zap.FatalLevel:
		slogLevel = slog.LevelError
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slogLevel,
		TimeFormat: time.DateTime,
	})))
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("mqtt.base_topic", "meterflux")
	viper.SetDefault("poller.poll_interval_millis", 5000)
	viper.SetDefault("device.port", 502)
	viper.SetDefault("device.timeout_millis", 1000)
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
