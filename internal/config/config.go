package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

const (
	ComponentKindCounter = "counter"
	ComponentKindBattery = "bat"
)

type Config struct {
	LogLevel zapcore.Level
	Device   DeviceConfig `mapstructure:"device"`
	MQTT     MQTTConfig   `mapstructure:"mqtt"`

	PollerConfig PollerConfig `mapstructure:"poller"`
	Port         uint         `mapstructure:"port"`
	HttpLog      bool         `mapstructure:"http_log"`
}

type DeviceConfig struct {
	Host          string
	Port          uint
	TimeoutMillis uint32            `mapstructure:"timeout_millis"`
	Components    []ComponentConfig `mapstructure:"components"`
}

type ComponentConfig struct {
	Kind   string
	Id     string
	Model  string
	UnitId uint `mapstructure:"unit_id"`
}

type PollerConfig struct {
	PollIntervalMillis uint32 `mapstructure:"poll_interval_millis"`
}

type MQTTConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	BaseTopic string `mapstructure:"base_topic"`
}

func (c DeviceConfig) Validate() error {
	if c.Host == "" {
		return errors.New("config param device.host is required")
	}
	if len(c.Components) == 0 {
		return errors.New("config param device.components must declare at least one component")
	}
	for _, comp := range c.Components {
		if err := comp.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c ComponentConfig) Validate() error {
	if c.Id == "" {
		return errors.New("config param device.components[].id is required")
	}
	if c.UnitId > 247 {
		return fmt.Errorf("component %s: unit_id must be <= 247", c.Id)
	}
	switch c.Kind {
	case ComponentKindCounter:
		if c.Model != "sdm630" && c.Model != "sdm120" {
			return fmt.Errorf("component %s: unknown meter model %q", c.Id, c.Model)
		}
	case ComponentKindBattery:
	default:
		return fmt.Errorf("component %s: unknown kind %q", c.Id, c.Kind)
	}
	return nil
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
