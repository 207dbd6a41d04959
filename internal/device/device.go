package device

import (
	"fmt"
	"time"

	"github.com/cgarov/meterflux/internal/config"
	"github.com/cgarov/meterflux/pkg/eastron_modbus"
	"github.com/cgarov/meterflux/pkg/meterbus"
	"github.com/cgarov/meterflux/pkg/sma_modbus"

	"go.uber.org/zap"
)

const defaultRequestTimeout = 1 * time.Second

// Device owns one transport connection and the logical components behind
// it. Components are registered through CreateComponent and updated, in
// registration order, by UpdateAll.
type Device struct {
	cfg        config.DeviceConfig
	client     meterbus.RegisterClient
	checker    *MeterValueChecker
	components []Component
	logger     *zap.Logger
}

func NewDevice(cfg config.DeviceConfig, logger *zap.Logger) *Device {
	return &Device{
		cfg:     cfg,
		checker: NewMeterValueChecker(logger),
		logger:  logger.With(zap.String("device", cfg.Host)),
	}
}

// Initialize validates the configuration and creates the transport handle.
// It does not open a session; sessions are scoped to update cycles.
func (d *Device) Initialize() error {
	if err := d.cfg.Validate(); err != nil {
		return err
	}
	timeout := defaultRequestTimeout
	if d.cfg.TimeoutMillis > 0 {
		timeout = time.Duration(d.cfg.TimeoutMillis) * time.Millisecond
	}
	client, err := meterbus.NewModbusClient(d.cfg.Host, d.cfg.Port, timeout, d.logger, nil)
	if err != nil {
		return err
	}
	d.client = client
	return nil
}

// CreateComponent builds and registers one logical component. Counter
// construction reads the meter's serial number, so failures here are fatal
// to this device's setup, not recorded as runtime faults.
func (d *Device) CreateComponent(cfg config.ComponentConfig) (Component, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if d.client == nil {
		return nil, fmt.Errorf("component %s: device not initialized", cfg.Id)
	}

	fault := meterbus.NewFaultState()
	var component Component

	switch cfg.Kind {
	case config.ComponentKindCounter:
		reader, err := d.createCounterReader(cfg, fault)
		if err != nil {
			return nil, fmt.Errorf("component %s: %w", cfg.Id, err)
		}
		component = NewMeterComponent(cfg.Id, reader, fault)
	case config.ComponentKindBattery:
		unitID := uint8(cfg.UnitId)
		if cfg.UnitId == 0 {
			unitID = sma_modbus.DefaultUnitID
		}
		component = NewBatteryComponent(cfg.Id, sma_modbus.NewSunnyIslandReader(d.client, unitID, d.logger), fault)
	default:
		return nil, fmt.Errorf("component %s: unknown kind %q", cfg.Id, cfg.Kind)
	}

	d.components = append(d.components, component)
	return component, nil
}

func (d *Device) createCounterReader(cfg config.ComponentConfig, fault *meterbus.FaultState) (eastron_modbus.CounterReader, error) {
	switch cfg.Model {
	case eastron_modbus.ModelSdm630:
		return eastron_modbus.NewSdm630(d.client, uint8(cfg.UnitId), fault, d.checker, d.logger)
	case eastron_modbus.ModelSdm120:
		return eastron_modbus.NewSdm120(d.client, uint8(cfg.UnitId), fault, d.checker, d.logger)
	default:
		return nil, fmt.Errorf("unknown meter model %q", cfg.Model)
	}
}

func (d *Device) Components() []Component {
	return d.components
}

// UpdateAll runs one update cycle: open the session once, update every
// component behind its own failure boundary, close the session on every
// exit path. A failing component is recorded against its fault state and
// never stops its siblings.
func (d *Device) UpdateAll() error {
	if err := d.client.Open(); err != nil {
		for _, c := range d.components {
			c.FaultState().DeclareError(err)
		}
		return err
	}
	defer d.client.Close()

	for _, c := range d.components {
		d.updateComponent(c)
	}
	return nil
}

func (d *Device) updateComponent(c Component) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("update panicked: %v", r)
			c.FaultState().DeclareError(err)
			d.logger.Error("component update panicked", zap.String("component", c.Id()), zap.Any("panic", r))
		}
	}()
	if err := c.Update(); err != nil {
		c.FaultState().DeclareError(err)
		d.logger.Warn("component update failed", zap.String("component", c.Id()), zap.Error(err))
		return
	}
	d.logger.Debug("component updated", zap.String("component", c.Id()))
}

// Healthy reports whether no component currently carries an error fault.
func (d *Device) Healthy() bool {
	for _, c := range d.components {
		if c.FaultState().Level() == meterbus.FaultLevelError {
			return false
		}
	}
	return true
}

type ComponentStatus struct {
	Id      string    `json:"id"`
	Kind    string    `json:"kind"`
	Fault   string    `json:"fault"`
	Message string    `json:"message,omitempty"`
	Since   time.Time `json:"since"`
	State   any       `json:"state,omitempty"`
}

// ComponentStatuses reports per-component health and the last snapshot for
// the operational surface.
func (d *Device) ComponentStatuses() []ComponentStatus {
	statuses := make([]ComponentStatus, 0, len(d.components))
	for _, c := range d.components {
		status := ComponentStatus{
			Id:      c.Id(),
			Kind:    c.Kind(),
			Fault:   c.FaultState().Level().String(),
			Message: c.FaultState().Message(),
			Since:   c.FaultState().Since(),
		}
		switch comp := c.(type) {
		case *MeterComponent:
			if state, ok := comp.CurrentState(); ok {
				status.State = state
			}
		case *BatteryComponent:
			if state, ok := comp.CurrentState(); ok {
				status.State = state
			}
		}
		statuses = append(statuses, status)
	}
	return statuses
}
