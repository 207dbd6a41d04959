package device

import (
	"sync"

	"github.com/cgarov/meterflux/pkg/eastron_modbus"
	"github.com/cgarov/meterflux/pkg/meterbus"
	"github.com/cgarov/meterflux/pkg/sma_modbus"
)

// Component is one logical part of a physical device (a meter, a battery)
// sharing the device's transport connection and update cycle.
type Component interface {
	Id() string
	Kind() string
	FaultState() *meterbus.FaultState
	Update() error
}

type MeterComponent struct {
	id     string
	reader eastron_modbus.CounterReader
	fault  *meterbus.FaultState

	mu        sync.Mutex
	lastState *eastron_modbus.CounterState
}

func NewMeterComponent(id string, reader eastron_modbus.CounterReader, fault *meterbus.FaultState) *MeterComponent {
	return &MeterComponent{
		id:     id,
		reader: reader,
		fault:  fault,
	}
}

func (c *MeterComponent) Id() string {
	return c.id
}

func (c *MeterComponent) Kind() string {
	return "counter"
}

func (c *MeterComponent) FaultState() *meterbus.FaultState {
	return c.fault
}

// Update takes a fresh snapshot. Plausibility faults are recorded by the
// sink during snapshot assembly; only transport errors surface here.
func (c *MeterComponent) Update() error {
	state, err := c.reader.CounterState()
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.lastState = &state
	c.mu.Unlock()
	return nil
}

func (c *MeterComponent) CurrentState() (eastron_modbus.CounterState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastState == nil {
		return eastron_modbus.CounterState{}, false
	}
	return *c.lastState, true
}

type BatteryComponent struct {
	id     string
	reader sma_modbus.BatteryReader
	fault  *meterbus.FaultState

	mu        sync.Mutex
	lastState *sma_modbus.BatteryState
}

func NewBatteryComponent(id string, reader sma_modbus.BatteryReader, fault *meterbus.FaultState) *BatteryComponent {
	return &BatteryComponent{
		id:     id,
		reader: reader,
		fault:  fault,
	}
}

func (c *BatteryComponent) Id() string {
	return c.id
}

func (c *BatteryComponent) Kind() string {
	return "bat"
}

func (c *BatteryComponent) FaultState() *meterbus.FaultState {
	return c.fault
}

func (c *BatteryComponent) Update() error {
	state, err := c.reader.BatteryState()
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.lastState = &state
	c.mu.Unlock()
	c.fault.Clear()
	return nil
}

func (c *BatteryComponent) CurrentState() (sma_modbus.BatteryState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastState == nil {
		return sma_modbus.BatteryState{}, false
	}
	return *c.lastState, true
}
