package device

import (
	"fmt"
	"strings"

	"github.com/cgarov/meterflux/pkg/eastron_modbus"
	"github.com/cgarov/meterflux/pkg/meterbus"

	"go.uber.org/zap"
)

// Plausibility bounds for grid-connected meters. A phase reading of exactly
// zero is accepted everywhere: unconnected phases on three-phase meters
// report zero.
const (
	minPlausibleVoltage   = 100.0
	maxPlausibleVoltage   = 300.0
	minPlausibleFrequency = 40.0
	maxPlausibleFrequency = 70.0
	maxPlausibleCurrent   = 1000.0
)

// MeterValueChecker validates completed snapshots and keeps the component's
// fault state in sync: implausible values record a warning, a plausible
// snapshot clears any previous condition.
type MeterValueChecker struct {
	logger *zap.Logger
}

func NewMeterValueChecker(logger *zap.Logger) *MeterValueChecker {
	return &MeterValueChecker{logger: logger}
}

func (c *MeterValueChecker) CheckCounterState(state eastron_modbus.CounterState, fault *meterbus.FaultState) {
	var problems []string

	for i, v := range state.Voltages {
		if v != 0 && (v < minPlausibleVoltage || v > maxPlausibleVoltage) {
			problems = append(problems, fmt.Sprintf("voltage L%d out of range: %.1f V", i+1, v))
		}
	}
	if f := state.Frequency; f != 0 && (f < minPlausibleFrequency || f > maxPlausibleFrequency) {
		problems = append(problems, fmt.Sprintf("frequency out of range: %.2f Hz", f))
	}
	for i, a := range state.Currents {
		if a < -maxPlausibleCurrent || a > maxPlausibleCurrent {
			problems = append(problems, fmt.Sprintf("current L%d out of range: %.1f A", i+1, a))
		}
	}
	if state.ImportedWh < 0 || state.ExportedWh < 0 {
		problems = append(problems, "negative energy counter")
	}

	if len(problems) > 0 {
		message := strings.Join(problems, "; ")
		c.logger.Warn("implausible meter values", zap.String("serial", state.SerialNumber), zap.String("problems", message))
		fault.DeclareWarning(message)
		return
	}
	fault.Clear()
}
