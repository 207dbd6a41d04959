package eastron_modbus

import (
	"github.com/cgarov/meterflux/pkg/meterbus"
)

const (
	ModelSdm630 = "sdm630"
	ModelSdm120 = "sdm120"
)

// CounterState is one point-in-time snapshot of a meter. Built fresh on
// every poll; the three-phase slices always carry 3 elements, single-phase
// meters zero-pad phases 2 and 3.
type CounterState struct {
	ImportedWh   float64
	ExportedWh   float64
	PowerWatt    float64
	Voltages     []float64
	Currents     []float64
	Powers       []float64
	PowerFactors []float64
	Frequency    float64
	SerialNumber string
}

// CounterSink receives every completed snapshot together with the fault
// handle of the component it belongs to, checks plausibility and records or
// clears fault conditions.
type CounterSink interface {
	CheckCounterState(state CounterState, fault *meterbus.FaultState)
}

type CounterReader interface {
	SerialNumber() string
	Imported() (float64, error)
	Exported() (float64, error)
	Frequency() (float64, error)
	Voltages() ([]float64, error)
	Currents() ([]float64, error)
	Powers() ([]float64, float64, error)
	PowerFactors() ([]float64, error)
	CounterState() (CounterState, error)
}
