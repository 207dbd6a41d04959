package eastron_modbus

import (
	"github.com/cgarov/meterflux/pkg/meterbus"

	"go.uber.org/zap"
)

// Sdm630 drives the three-phase SDM630 (and the register-compatible SDM72).
// Vector quantities are read in one burst of three consecutive float32
// values per quantity.
type Sdm630 struct {
	sdmReader
}

func NewSdm630(client meterbus.RegisterClient, unitID uint8, fault *meterbus.FaultState, sink CounterSink, logger *zap.Logger) (*Sdm630, error) {
	reader, err := newSdmReader(client, unitID, fault, sink, logger)
	if err != nil {
		return nil, err
	}
	return &Sdm630{sdmReader: reader}, nil
}

func (r *Sdm630) Voltages() ([]float64, error) {
	return r.client.ReadInputFloat32Block(regVoltageBase, 3, r.unitID)
}

func (r *Sdm630) Currents() ([]float64, error) {
	return r.client.ReadInputFloat32Block(regCurrentBase, 3, r.unitID)
}

func (r *Sdm630) PowerFactors() ([]float64, error) {
	return r.client.ReadInputFloat32Block(regPowerFactorBase, 3, r.unitID)
}

// Powers returns the per-phase active powers and their sum.
func (r *Sdm630) Powers() ([]float64, float64, error) {
	powers, err := r.client.ReadInputFloat32Block(regPowerBase, 3, r.unitID)
	if err != nil {
		return nil, 0, err
	}
	return powers, powers[0] + powers[1] + powers[2], nil
}

// CounterState assembles a full snapshot (7 register reads) and hands it to
// the sink for plausibility checking before returning.
func (r *Sdm630) CounterState() (CounterState, error) {
	powers, power, err := r.Powers()
	if err != nil {
		return CounterState{}, err
	}
	imported, err := r.Imported()
	if err != nil {
		return CounterState{}, err
	}
	exported, err := r.Exported()
	if err != nil {
		return CounterState{}, err
	}
	voltages, err := r.Voltages()
	if err != nil {
		return CounterState{}, err
	}
	currents, err := r.Currents()
	if err != nil {
		return CounterState{}, err
	}
	powerFactors, err := r.PowerFactors()
	if err != nil {
		return CounterState{}, err
	}
	frequency, err := r.Frequency()
	if err != nil {
		return CounterState{}, err
	}

	state := CounterState{
		ImportedWh:   imported,
		ExportedWh:   exported,
		PowerWatt:    power,
		Voltages:     voltages,
		Currents:     currents,
		Powers:       powers,
		PowerFactors: powerFactors,
		Frequency:    frequency,
		SerialNumber: r.serialNumber,
	}
	r.sink.CheckCounterState(state, r.fault)
	return state, nil
}
