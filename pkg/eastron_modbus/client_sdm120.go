package eastron_modbus

import (
	"github.com/cgarov/meterflux/pkg/meterbus"

	"go.uber.org/zap"
)

// Sdm120 drives the single-phase SDM120. The vector accessors keep the
// three-phase shape by zero-padding phases 2 and 3.
type Sdm120 struct {
	sdmReader
}

func NewSdm120(client meterbus.RegisterClient, unitID uint8, fault *meterbus.FaultState, sink CounterSink, logger *zap.Logger) (*Sdm120, error) {
	reader, err := newSdmReader(client, unitID, fault, sink, logger)
	if err != nil {
		return nil, err
	}
	return &Sdm120{sdmReader: reader}, nil
}

func (r *Sdm120) Voltages() ([]float64, error) {
	voltage, err := r.client.ReadInputFloat32(regVoltageBase, r.unitID)
	if err != nil {
		return nil, err
	}
	return []float64{voltage, 0, 0}, nil
}

func (r *Sdm120) Currents() ([]float64, error) {
	current, err := r.client.ReadInputFloat32(regCurrentBase, r.unitID)
	if err != nil {
		return nil, err
	}
	return []float64{current, 0, 0}, nil
}

func (r *Sdm120) PowerFactors() ([]float64, error) {
	factor, err := r.client.ReadInputFloat32(regPowerFactorBase, r.unitID)
	if err != nil {
		return nil, err
	}
	return []float64{factor, 0, 0}, nil
}

func (r *Sdm120) Powers() ([]float64, float64, error) {
	power, err := r.client.ReadInputFloat32(regPowerBase, r.unitID)
	if err != nil {
		return nil, 0, err
	}
	return []float64{power, 0, 0}, power, nil
}

// CounterState assembles the single-phase snapshot (5 register reads).
// Voltages and power factors are readable through their accessors but are
// not part of the snapshot on this model.
func (r *Sdm120) CounterState() (CounterState, error) {
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
	currents, err := r.Currents()
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
		Currents:     currents,
		Powers:       powers,
		Frequency:    frequency,
		SerialNumber: r.serialNumber,
	}
	r.sink.CheckCounterState(state, r.fault)
	return state, nil
}
