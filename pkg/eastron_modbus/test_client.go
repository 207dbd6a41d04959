package eastron_modbus

func CreateTestCounterReader() (CounterReader, error) {
	return TestCounterReader{}, nil
}

// TestCounterReader serves consumers that want a meter without a bus.
type TestCounterReader struct {
}

func (r TestCounterReader) SerialNumber() string {
	return "21067432"
}

func (r TestCounterReader) Imported() (float64, error) {
	return 550220, nil
}

func (r TestCounterReader) Exported() (float64, error) {
	return 2770340, nil
}

func (r TestCounterReader) Frequency() (float64, error) {
	return 50.02, nil
}

func (r TestCounterReader) Voltages() ([]float64, error) {
	return []float64{231.2, 229.8, 232.5}, nil
}

func (r TestCounterReader) Currents() ([]float64, error) {
	return []float64{1.2, 0.8, 2.1}, nil
}

func (r TestCounterReader) Powers() ([]float64, float64, error) {
	powers := []float64{260.5, 170.2, 480.1}
	return powers, powers[0] + powers[1] + powers[2], nil
}

func (r TestCounterReader) PowerFactors() ([]float64, error) {
	return []float64{0.98, 0.95, 0.99}, nil
}

func (r TestCounterReader) CounterState() (CounterState, error) {
	powers, power, _ := r.Powers()
	voltages, _ := r.Voltages()
	currents, _ := r.Currents()
	factors, _ := r.PowerFactors()
	imported, _ := r.Imported()
	exported, _ := r.Exported()
	frequency, _ := r.Frequency()
	return CounterState{
		ImportedWh:   imported,
		ExportedWh:   exported,
		PowerWatt:    power,
		Voltages:     voltages,
		Currents:     currents,
		Powers:       powers,
		PowerFactors: factors,
		Frequency:    frequency,
		SerialNumber: r.SerialNumber(),
	}, nil
}
