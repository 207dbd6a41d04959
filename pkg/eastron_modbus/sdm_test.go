package eastron_modbus

import (
	"testing"

	"github.com/cgarov/meterflux/pkg/meterbus"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockRegisterClient struct {
	opens  int
	closes int

	holdingReads int
	inputReads   int

	holdingValues map[uint16]uint32
	inputValues   map[uint16]float64
	blockValues   map[uint16][]float64
}

func newMockRegisterClient() *mockRegisterClient {
	return &mockRegisterClient{
		holdingValues: map[uint16]uint32{
			regSerialNumber: 21067432,
		},
		inputValues: map[uint16]float64{
			regImportedEnergy:  550.22,
			regExportedEnergy:  2770.34,
			regFrequency:       50.02,
			regVoltageBase:     230.1,
			regCurrentBase:     4.2,
			regPowerBase:       960.5,
			regPowerFactorBase: 0.97,
		},
		blockValues: map[uint16][]float64{
			regVoltageBase:     {231.2, 229.8, 232.5},
			regCurrentBase:     {1.2, 0.8, 2.1},
			regPowerBase:       {100.0, 150.0, 120.0},
			regPowerFactorBase: {0.98, 0.95, 0.99},
		},
	}
}

func (c *mockRegisterClient) Open() error {
	c.opens++
	return nil
}

func (c *mockRegisterClient) Close() error {
	c.closes++
	return nil
}

func (c *mockRegisterClient) ReadHoldingUint32(addr uint16, unitID uint8) (uint32, error) {
	c.holdingReads++
	return c.holdingValues[addr], nil
}

func (c *mockRegisterClient) ReadHoldingInt32(addr uint16, unitID uint8) (int32, error) {
	c.holdingReads++
	return int32(c.holdingValues[addr]), nil
}

func (c *mockRegisterClient) ReadInputFloat32(addr uint16, unitID uint8) (float64, error) {
	c.inputReads++
	return c.inputValues[addr], nil
}

func (c *mockRegisterClient) ReadInputFloat32Block(addr uint16, count uint16, unitID uint8) ([]float64, error) {
	c.inputReads++
	return c.blockValues[addr], nil
}

type recordingSink struct {
	states []CounterState
	faults []*meterbus.FaultState
}

func (s *recordingSink) CheckCounterState(state CounterState, fault *meterbus.FaultState) {
	s.states = append(s.states, state)
	s.faults = append(s.faults, fault)
}

func TestConstructionReadsSerialNumberOnce(t *testing.T) {

	require := require.New(t)

	client := newMockRegisterClient()
	reader, err := NewSdm630(client, 1, meterbus.NewFaultState(), &recordingSink{}, zap.NewNop())
	require.NoError(err)

	require.Equal(1, client.holdingReads, "exactly one holding read at construction")
	require.Equal(0, client.inputReads, "no input reads at construction")
	require.Equal(1, client.opens, "identity read uses its own session")
	require.Equal(1, client.closes)
	require.Equal("21067432", reader.SerialNumber())
}

func TestFrequencyScaleHeuristic(t *testing.T) {

	cases := []struct {
		raw      float64
		expected float64
	}{
		{49.9, 49.9},
		{50.1, 50.1},
		{499, 49.9},
		{501, 50.1},
	}

	for _, tc := range cases {
		client := newMockRegisterClient()
		reader, err := NewSdm630(client, 1, meterbus.NewFaultState(), &recordingSink{}, zap.NewNop())
		require.NoError(t, err)

		client.inputValues[regFrequency] = tc.raw
		frequency, err := reader.Frequency()
		require.NoError(t, err)
		assert.InDelta(t, tc.expected, frequency, 1e-9, "raw %f", tc.raw)
	}
}

func TestEnergyScaleFactor(t *testing.T) {

	require := require.New(t)

	client := newMockRegisterClient()
	reader, err := NewSdm630(client, 1, meterbus.NewFaultState(), &recordingSink{}, zap.NewNop())
	require.NoError(err)

	imported, err := reader.Imported()
	require.NoError(err)
	require.InDelta(550220.0, imported, 1e-6, "kWh register scaled to Wh")

	exported, err := reader.Exported()
	require.NoError(err)
	require.InDelta(2770340.0, exported, 1e-6)
}

func TestSdm630AggregatePower(t *testing.T) {

	require := require.New(t)

	client := newMockRegisterClient()
	reader, err := NewSdm630(client, 1, meterbus.NewFaultState(), &recordingSink{}, zap.NewNop())
	require.NoError(err)

	powers, power, err := reader.Powers()
	require.NoError(err)
	require.Equal([]float64{100.0, 150.0, 120.0}, powers)
	require.Equal(370.0, power, "aggregate is the exact float sum")
}

func TestSdm630SnapshotReadCountAndSink(t *testing.T) {

	require := require.New(t)

	client := newMockRegisterClient()
	fault := meterbus.NewFaultState()
	sink := &recordingSink{}
	reader, err := NewSdm630(client, 1, fault, sink, zap.NewNop())
	require.NoError(err)

	state, err := reader.CounterState()
	require.NoError(err)

	require.Equal(7, client.inputReads, "power, imported, exported, voltages, currents, power factors, frequency")
	require.Equal(1, client.holdingReads, "serial comes from construction, not from the snapshot")

	require.Len(sink.states, 1, "sink sees every snapshot")
	require.Equal(state, sink.states[0])
	require.Same(fault, sink.faults[0])

	require.Equal(370.0, state.PowerWatt)
	require.Equal([]float64{231.2, 229.8, 232.5}, state.Voltages)
	require.Equal("21067432", state.SerialNumber)
}

func TestSdm120ZeroPadsPhases(t *testing.T) {

	require := require.New(t)

	client := newMockRegisterClient()
	reader, err := NewSdm120(client, 8, meterbus.NewFaultState(), &recordingSink{}, zap.NewNop())
	require.NoError(err)

	voltages, err := reader.Voltages()
	require.NoError(err)
	require.Equal([]float64{230.1, 0, 0}, voltages)

	currents, err := reader.Currents()
	require.NoError(err)
	require.Equal([]float64{4.2, 0, 0}, currents)

	factors, err := reader.PowerFactors()
	require.NoError(err)
	require.Equal([]float64{0.97, 0, 0}, factors)

	powers, power, err := reader.Powers()
	require.NoError(err)
	require.Equal([]float64{960.5, 0, 0}, powers)
	require.Equal(960.5, power)
}

func TestSdm120SnapshotReadCount(t *testing.T) {

	require := require.New(t)

	client := newMockRegisterClient()
	sink := &recordingSink{}
	reader, err := NewSdm120(client, 8, meterbus.NewFaultState(), sink, zap.NewNop())
	require.NoError(err)

	state, err := reader.CounterState()
	require.NoError(err)

	require.Equal(5, client.inputReads, "power, imported, exported, currents, frequency")
	require.Len(sink.states, 1)

	require.Equal(960.5, state.PowerWatt)
	require.Equal([]float64{960.5, 0, 0}, state.Powers)
	require.Nil(state.Voltages, "single-phase snapshot carries no voltage triple")
	require.Nil(state.PowerFactors)
}
