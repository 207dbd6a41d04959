package sma_modbus

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockRegisterClient struct {
	power int32
	soc   uint32
	err   error
}

func (c *mockRegisterClient) Open() error { return nil }

func (c *mockRegisterClient) Close() error { return nil }

func (c *mockRegisterClient) ReadHoldingUint32(addr uint16, unitID uint8) (uint32, error) {
	if c.err != nil {
		return 0, c.err
	}
	return c.soc, nil
}

func (c *mockRegisterClient) ReadHoldingInt32(addr uint16, unitID uint8) (int32, error) {
	if c.err != nil {
		return 0, c.err
	}
	return c.power, nil
}

func (c *mockRegisterClient) ReadInputFloat32(addr uint16, unitID uint8) (float64, error) {
	return 0, errors.New("not an input register device")
}

func (c *mockRegisterClient) ReadInputFloat32Block(addr uint16, count uint16, unitID uint8) ([]float64, error) {
	return nil, errors.New("not an input register device")
}

func TestBatteryState(t *testing.T) {

	require := require.New(t)

	client := &mockRegisterClient{power: -1520, soc: 87}
	reader := NewSunnyIslandReader(client, DefaultUnitID, zap.NewNop())

	state, err := reader.BatteryState()
	require.NoError(err)
	require.Equal(-1520.0, state.PowerWatt)
	require.Equal(87.0, state.Soc)
}

func TestBatteryPowerNaNSentinel(t *testing.T) {

	require := require.New(t)

	client := &mockRegisterClient{power: math.MinInt32, soc: 42}
	reader := NewSunnyIslandReader(client, DefaultUnitID, zap.NewNop())

	state, err := reader.BatteryState()
	require.NoError(err)
	require.Zero(state.PowerWatt, "int32 NaN reads as 0 W")
}

func TestBatteryStateReadError(t *testing.T) {

	require := require.New(t)

	client := &mockRegisterClient{err: errors.New("connection reset")}
	reader := NewSunnyIslandReader(client, DefaultUnitID, zap.NewNop())

	_, err := reader.BatteryState()
	require.Error(err, "transport errors propagate to the caller")
}
