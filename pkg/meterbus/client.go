package meterbus

import (
	"fmt"
	"time"

	"github.com/simonvetter/modbus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RegisterClient is the transport contract consumed by the device drivers.
// Open/Close bracket one polling session and are safe to call repeatedly
// across update cycles. Every read targets one unit id on the shared line.
type RegisterClient interface {
	Open() error
	Close() error
	ReadHoldingUint32(addr uint16, unitID uint8) (uint32, error)
	ReadHoldingInt32(addr uint16, unitID uint8) (int32, error)
	ReadInputFloat32(addr uint16, unitID uint8) (float64, error)
	ReadInputFloat32Block(addr uint16, count uint16, unitID uint8) ([]float64, error)
}

type Instrument struct {
	RecordTime func(fnName string, readTime time.Duration)
}

type ModbusClient struct {
	client     *modbus.ModbusClient
	pacer      *QueryPacer
	instrument []Instrument
}

func NewModbusClient(host string, port uint, timeout time.Duration, logger *zap.Logger, instrumentation *Instrument) (*ModbusClient, error) {
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     fmt.Sprintf("tcp://%s:%d", host, port),
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}
	if err := client.SetEncoding(modbus.BIG_ENDIAN, modbus.HIGH_WORD_FIRST); err != nil {
		return nil, err
	}
	// instrumentation
	var inst []Instrument
	logInst := traceLoggerInstrument(logger.With(zap.String("target", "fieldbus")).With(zap.String("host", host)))
	if logInst != nil {
		inst = append(inst, *logInst)
	}
	if instrumentation != nil {
		inst = append(inst, *instrumentation)
	}
	return &ModbusClient{
		client:     client,
		pacer:      NewQueryPacer(MinQueryInterval),
		instrument: inst,
	}, nil
}

func (c *ModbusClient) Open() error {
	return c.client.Open()
}

func (c *ModbusClient) Close() error {
	return c.client.Close()
}

func (c *ModbusClient) ReadHoldingUint32(addr uint16, unitID uint8) (uint32, error) {
	defer RecordTimer("ReadHoldingUint32", c.instrument)()
	if err := c.prepare(unitID); err != nil {
		return 0, err
	}
	return c.client.ReadUint32(addr, modbus.HOLDING_REGISTER)
}

func (c *ModbusClient) ReadHoldingInt32(addr uint16, unitID uint8) (int32, error) {
	defer RecordTimer("ReadHoldingInt32", c.instrument)()
	if err := c.prepare(unitID); err != nil {
		return 0, err
	}
	value, err := c.client.ReadUint32(addr, modbus.HOLDING_REGISTER)
	if err != nil {
		return 0, err
	}
	return int32(value), nil
}

func (c *ModbusClient) ReadInputFloat32(addr uint16, unitID uint8) (float64, error) {
	defer RecordTimer("ReadInputFloat32", c.instrument)()
	if err := c.prepare(unitID); err != nil {
		return 0, err
	}
	value, err := c.client.ReadFloat32(addr, modbus.INPUT_REGISTER)
	if err != nil {
		return 0, err
	}
	return float64(value), nil
}

func (c *ModbusClient) ReadInputFloat32Block(addr uint16, count uint16, unitID uint8) ([]float64, error) {
	defer RecordTimer("ReadInputFloat32Block", c.instrument)()
	if err := c.prepare(unitID); err != nil {
		return nil, err
	}
	values, err := c.client.ReadFloat32s(addr, count, modbus.INPUT_REGISTER)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out, nil
}

// prepare enforces the inter-query spacing and targets the unit for the
// next request. All drivers sharing this connection go through here, so the
// pacing holds across logical components.
func (c *ModbusClient) prepare(unitID uint8) error {
	c.pacer.Wait()
	return c.client.SetUnitId(unitID)
}

func RecordTimer(name string, instrument []Instrument) func() {
	if instrument == nil {
		return func() {}
	}

	start := time.Now()
	return func() {
		duration := time.Since(start)
		for i := range instrument {
			instrument[i].RecordTime(name, duration)
		}
	}
}

func traceLoggerInstrument(logger *zap.Logger) *Instrument {
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		return nil
	}
	return &Instrument{
		RecordTime: func(fnName string, readTime time.Duration) {
			logger.Debug("register read", zap.String("fn", fnName), zap.Duration("took", readTime))
		},
	}
}
