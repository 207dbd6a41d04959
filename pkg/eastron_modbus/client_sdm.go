package eastron_modbus

import (
	"strconv"

	"github.com/cgarov/meterflux/pkg/meterbus"

	"go.uber.org/zap"
)

// Eastron SDM register map, shared across the series.
const (
	regSerialNumber    uint16 = 0xFC00
	regImportedEnergy  uint16 = 0x0048
	regExportedEnergy  uint16 = 0x004A
	regFrequency       uint16 = 0x0046
	regVoltageBase     uint16 = 0x0000
	regCurrentBase     uint16 = 0x0006
	regPowerBase       uint16 = 0x000C
	regPowerFactorBase uint16 = 0x001E
)

// sdmReader is the shared part of the SDM driver family: device identity,
// the transport handle and the accessors whose registers are identical on
// every model. Each accessor issues exactly one paced register read; read
// errors propagate raw to the caller's failure boundary.
type sdmReader struct {
	client       meterbus.RegisterClient
	unitID       uint8
	serialNumber string
	fault        *meterbus.FaultState
	sink         CounterSink
	logger       *zap.Logger
}

func newSdmReader(client meterbus.RegisterClient, unitID uint8, fault *meterbus.FaultState, sink CounterSink, logger *zap.Logger) (sdmReader, error) {
	reader := sdmReader{
		client: client,
		unitID: unitID,
		fault:  fault,
		sink:   sink,
		logger: logger.With(zap.Uint8("unit", unitID)),
	}
	if err := reader.readSerialNumber(); err != nil {
		return sdmReader{}, err
	}
	return reader, nil
}

// readSerialNumber runs one scoped session of its own: identity is fetched
// once at construction time, before the device joins any update cycle.
func (r *sdmReader) readSerialNumber() error {
	if err := r.client.Open(); err != nil {
		return err
	}
	defer r.client.Close()

	raw, err := r.client.ReadHoldingUint32(regSerialNumber, r.unitID)
	if err != nil {
		return err
	}
	r.serialNumber = strconv.FormatUint(uint64(raw), 10)
	return nil
}

func (r *sdmReader) SerialNumber() string {
	return r.serialNumber
}

// Imported returns the total imported energy in Wh (the register holds kWh).
func (r *sdmReader) Imported() (float64, error) {
	value, err := r.client.ReadInputFloat32(regImportedEnergy, r.unitID)
	if err != nil {
		return 0, err
	}
	return value * 1000, nil
}

// Exported returns the total exported energy in Wh (the register holds kWh).
func (r *sdmReader) Exported() (float64, error) {
	value, err := r.client.ReadInputFloat32(regExportedEnergy, r.unitID)
	if err != nil {
		return 0, err
	}
	return value * 1000, nil
}

// Frequency returns the grid frequency in Hz. Some units report the value
// scaled by ten; readings above 100 are divided back. See the SDM series
// register notes.
func (r *sdmReader) Frequency() (float64, error) {
	frequency, err := r.client.ReadInputFloat32(regFrequency, r.unitID)
	if err != nil {
		return 0, err
	}
	if frequency > 100 {
		frequency = frequency / 10
	}
	return frequency, nil
}
