package events

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/cgarov/meterflux/pkg/eastron_modbus"
	"github.com/cgarov/meterflux/pkg/sma_modbus"

	"github.com/carlmjohnson/versioninfo"
)

func NewBridgeInfo(baseTopic string) BridgeInfo {
	return BridgeInfo{
		Id:           fmt.Sprintf("meterflux_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "meterflux",
		Model:        "Meterflux",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("Meterflux %s", md5HashShort(baseTopic)),
	}
}

// CounterSensorEvents maps one meter snapshot to sensor updates. Sensor ids
// are prefixed with the component id so several meters can share a topic
// tree.
func CounterSensorEvents(componentId string, state eastron_modbus.CounterState) []SensorUpdateEvent {
	evs := []SensorUpdateEvent{
		sensorEvent(componentId, "power", state.PowerWatt, 0),
		sensorEvent(componentId, "energy_imported", state.ImportedWh, 0),
		sensorEvent(componentId, "energy_exported", state.ExportedWh, 0),
		sensorEvent(componentId, "frequency", state.Frequency, 2),
	}
	for i, v := range state.Voltages {
		evs = append(evs, sensorEvent(componentId, fmt.Sprintf("voltage_l%d", i+1), v, 1))
	}
	for i, a := range state.Currents {
		evs = append(evs, sensorEvent(componentId, fmt.Sprintf("current_l%d", i+1), a, 2))
	}
	for i, p := range state.Powers {
		evs = append(evs, sensorEvent(componentId, fmt.Sprintf("power_l%d", i+1), p, 0))
	}
	for i, pf := range state.PowerFactors {
		evs = append(evs, sensorEvent(componentId, fmt.Sprintf("power_factor_l%d", i+1), pf, 2))
	}
	return evs
}

// BatterySensorEvents maps one battery snapshot to sensor updates.
func BatterySensorEvents(componentId string, state sma_modbus.BatteryState) []SensorUpdateEvent {
	return []SensorUpdateEvent{
		sensorEvent(componentId, "power", state.PowerWatt, 0),
		sensorEvent(componentId, "soc", state.Soc, 0),
		sensorEvent(componentId, "energy_imported", state.ImportedWh, 0),
		sensorEvent(componentId, "energy_exported", state.ExportedWh, 0),
	}
}

func sensorEvent(componentId, field string, value float64, decimals uint) SensorUpdateEvent {
	return SensorUpdateEvent{
		GenericSensorUpdateEvent: GenericSensorUpdateEvent{
			Id: fmt.Sprintf("%s_%s", componentId, field),
		},
		Value:    value,
		Decimals: decimals,
	}
}

func md5HashShort(content string) string {
	hash := md5.Sum([]byte(content))
	return hex.EncodeToString(hash[:])[:8]
}
