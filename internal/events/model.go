package events

// BridgeInfo identifies one bridge instance to consumers of the status
// endpoint. The id is derived from the MQTT base topic so two bridges on
// the same broker stay distinguishable.
type BridgeInfo struct {
	Id           string `json:"id"`
	Name         string `json:"name"`
	Model        string `json:"model"`
	Manufacturer string `json:"manufacturer"`
	Version      string `json:"version"`
}

// EventStream model
type GenericSensorUpdateEvent struct {
	Id string
}

type SensorUpdateEvent struct {
	GenericSensorUpdateEvent
	Value    float64
	Decimals uint
}
