package meterbus

import (
	"time"
)

// EnergyCounter derives imported/exported energy totals from a sequence of
// power samples for devices that expose no energy registers of their own.
// Positive power accumulates on the imported side, negative on the exported
// side, weighted by the wall time between samples.
type EnergyCounter struct {
	importedWh float64
	exportedWh float64
	lastSample time.Time

	now func() time.Time
}

func NewEnergyCounter() *EnergyCounter {
	return &EnergyCounter{now: time.Now}
}

// Add integrates one power sample and returns the running totals in Wh.
// The first sample only arms the counter.
func (c *EnergyCounter) Add(powerWatt float64) (importedWh float64, exportedWh float64) {
	current := c.now()
	if !c.lastSample.IsZero() {
		hours := current.Sub(c.lastSample).Hours()
		if powerWatt >= 0 {
			c.importedWh += powerWatt * hours
		} else {
			c.exportedWh += -powerWatt * hours
		}
	}
	c.lastSample = current
	return c.importedWh, c.exportedWh
}
