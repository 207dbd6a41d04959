package poller

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cgarov/meterflux/internal/device"
	"github.com/cgarov/meterflux/internal/events"
	"github.com/cgarov/meterflux/pkg/eastron_modbus"
	"github.com/cgarov/meterflux/pkg/meterbus"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDevice struct {
	components []device.Component
	updateErr  error
	updates    int
}

func (d *fakeDevice) UpdateAll() error {
	d.updates++
	if d.updateErr != nil {
		return d.updateErr
	}
	for _, c := range d.components {
		_ = c.Update()
	}
	return nil
}

func (d *fakeDevice) Components() []device.Component {
	return d.components
}

type recordingPublisher struct {
	published []events.SensorUpdateEvent
}

func (p *recordingPublisher) PublishSensorEvent(ev events.SensorUpdateEvent, continuation func(error), timeout time.Duration) {
	p.published = append(p.published, ev)
	continuation(nil)
}

type slowDevice struct {
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	updates     atomic.Int32
	release     chan struct{}
}

func (d *slowDevice) UpdateAll() error {
	n := d.inFlight.Add(1)
	defer d.inFlight.Add(-1)
	for {
		seen := d.maxInFlight.Load()
		if n <= seen || d.maxInFlight.CompareAndSwap(seen, n) {
			break
		}
	}
	<-d.release
	d.updates.Add(1)
	return nil
}

func (d *slowDevice) Components() []device.Component {
	return nil
}

func TestRunCycleNeverOverlaps(t *testing.T) {

	require := require.New(t)

	dev := &slowDevice{release: make(chan struct{})}
	p := NewPoller(dev, nil, time.Second, zap.NewNop())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.RunCycle()
	}()

	// wait for the first cycle to reach the device
	for dev.inFlight.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	// firings while a cycle is in flight must be dropped, not queued
	for i := 0; i < 4; i++ {
		p.RunCycle()
	}

	close(dev.release)
	wg.Wait()

	require.Equal(int32(1), dev.maxInFlight.Load())
	require.Equal(int32(1), dev.updates.Load())
}

func TestRunCyclePublishesComponentStates(t *testing.T) {

	require := require.New(t)

	reader, err := eastron_modbus.CreateTestCounterReader()
	require.NoError(err)
	meter := device.NewMeterComponent("grid_meter", reader, meterbus.NewFaultState())

	dev := &fakeDevice{components: []device.Component{meter}}
	pub := &recordingPublisher{}
	p := NewPoller(dev, pub, time.Second, zap.NewNop())

	p.RunCycle()

	require.Equal(1, dev.updates)
	require.NotEmpty(pub.published)

	ids := map[string]bool{}
	for _, ev := range pub.published {
		ids[ev.Id] = true
	}
	require.True(ids["grid_meter_power"])
	require.True(ids["grid_meter_frequency"])
}

func TestRunCycleSkipsPublishOnUpdateFailure(t *testing.T) {

	require := require.New(t)

	dev := &fakeDevice{updateErr: errors.New("connection refused")}
	pub := &recordingPublisher{}
	p := NewPoller(dev, pub, time.Second, zap.NewNop())

	p.RunCycle()
	require.Empty(pub.published)
}

func TestRunCycleWithoutPublisher(t *testing.T) {

	reader, err := eastron_modbus.CreateTestCounterReader()
	require.NoError(t, err)
	meter := device.NewMeterComponent("grid_meter", reader, meterbus.NewFaultState())

	dev := &fakeDevice{components: []device.Component{meter}}
	p := NewPoller(dev, nil, time.Second, zap.NewNop())

	// must not panic without a broker
	p.RunCycle()
	require.Equal(t, 1, dev.updates)
}
