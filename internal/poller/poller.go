package poller

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cgarov/meterflux/internal/device"
	"github.com/cgarov/meterflux/internal/events"

	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// DeviceUpdater is the produced contract of the device layer: one update
// entry point per polling cycle plus access to the registered components.
type DeviceUpdater interface {
	UpdateAll() error
	Components() []device.Component
}

// EventPublisher pushes sensor updates to the outside. Nil-able: without a
// broker the poller still refreshes fault states and snapshots.
type EventPublisher interface {
	PublishSensorEvent(ev events.SensorUpdateEvent, continuation func(error), timeout time.Duration)
}

type Poller struct {
	device    DeviceUpdater
	publisher EventPublisher
	interval  time.Duration
	scheduler quartz.Scheduler
	busy      atomic.Bool
	logger    *zap.Logger
}

func NewPoller(dev DeviceUpdater, publisher EventPublisher, interval time.Duration, logger *zap.Logger) *Poller {
	return &Poller{
		device:    dev,
		publisher: publisher,
		interval:  interval,
		logger:    logger.With(zap.String("target", "poller")),
	}
}

// Start schedules the poll job at the configured interval. The scheduler
// runs with BlockingExecution, so job firings execute one after another on
// the scheduler goroutine, and RunCycle additionally drops a firing when
// the previous cycle is still in flight. The transport is not reentrant,
// so a slow bus must never produce overlapping update passes.
func (p *Poller) Start(ctx context.Context) error {
	p.scheduler = quartz.NewStdSchedulerWithOptions(quartz.StdSchedulerOptions{
		BlockingExecution: true,
	}, nil, nil)
	p.scheduler.Start(ctx)

	jobDetail := quartz.NewJobDetail(&pollJob{poller: p}, quartz.NewJobKey("device_poll"))
	return p.scheduler.ScheduleJob(jobDetail, quartz.NewSimpleTrigger(p.interval))
}

func (p *Poller) Stop() {
	if p.scheduler != nil {
		p.scheduler.Stop()
	}
}

type pollJob struct {
	poller *Poller
}

func (j *pollJob) Execute(ctx context.Context) error {
	j.poller.RunCycle()
	return nil
}

func (j *pollJob) Description() string {
	return "device_poll"
}

// RunCycle performs one full update pass and publishes the refreshed
// component states. Cycles never overlap: a call that arrives while a
// previous pass is still running is dropped.
func (p *Poller) RunCycle() {
	if !p.busy.CompareAndSwap(false, true) {
		p.logger.Warn("previous update cycle still running, skipping")
		return
	}
	defer p.busy.Store(false)

	start := time.Now()
	if err := p.device.UpdateAll(); err != nil {
		p.logger.Warn("update cycle failed", zap.Error(err))
		return
	}
	p.logger.Debug("update cycle done", zap.Duration("took", time.Since(start)))

	if p.publisher == nil {
		return
	}
	for _, component := range p.device.Components() {
		for _, ev := range componentEvents(component) {
			p.publishEvent(ev)
		}
	}
}

func componentEvents(component device.Component) []events.SensorUpdateEvent {
	switch c := component.(type) {
	case *device.MeterComponent:
		if state, ok := c.CurrentState(); ok {
			return events.CounterSensorEvents(c.Id(), state)
		}
	case *device.BatteryComponent:
		if state, ok := c.CurrentState(); ok {
			return events.BatterySensorEvents(c.Id(), state)
		}
	}
	return nil
}

func (p *Poller) publishEvent(ev events.SensorUpdateEvent) {
	p.publisher.PublishSensorEvent(ev, func(err error) {
		if err != nil {
			p.logger.Warn("sensor publish failed", zap.String("sensor", ev.Id), zap.Error(err))
		}
	}, publishTimeout)
}
