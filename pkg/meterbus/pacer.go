package meterbus

import (
	"time"
)

// Eastron papers recommend at least 100 ms between subsequent reads on the
// same line. Callers of the poll loop are often much faster than that, so
// every read goes through a pacer that forcibly waits for the remaining time.
const MinQueryInterval = 100 * time.Millisecond

// QueryPacer serializes register queries on one physical transport
// connection. The spacing constraint is hardware-level, so the pacer is
// owned by the connection, not by the logical driver that happens to issue
// the read.
type QueryPacer struct {
	interval time.Duration
	last     time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

func NewQueryPacer(interval time.Duration) *QueryPacer {
	return &QueryPacer{
		interval: interval,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// Wait blocks until at least the minimum interval has passed since the
// previous call, then re-arms. The very first call never waits.
// time.Time subtraction uses the monotonic clock, so wall-clock adjustments
// cannot shorten or stretch the spacing.
func (p *QueryPacer) Wait() {
	if !p.last.IsZero() {
		if elapsed := p.now().Sub(p.last); elapsed < p.interval {
			p.sleep(p.interval - elapsed)
		}
	}
	p.last = p.now()
}
