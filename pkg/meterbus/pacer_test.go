package meterbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when the pacer sleeps or when a test simulates
// work between reads.
type fakeClock struct {
	current time.Time
	slept   []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Unix(1000, 0)}
}

func (c *fakeClock) now() time.Time {
	return c.current
}

func (c *fakeClock) sleep(d time.Duration) {
	c.slept = append(c.slept, d)
	c.current = c.current.Add(d)
}

func pacerWithClock(clock *fakeClock) *QueryPacer {
	p := NewQueryPacer(MinQueryInterval)
	p.now = clock.now
	p.sleep = clock.sleep
	return p
}

func TestPacerFirstCallDoesNotWait(t *testing.T) {

	clock := newFakeClock()
	p := pacerWithClock(clock)

	p.Wait()

	assert.Empty(t, clock.slept, "first query must not be delayed")
}

func TestPacerEnforcesSpacing(t *testing.T) {

	require := require.New(t)

	clock := newFakeClock()
	p := pacerWithClock(clock)

	// burst of back-to-back queries with varying amounts of work in between
	workGaps := []time.Duration{0, 10 * time.Millisecond, 99 * time.Millisecond, 1 * time.Millisecond, 0}

	var queryTimes []time.Time
	p.Wait()
	queryTimes = append(queryTimes, clock.current)
	for _, gap := range workGaps {
		clock.current = clock.current.Add(gap)
		p.Wait()
		queryTimes = append(queryTimes, clock.current)
	}

	for i := 1; i < len(queryTimes); i++ {
		gap := queryTimes[i].Sub(queryTimes[i-1])
		require.GreaterOrEqual(gap, MinQueryInterval, "gap between queries %d and %d", i-1, i)
	}
}

func TestPacerSkipsWaitAfterSlowWork(t *testing.T) {

	clock := newFakeClock()
	p := pacerWithClock(clock)

	p.Wait()
	clock.current = clock.current.Add(250 * time.Millisecond)
	p.Wait()

	assert.Empty(t, clock.slept, "no wait needed when the bus itself was slower")
}

func TestPacerRearmsAfterEveryWait(t *testing.T) {

	require := require.New(t)

	clock := newFakeClock()
	p := pacerWithClock(clock)

	p.Wait()
	first := p.last
	p.Wait()
	second := p.last

	require.True(second.After(first), "pacer must re-arm on every call")
	require.Equal(MinQueryInterval, second.Sub(first))
}
