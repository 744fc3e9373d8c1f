// Package cyccnt provides the free-running timestamp counter for trace
// records.
package cyccnt

import (
	"sync"
	"time"

	"github.com/zoobzio/clockz"
)

// DefaultHz is the core clock of the STM32F205 reference target.
const DefaultHz = 120000000

// Counter is a free-running 32-bit counter. It increases monotonically and
// wraps modulo 2^32.
type Counter interface {
	Cycles() uint32
}

// CounterFunc is the func form of Counter.
type CounterFunc func() uint32

// Cycles implements Counter.
func (f CounterFunc) Cycles() uint32 {
	return f()
}

// Lazy builds its counter with New on the first read.
type Lazy struct {
	New func() Counter

	once    sync.Once
	counter Counter
}

// Cycles implements Counter.
func (l *Lazy) Cycles() uint32 {
	l.once.Do(func() {
		l.counter = l.New()
	})
	return l.counter.Cycles()
}

// Clock emulates a cycle counter running at Hz using a clock.
// The counter is zero at the time it is created.
type Clock struct {
	Hz uint64

	clock clockz.Clock
	epoch time.Time
}

// NewClock creates a Clock counter. A nil clock uses the real clock.
func NewClock(clock clockz.Clock, hz uint64) *Clock {
	if clock == nil {
		clock = clockz.RealClock
	}
	return &Clock{Hz: hz, clock: clock, epoch: clock.Now()}
}

// Cycles implements Counter.
func (c *Clock) Cycles() uint32 {
	elapsed := c.clock.Now().Sub(c.epoch)
	if elapsed < 0 {
		return 0
	}
	secs, nanos := uint64(elapsed/time.Second), uint64(elapsed%time.Second)
	return uint32(secs*c.Hz + nanos*c.Hz/uint64(time.Second))
}
