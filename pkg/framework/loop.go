package framework

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
)

// DefaultInterval is the polling interval when Loop.Interval is not set.
const DefaultInterval = 10 * time.Millisecond

// Loop polls registered Pollers periodically.
type Loop struct {
	Interval time.Duration

	pollers []Poller
	lock    sync.Mutex

	wakeUpCh chan struct{}
	initOnce sync.Once
}

// NewLoop creates a Loop.
func NewLoop() *Loop {
	return &Loop{Interval: DefaultInterval}
}

func (l *Loop) init() {
	l.initOnce.Do(func() {
		l.wakeUpCh = make(chan struct{}, 1)
	})
}

// Add registers Pollers. Pollers are invoked in the order added.
func (l *Loop) Add(pollers ...Poller) *Loop {
	l.lock.Lock()
	l.pollers = append(l.pollers, pollers...)
	l.lock.Unlock()
	return l
}

// TriggerNext schedules an iteration immediately.
func (l *Loop) TriggerNext() {
	l.init()
	select {
	case l.wakeUpCh <- struct{}{}:
	default:
	}
}

// Run implements Runnable. One final iteration runs after ctx is done so
// pollers get a chance to drain.
func (l *Loop) Run(ctx context.Context) error {
	l.init()
	interval := l.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			l.iterate(context.Background())
			return ctx.Err()
		case <-ticker.C:
			l.iterate(ctx)
		case <-l.wakeUpCh:
			l.iterate(ctx)
		}
	}
}

// RunOnce runs a single iteration, mainly for tests.
func (l *Loop) RunOnce(ctx context.Context) {
	l.iterate(ctx)
}

func (l *Loop) iterate(ctx context.Context) {
	l.lock.Lock()
	pollers := l.pollers
	l.lock.Unlock()
	now := time.Now()
	for _, p := range pollers {
		if err := p.Poll(ctx, now); err != nil {
			glog.Errorf("poller error: %v", err)
		}
	}
}
