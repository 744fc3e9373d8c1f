package trace

import (
	"sync"

	"github.com/robotalks/rtt.go/pkg/trace/event"
	"github.com/robotalks/rtt.go/pkg/trace/registry"
)

// Controller is the object-style API over a Recorder.
type Controller struct {
	r *Recorder
}

// NewController wraps a Recorder. A nil Recorder uses Default.
func NewController(r *Recorder) *Controller {
	if r == nil {
		r = Default()
	}
	return &Controller{r: r}
}

// Recorder returns the wrapped Recorder.
func (c *Controller) Recorder() *Recorder {
	return c.r
}

// Initialize initializes tracing on the channel.
func (c *Controller) Initialize(channel uint8) {
	c.r.Init(channel)
}

// Start starts tracing.
func (c *Controller) Start() {
	c.r.Start()
}

// Stop stops tracing.
func (c *Controller) Stop() {
	c.r.Stop()
}

// IsEnabled indicates tracing is active.
func (c *Controller) IsEnabled() bool {
	return c.r.Enabled()
}

// RecordEvent records an event.
func (c *Controller) RecordEvent(typ event.Type, handle, data uint32) {
	c.r.RecordEvent(typ, handle, data)
}

// RegisterTask registers a task name. Empty names are ignored.
func (c *Controller) RegisterTask(handle uint32, name string) {
	if name != "" {
		c.r.RegisterTask(handle, name)
	}
}

var (
	defaultRecorder *Recorder
	defaultOnce     sync.Once
)

// Default returns the process-wide Recorder writing to rtt.Default().
func Default() *Recorder {
	defaultOnce.Do(func() {
		defaultRecorder = NewRecorder(Options{})
	})
	return defaultRecorder
}

// Init initializes the default Recorder.
func Init(channel uint8) {
	Default().Init(channel)
}

// Start starts the default Recorder.
func Start() {
	Default().Start()
}

// Stop stops the default Recorder.
func Stop() {
	Default().Stop()
}

// IsEnabled indicates the default Recorder is recording.
func IsEnabled() bool {
	return Default().Enabled()
}

// RecordEvent records an event with the default Recorder.
func RecordEvent(typ event.Type, handle, data uint32) {
	Default().RecordEvent(typ, handle, data)
}

// RegisterTask registers a task with the default Recorder.
func RegisterTask(handle uint32, name string) {
	Default().RegisterTask(handle, name)
}

// Tasks lists the tasks registered with the default Recorder.
func Tasks() []registry.Entry {
	return Default().Tasks()
}
