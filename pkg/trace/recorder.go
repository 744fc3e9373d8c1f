package trace

import (
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/robotalks/rtt.go/pkg/critical"
	"github.com/robotalks/rtt.go/pkg/cyccnt"
	"github.com/robotalks/rtt.go/pkg/rtt"
	"github.com/robotalks/rtt.go/pkg/trace/event"
	"github.com/robotalks/rtt.go/pkg/trace/registry"
)

// Stream markers.
const (
	HeaderMarker = "RTT_TRACE_V1\n"
	StartMarker  = "TRACE_START\n"
	StopMarker   = "TRACE_STOP\n"
)

// Defaults of the reference firmware.
const (
	DefaultChannel      uint8 = 1
	DefaultBufferSize         = 512
	DefaultUpBufferSize       = 2048
	ChannelName               = "FreeRTOS Trace"
)

// Sink is the transport the recorder writes to. Writes must not block and
// must not retain p; the returned byte count is ignored.
type Sink interface {
	ConfigUpBuffer(channel uint8, name string, size int, mode rtt.Mode)
	Write(channel uint8, p []byte) int
}

// Options configures a Recorder.
type Options struct {
	Sink    Sink
	Section critical.Section
	Counter cyccnt.Counter

	// BufferSize is the staging buffer size, at least event.RecordSize.
	BufferSize int
	// UpBufferSize is the size of the sink up-buffer configured by Init.
	UpBufferSize int
}

// Recorder stages encoded events and flushes them to the sink.
//
// All methods are safe to call from task and interrupt context. State is
// only mutated inside the critical section; RecordEvent rejects events
// without entering it while tracing is disabled.
type Recorder struct {
	sink    Sink
	section critical.Section
	counter cyccnt.Counter
	upSize  int

	enabledFast atomic.Bool

	initialized bool
	enabled     bool
	channel     uint8
	buf         []byte
	pos         int
	tasks       registry.Registry
}

// NewRecorder creates a Recorder. Missing options use the process-wide
// collaborators and the reference firmware sizes.
func NewRecorder(opts Options) *Recorder {
	r := &Recorder{
		sink:    opts.Sink,
		section: opts.Section,
		counter: opts.Counter,
		upSize:  opts.UpBufferSize,
	}
	if r.sink == nil {
		r.sink = rtt.Default()
	}
	if r.section == nil {
		r.section = critical.Default()
	}
	if r.counter == nil {
		r.counter = cyccnt.Default()
	}
	if r.upSize <= 0 {
		r.upSize = DefaultUpBufferSize
	}
	size := opts.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	if size < event.RecordSize {
		size = event.RecordSize
	}
	r.buf = make([]byte, size)
	return r
}

// Init configures the sink channel and writes the stream header. It only
// has an effect the first time it is called.
func (r *Recorder) Init(channel uint8) {
	if r.init(channel) {
		glog.V(2).Infof("trace: initialized on channel %d", channel)
	}
}

func (r *Recorder) init(channel uint8) bool {
	st := r.section.Enter()
	defer r.section.Exit(st)
	if r.initialized {
		return false
	}
	r.channel = channel
	r.enabled = false
	r.enabledFast.Store(false)
	r.tasks.Reset()
	r.pos = 0
	r.initialized = true

	r.sink.ConfigUpBuffer(channel, ChannelName, r.upSize, rtt.ModeNoBlockSkip)
	r.write([]byte(HeaderMarker))
	return true
}

// Start enables recording and replays the task registry.
func (r *Recorder) Start() {
	if tasks, ok := r.start(); ok {
		glog.V(2).Infof("trace: started, %d tasks registered", tasks)
	}
}

func (r *Recorder) start() (int, bool) {
	st := r.section.Enter()
	defer r.section.Exit(st)
	if !r.initialized {
		return 0, false
	}
	r.enabled = true
	r.enabledFast.Store(true)
	r.write([]byte(StartMarker))
	r.tasks.EmitAll(channelWriter{r})
	return r.tasks.Len(), true
}

// Stop flushes staged events, writes the stop marker and disables
// recording.
func (r *Recorder) Stop() {
	if r.stop() {
		glog.V(2).Info("trace: stopped")
	}
}

func (r *Recorder) stop() bool {
	st := r.section.Enter()
	defer r.section.Exit(st)
	if !r.initialized || !r.enabled {
		return false
	}
	r.flush()
	r.write([]byte(StopMarker))
	r.enabled = false
	r.enabledFast.Store(false)
	return true
}

// RecordEvent stages an event. It does nothing unless tracing is enabled.
func (r *Recorder) RecordEvent(typ event.Type, handle, data uint32) {
	if !r.enabledFast.Load() {
		return
	}
	st := r.section.Enter()
	if r.enabled {
		r.append(typ, handle, data)
	}
	r.section.Exit(st)
}

func (r *Recorder) append(typ event.Type, handle, data uint32) {
	if r.pos+event.RecordSize > len(r.buf) {
		r.flush()
	}
	event.Put(r.buf[r.pos:], typ, r.counter.Cycles(), handle, data)
	r.pos += event.RecordSize
	if typ.HighFrequency() && r.pos >= len(r.buf)/2 {
		r.flush()
	}
}

// RegisterTask adds a task name to the registry. It is dropped if the
// recorder is not initialized or the registry is full.
func (r *Recorder) RegisterTask(handle uint32, name string) {
	st := r.section.Enter()
	defer r.section.Exit(st)
	if r.initialized {
		r.tasks.Register(handle, name)
	}
}

// Enabled indicates events are being recorded.
func (r *Recorder) Enabled() bool {
	return r.enabledFast.Load()
}

// Initialized indicates Init has been called.
func (r *Recorder) Initialized() bool {
	st := r.section.Enter()
	defer r.section.Exit(st)
	return r.initialized
}

// Channel returns the sink channel, valid once initialized.
func (r *Recorder) Channel() uint8 {
	st := r.section.Enter()
	defer r.section.Exit(st)
	return r.channel
}

// Buffered returns the number of staged bytes not yet flushed.
func (r *Recorder) Buffered() int {
	st := r.section.Enter()
	defer r.section.Exit(st)
	return r.pos
}

// BufferSize returns the capacity of the staging buffer.
func (r *Recorder) BufferSize() int {
	return len(r.buf)
}

// Tasks returns the registered tasks in registration order.
func (r *Recorder) Tasks() []registry.Entry {
	st := r.section.Enter()
	defer r.section.Exit(st)
	return r.tasks.Entries()
}

func (r *Recorder) flush() {
	if r.pos > 0 {
		r.write(r.buf[:r.pos])
		r.pos = 0
	}
}

func (r *Recorder) write(p []byte) {
	r.sink.Write(r.channel, p)
}

type channelWriter struct {
	r *Recorder
}

func (w channelWriter) Write(p []byte) int {
	return w.r.sink.Write(w.r.channel, p)
}
