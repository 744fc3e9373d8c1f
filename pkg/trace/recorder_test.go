package trace

//go:generate mockgen -destination mock_sink_test.go -package $GOPACKAGE -write_package_comment=false github.com/robotalks/rtt.go/pkg/trace Sink

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/robotalks/rtt.go/pkg/critical"
	"github.com/robotalks/rtt.go/pkg/cyccnt"
	"github.com/robotalks/rtt.go/pkg/rtt"
	"github.com/robotalks/rtt.go/pkg/trace/event"
	"github.com/robotalks/rtt.go/pkg/trace/registry"
)

type sinkConfig struct {
	channel uint8
	name    string
	size    int
	mode    rtt.Mode
}

// testSink records every write as a separate chunk.
type testSink struct {
	configs []sinkConfig
	writes  [][]byte
	lock    sync.Mutex
}

func (s *testSink) ConfigUpBuffer(channel uint8, name string, size int, mode rtt.Mode) {
	s.configs = append(s.configs, sinkConfig{channel, name, size, mode})
}

func (s *testSink) Write(channel uint8, p []byte) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.writes = append(s.writes, append([]byte(nil), p...))
	return len(p)
}

func (s *testSink) strings() []string {
	out := make([]string, len(s.writes))
	for n, w := range s.writes {
		out[n] = string(w)
	}
	return out
}

// records concatenates the writes between the registry end marker and the
// stop marker (or the end) and decodes them.
func (s *testSink) records(t *testing.T) []event.Event {
	var payload bytes.Buffer
	inBinary := false
	for _, w := range s.writes {
		switch string(w) {
		case registry.EndMarker:
			inBinary = true
			continue
		case StopMarker, StartMarker:
			inBinary = false
			continue
		}
		if inBinary {
			payload.Write(w)
		}
	}
	b := payload.Bytes()
	require.Zero(t, len(b)%event.RecordSize, "partial record in stream")
	var events []event.Event
	for ; len(b) > 0; b = b[event.RecordSize:] {
		evt, err := event.Decode(b)
		require.NoError(t, err)
		events = append(events, evt)
	}
	return events
}

// ticks returns a counter advancing by step on each read.
func ticks(step uint32) cyccnt.Counter {
	var now uint32
	return cyccnt.CounterFunc(func() uint32 {
		now += step
		return now
	})
}

func newTestRecorder(sink Sink) *Recorder {
	return NewRecorder(Options{
		Sink:    sink,
		Section: critical.NewMutex(),
		Counter: ticks(10),
	})
}

func TestDisabledIsNoop(t *testing.T) {
	sink := &testSink{}
	r := newTestRecorder(sink)
	for _, typ := range event.Types() {
		r.RecordEvent(typ, 1, 2)
	}
	require.Equal(t, 0, r.Buffered())
	require.Empty(t, sink.writes)
	require.False(t, r.Enabled())
	require.False(t, r.Initialized())

	r.Init(1)
	for _, typ := range event.Types() {
		r.RecordEvent(typ, 1, 2)
	}
	require.Equal(t, 0, r.Buffered())
	require.Equal(t, []string{HeaderMarker}, sink.strings())

	r.Start()
	r.RecordEvent(event.QueueSend, 1, 2)
	r.Stop()
	n := len(sink.writes)
	for _, typ := range event.Types() {
		r.RecordEvent(typ, 1, 2)
	}
	require.Equal(t, 0, r.Buffered())
	require.Len(t, sink.writes, n)
}

func TestDisabledSkipsCriticalSection(t *testing.T) {
	var enters int
	mu := critical.NewMutex()
	section := critical.Func{
		EnterFunc: func() critical.State {
			enters++
			return mu.Enter()
		},
		ExitFunc: mu.Exit,
	}
	r := NewRecorder(Options{Sink: &testSink{}, Section: section, Counter: ticks(1)})
	r.Init(1)
	enters = 0
	for i := 0; i < 100; i++ {
		r.RecordEvent(event.ISREnter, 0, 0)
	}
	require.Zero(t, enters)
	r.Start()
	enters = 0
	r.RecordEvent(event.ISREnter, 0, 0)
	require.Equal(t, 1, enters)
}

func TestInitIdempotent(t *testing.T) {
	sink := &testSink{}
	r := newTestRecorder(sink)
	r.Init(1)
	r.RegisterTask(1, "idle")
	r.Init(2)
	require.Equal(t, []string{HeaderMarker}, sink.strings())
	require.Equal(t, []sinkConfig{{1, ChannelName, DefaultUpBufferSize, rtt.ModeNoBlockSkip}}, sink.configs)
	require.Equal(t, uint8(1), r.Channel())
	require.Len(t, r.Tasks(), 1)
	require.True(t, r.Initialized())
	require.False(t, r.Enabled())
}

func TestStartRequiresInit(t *testing.T) {
	sink := &testSink{}
	r := newTestRecorder(sink)
	r.Start()
	require.False(t, r.Enabled())
	r.RecordEvent(event.TaskCreate, 1, 0)
	r.Stop()
	require.Empty(t, sink.writes)
}

func TestRegisterTaskRequiresInit(t *testing.T) {
	r := newTestRecorder(&testSink{})
	r.RegisterTask(0x1000, "LED")
	require.Empty(t, r.Tasks())
	r.Init(1)
	r.RegisterTask(0x1000, "LED")
	require.Len(t, r.Tasks(), 1)
}

func TestRegistryCapacity(t *testing.T) {
	r := newTestRecorder(&testSink{})
	r.Init(1)
	for i := 0; i < registry.Capacity+5; i++ {
		r.RegisterTask(uint32(i), fmt.Sprintf("task%d", i))
	}
	tasks := r.Tasks()
	require.Len(t, tasks, registry.Capacity)
	for i, task := range tasks {
		require.Equal(t, uint32(i), task.Handle)
		require.Equal(t, fmt.Sprintf("task%d", i), task.Name())
	}
}

func TestStartEmitsRegistryBeforeRecords(t *testing.T) {
	sink := &testSink{}
	r := newTestRecorder(sink)
	r.Init(1)
	r.RegisterTask(0x1000, "LED")
	r.RegisterTask(0x2000, "UART")
	r.RecordEvent(event.TaskCreate, 0x1000, 0)
	r.Start()
	require.Equal(t, []string{
		HeaderMarker,
		StartMarker,
		registry.BeginMarker,
		"TASK:4096:LED\n",
		"TASK:8192:UART\n",
		registry.EndMarker,
	}, sink.strings())

	r.RecordEvent(event.TaskCreate, 0x1000, 0)
	r.Stop()
	sink.writes = nil
	r.Start()
	require.Equal(t, []string{
		StartMarker,
		registry.BeginMarker,
		"TASK:4096:LED\n",
		"TASK:8192:UART\n",
		registry.EndMarker,
	}, sink.strings())
	require.Equal(t, 0, r.Buffered())
}

func TestStopFlushesPartialBuffer(t *testing.T) {
	sink := &testSink{}
	r := newTestRecorder(sink)
	r.Init(1)
	r.Start()
	for i := 0; i < 5; i++ {
		r.RecordEvent(event.QueueSend, 0x3000, uint32(i))
	}
	require.Equal(t, 5*event.RecordSize, r.Buffered())
	n := len(sink.writes)

	r.Stop()
	require.Equal(t, 0, r.Buffered())
	require.False(t, r.Enabled())
	require.Len(t, sink.writes, n+2)
	require.Len(t, sink.writes[n], 5*event.RecordSize)
	require.Equal(t, StopMarker, string(sink.writes[n+1]))

	r.Stop()
	require.Len(t, sink.writes, n+2)
}

func TestStopWithEmptyBuffer(t *testing.T) {
	sink := &testSink{}
	r := newTestRecorder(sink)
	r.Init(1)
	r.Start()
	r.Stop()
	require.Equal(t, StopMarker, string(sink.writes[len(sink.writes)-1]))
	require.Equal(t, registry.EndMarker, string(sink.writes[len(sink.writes)-2]))
}

func TestFlushBeforeOverflow(t *testing.T) {
	sink := &testSink{}
	r := newTestRecorder(sink)
	r.Init(1)
	r.Start()
	full := (DefaultBufferSize / event.RecordSize) * event.RecordSize
	for r.Buffered() < full {
		r.RecordEvent(event.MutexGive, 1, 0)
	}
	require.True(t, r.Buffered() >= r.BufferSize()-event.RecordSize)
	require.True(t, r.Buffered()+event.RecordSize > r.BufferSize())
	n := len(sink.writes)

	r.RecordEvent(event.MutexTake, 1, 0)
	require.Len(t, sink.writes, n+1)
	require.Len(t, sink.writes[n], full)
	require.Equal(t, event.RecordSize, r.Buffered())

	r.Stop()
	records := sink.records(t)
	require.Len(t, records, full/event.RecordSize+1)
	require.Equal(t, event.MutexTake, records[len(records)-1].Type)
}

func TestHighFrequencyFlushAtHalf(t *testing.T) {
	sink := &testSink{}
	r := newTestRecorder(sink)
	r.Init(1)
	r.Start()
	half := DefaultBufferSize / 2
	perFlush := (half + event.RecordSize - 1) / event.RecordSize
	n := len(sink.writes)
	for i := 0; i < perFlush-1; i++ {
		r.RecordEvent(event.TaskSwitchedIn, 1, 0)
	}
	require.Len(t, sink.writes, n)
	require.Equal(t, (perFlush-1)*event.RecordSize, r.Buffered())

	r.RecordEvent(event.ISRExit, 0, 0)
	require.Len(t, sink.writes, n+1)
	require.Len(t, sink.writes[n], perFlush*event.RecordSize)
	require.Equal(t, 0, r.Buffered())
}

func TestHighFrequencyFlushesLowFrequencyBacklog(t *testing.T) {
	sink := &testSink{}
	r := newTestRecorder(sink)
	r.Init(1)
	r.Start()
	for r.Buffered() < DefaultBufferSize/2 {
		r.RecordEvent(event.Malloc, 0x20000000, 64)
	}
	n := len(sink.writes)
	r.RecordEvent(event.TaskSwitchedOut, 1, 0)
	require.Len(t, sink.writes, n+1)
	require.Equal(t, 0, r.Buffered())
}

func TestRecordsPreserveOrder(t *testing.T) {
	sink := &testSink{}
	r := newTestRecorder(sink)
	r.Init(1)
	r.Start()
	types := event.Types()
	var expected []event.Event
	for i := 0; i < 1000; i++ {
		typ := types[(i*7)%len(types)]
		r.RecordEvent(typ, uint32(0x1000+i%5), uint32(i))
		expected = append(expected, event.Event{
			Type:      typ,
			Timestamp: uint32(10 * (i + 1)),
			Handle:    uint32(0x1000 + i%5),
			Data:      uint32(i),
		})
	}
	r.Stop()
	require.Equal(t, expected, sink.records(t))
}

func TestSmallBuffer(t *testing.T) {
	sink := &testSink{}
	r := NewRecorder(Options{Sink: sink, Section: critical.NewMutex(), Counter: ticks(1), BufferSize: 1})
	require.Equal(t, event.RecordSize, r.BufferSize())
	r.Init(2)
	r.Start()
	r.RecordEvent(event.TimerStart, 1, 0)
	r.RecordEvent(event.TimerStop, 1, 0)
	require.Equal(t, event.RecordSize, r.Buffered())
	r.Stop()
	require.Len(t, sink.records(t), 2)
}

func TestSinkCallSequence(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := NewMockSink(ctrl)
	r := NewRecorder(Options{Sink: sink, Section: critical.NewMutex(), Counter: ticks(1)})

	rec := event.Event{Type: event.SemaphoreGive, Timestamp: 1, Handle: 9, Data: 3}.Encode()
	gomock.InOrder(
		sink.EXPECT().ConfigUpBuffer(uint8(3), ChannelName, DefaultUpBufferSize, rtt.ModeNoBlockSkip),
		sink.EXPECT().Write(uint8(3), []byte(HeaderMarker)).Return(0),
		sink.EXPECT().Write(uint8(3), []byte(StartMarker)).Return(0),
		sink.EXPECT().Write(uint8(3), []byte(registry.BeginMarker)).Return(0),
		sink.EXPECT().Write(uint8(3), []byte("TASK:7:idle\n")).Return(0),
		sink.EXPECT().Write(uint8(3), []byte(registry.EndMarker)).Return(0),
		sink.EXPECT().Write(uint8(3), rec[:]).Return(0),
		sink.EXPECT().Write(uint8(3), []byte(StopMarker)).Return(0),
	)

	r.Init(3)
	r.RegisterTask(7, "idle")
	r.Start()
	r.RecordEvent(event.SemaphoreGive, 9, 3)
	r.Stop()
}

func TestLossySinkIsSilent(t *testing.T) {
	cb := rtt.NewControlBlock()
	r := NewRecorder(Options{
		Sink:         cb,
		Section:      critical.NewMutex(),
		Counter:      ticks(1),
		UpBufferSize: 64,
	})
	r.Init(1)
	r.Start()
	for i := 0; i < 100; i++ {
		r.RecordEvent(event.ISREnter, 0, 0)
	}
	r.Stop()
	require.False(t, r.Enabled())
	require.True(t, cb.Dropped(1) > 0)
}

func TestConcurrentRecording(t *testing.T) {
	sink := &testSink{}
	r := newTestRecorder(sink)
	r.Init(1)
	r.Start()

	const (
		producers = 8
		perTask   = 500
	)
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(handle uint32) {
			defer wg.Done()
			for i := 0; i < perTask; i++ {
				typ := event.QueueSend
				if i%3 == 0 {
					typ = event.ISREnter
				}
				r.RecordEvent(typ, handle, uint32(i))
			}
		}(uint32(p + 1))
	}
	wg.Wait()
	r.Stop()

	records := sink.records(t)
	require.Len(t, records, producers*perTask)
	next := make(map[uint32]uint32)
	var last uint32
	for _, rec := range records {
		require.True(t, rec.Type == event.QueueSend || rec.Type == event.ISREnter)
		require.Equal(t, next[rec.Handle], rec.Data)
		next[rec.Handle]++
		require.True(t, rec.Timestamp > last)
		last = rec.Timestamp
	}
}

func TestTransitionsReported(t *testing.T) {
	r := newTestRecorder(&testSink{})
	_, ok := r.start()
	require.False(t, ok)
	require.False(t, r.stop())

	require.True(t, r.init(1))
	require.False(t, r.init(2))
	r.RegisterTask(1, "idle")
	tasks, ok := r.start()
	require.True(t, ok)
	require.Equal(t, 1, tasks)
	require.True(t, r.stop())
	require.False(t, r.stop())
}
