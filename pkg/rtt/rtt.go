// Package rtt emulates SEGGER Real-Time Transfer up-buffers.
//
// An up-buffer is a fixed size ring written by the target and drained by
// the debug probe. The target never waits for the probe in the non-blocking
// modes: a write that does not fit is either dropped whole or truncated.
// Each ring has a single producer and a single consumer; offsets are
// published with atomics so the producer and the consumer never share a
// lock.
package rtt

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/golang/glog"
)

// MaxUpBuffers is the number of up-buffer channels in a control block.
const MaxUpBuffers = 3

// Terminal channel defaults.
const (
	TerminalChannel    uint8 = 0
	TerminalName             = "Terminal"
	TerminalBufferSize       = 1024
)

// Mode defines how writes behave when the up-buffer is full.
type Mode int

const (
	// ModeNoBlockSkip drops the whole write if it does not fit.
	ModeNoBlockSkip Mode = iota
	// ModeNoBlockTrim writes as many bytes as fit and drops the rest.
	ModeNoBlockTrim
	// ModeBlockIfFull waits for the consumer to free space. It must not be
	// used from interrupt context.
	ModeBlockIfFull
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case ModeNoBlockSkip:
		return "NO_BLOCK_SKIP"
	case ModeNoBlockTrim:
		return "NO_BLOCK_TRIM"
	case ModeBlockIfFull:
		return "BLOCK_IF_FULL"
	}
	return "UNKNOWN"
}

type upBuffer struct {
	name  string
	mode  Mode
	buf   []byte
	wrOff atomic.Uint32
	rdOff atomic.Uint32

	wlock sync.Mutex
	rlock sync.Mutex
}

// free returns the number of bytes that can be written. One byte is kept
// unused to tell a full ring from an empty one.
func (b *upBuffer) free() int {
	rd, wr := int(b.rdOff.Load()), int(b.wrOff.Load())
	if rd <= wr {
		return len(b.buf) - 1 - wr + rd
	}
	return rd - wr - 1
}

func (b *upBuffer) available() int {
	rd, wr := int(b.rdOff.Load()), int(b.wrOff.Load())
	if rd <= wr {
		return wr - rd
	}
	return len(b.buf) - rd + wr
}

// put copies p into the ring; the caller ensures it fits.
func (b *upBuffer) put(p []byte) {
	wr := int(b.wrOff.Load())
	n := copy(b.buf[wr:], p)
	if n < len(p) {
		copy(b.buf, p[n:])
	}
	wr += len(p)
	if wr >= len(b.buf) {
		wr -= len(b.buf)
	}
	b.wrOff.Store(uint32(wr))
}

func (b *upBuffer) get(p []byte) int {
	n := b.available()
	if n > len(p) {
		n = len(p)
	}
	rd := int(b.rdOff.Load())
	c := copy(p[:n], b.buf[rd:])
	if c < n {
		copy(p[c:n], b.buf)
	}
	rd += n
	if rd >= len(b.buf) {
		rd -= len(b.buf)
	}
	b.rdOff.Store(uint32(rd))
	return n
}

// ControlBlock holds the up-buffers of a target.
type ControlBlock struct {
	ups     [MaxUpBuffers]atomic.Pointer[upBuffer]
	dropped [MaxUpBuffers]atomic.Uint64
}

// NewControlBlock creates a control block with the terminal channel
// configured.
func NewControlBlock() *ControlBlock {
	cb := &ControlBlock{}
	cb.ConfigUpBuffer(TerminalChannel, TerminalName, TerminalBufferSize, ModeNoBlockSkip)
	return cb
}

// ConfigUpBuffer (re)configures an up-buffer. The ring holds size-1 bytes.
// Reconfiguring discards pending bytes and resets the drop counter.
func (cb *ControlBlock) ConfigUpBuffer(channel uint8, name string, size int, mode Mode) {
	if int(channel) >= MaxUpBuffers {
		glog.Warningf("rtt: channel %d out of range", channel)
		return
	}
	if size < 2 {
		glog.Warningf("rtt: channel %d buffer size %d too small", channel, size)
		return
	}
	cb.ups[channel].Store(&upBuffer{name: name, mode: mode, buf: make([]byte, size)})
	cb.dropped[channel].Store(0)
	glog.V(2).Infof("rtt: up-buffer %d %q size=%d mode=%s", channel, name, size, mode)
}

func (cb *ControlBlock) up(channel uint8) *upBuffer {
	if int(channel) >= MaxUpBuffers {
		return nil
	}
	return cb.ups[channel].Load()
}

// Write writes p to the channel and returns the number of bytes accepted.
// It never blocks unless the channel is in ModeBlockIfFull.
func (cb *ControlBlock) Write(channel uint8, p []byte) int {
	b := cb.up(channel)
	if b == nil {
		if int(channel) < MaxUpBuffers {
			cb.dropped[channel].Add(uint64(len(p)))
		}
		return 0
	}
	b.wlock.Lock()
	defer b.wlock.Unlock()
	switch b.mode {
	case ModeNoBlockTrim:
		n := b.free()
		if n > len(p) {
			n = len(p)
		}
		b.put(p[:n])
		cb.dropped[channel].Add(uint64(len(p) - n))
		return n
	case ModeBlockIfFull:
		written := 0
		for written < len(p) {
			n := b.free()
			if n == 0 {
				runtime.Gosched()
				continue
			}
			if n > len(p)-written {
				n = len(p) - written
			}
			b.put(p[written : written+n])
			written += n
		}
		return written
	default:
		if b.free() < len(p) {
			cb.dropped[channel].Add(uint64(len(p)))
			return 0
		}
		b.put(p)
		return len(p)
	}
}

// Read drains up to len(p) pending bytes from the channel. This is the
// probe side of the ring.
func (cb *ControlBlock) Read(channel uint8, p []byte) int {
	b := cb.up(channel)
	if b == nil {
		return 0
	}
	b.rlock.Lock()
	defer b.rlock.Unlock()
	return b.get(p)
}

// Available returns the number of pending bytes in the channel.
func (cb *ControlBlock) Available(channel uint8) int {
	if b := cb.up(channel); b != nil {
		return b.available()
	}
	return 0
}

// Free returns the number of bytes that can be written without loss.
func (cb *ControlBlock) Free(channel uint8) int {
	if b := cb.up(channel); b != nil {
		return b.free()
	}
	return 0
}

// Dropped returns the number of bytes lost on the channel since it was
// configured.
func (cb *ControlBlock) Dropped(channel uint8) uint64 {
	if int(channel) >= MaxUpBuffers {
		return 0
	}
	return cb.dropped[channel].Load()
}

// Name returns the name of the channel, empty if not configured.
func (cb *ControlBlock) Name(channel uint8) string {
	if b := cb.up(channel); b != nil {
		return b.name
	}
	return ""
}

// Configured indicates the channel has an up-buffer.
func (cb *ControlBlock) Configured(channel uint8) bool {
	return cb.up(channel) != nil
}

var (
	defaultBlock *ControlBlock
	defaultOnce  sync.Once
)

// Default returns the process-wide control block.
func Default() *ControlBlock {
	defaultOnce.Do(func() {
		defaultBlock = NewControlBlock()
	})
	return defaultBlock
}
