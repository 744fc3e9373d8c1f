package uplink

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
)

// DefaultChunkSize is the maximum size of a forwarded packet.
const DefaultChunkSize = 1024

// Pump drains an up-buffer channel into a PacketWriter. It implements
// framework.Poller and is driven by a framework.Loop.
type Pump struct {
	Source  Source
	Channel uint8
	Writer  PacketWriter

	lock      sync.Mutex
	buf       []byte
	forwarded atomic.Uint64
	packets   atomic.Uint64
}

// NewPump creates a Pump forwarding packets of at most chunkSize bytes.
func NewPump(src Source, channel uint8, w PacketWriter, chunkSize int) *Pump {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Pump{Source: src, Channel: channel, Writer: w, buf: make([]byte, chunkSize)}
}

// Name implements framework.Named.
func (p *Pump) Name() string {
	return fmt.Sprintf("pump-%d", p.Channel)
}

// Poll implements framework.Poller. It forwards everything pending.
// Concurrent calls are serialized.
func (p *Pump) Poll(ctx context.Context, _ time.Time) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	for {
		n := p.Source.Read(p.Channel, p.buf)
		if n == 0 {
			return nil
		}
		pkt := make([]byte, n)
		copy(pkt, p.buf[:n])
		if err := p.Writer.WritePacket(pkt); err != nil {
			return fmt.Errorf("forward %d bytes from channel %d: %v", n, p.Channel, err)
		}
		p.forwarded.Add(uint64(n))
		p.packets.Add(1)
		glog.V(4).Infof("%s: forwarded %d bytes", p.Name(), n)
	}
}

// Forwarded returns the number of bytes forwarded.
func (p *Pump) Forwarded() uint64 {
	return p.forwarded.Load()
}

// Packets returns the number of packets forwarded.
func (p *Pump) Packets() uint64 {
	return p.packets.Load()
}
