package uplink

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/golang/protobuf/proto"
	anypb "github.com/golang/protobuf/ptypes/any"
)

// ChunkTypePrefix prefixes the type URL of chunk envelopes.
const ChunkTypePrefix = "type.robotalks.io/rtt.Chunk"

// Chunk is a piece of an up-buffer stream.
type Chunk struct {
	Session string
	Channel uint8
	Seq     uint64
	Data    []byte
}

// InvalidEnvelopeError indicates the payload is not a chunk envelope.
type InvalidEnvelopeError struct {
	TypeURL string
}

// Error implements error.
func (e *InvalidEnvelopeError) Error() string {
	return fmt.Sprintf("invalid chunk envelope type %q", e.TypeURL)
}

// Encode wraps the chunk in a protobuf Any. The type URL carries
// session/channel/seq so receivers can detect gaps.
func (c *Chunk) Encode() ([]byte, error) {
	return proto.Marshal(&anypb.Any{
		TypeUrl: fmt.Sprintf("%s/%s/%d/%d", ChunkTypePrefix, c.Session, c.Channel, c.Seq),
		Value:   c.Data,
	})
}

// DecodeChunk decodes an envelope produced by Chunk.Encode.
func DecodeChunk(payload []byte) (*Chunk, error) {
	var env anypb.Any
	if err := proto.Unmarshal(payload, &env); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(env.TypeUrl, ChunkTypePrefix+"/") {
		return nil, &InvalidEnvelopeError{TypeURL: env.TypeUrl}
	}
	parts := strings.Split(env.TypeUrl[len(ChunkTypePrefix)+1:], "/")
	if len(parts) != 3 {
		return nil, &InvalidEnvelopeError{TypeURL: env.TypeUrl}
	}
	channel, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		return nil, &InvalidEnvelopeError{TypeURL: env.TypeUrl}
	}
	seq, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return nil, &InvalidEnvelopeError{TypeURL: env.TypeUrl}
	}
	return &Chunk{Session: parts[0], Channel: uint8(channel), Seq: seq, Data: env.Value}, nil
}

// EnvelopeWriter wraps packets into chunk envelopes with increasing
// sequence numbers.
type EnvelopeWriter struct {
	Writer  PacketWriter
	Session string
	Channel uint8

	seq  uint64
	lock sync.Mutex
}

// NewEnvelopeWriter creates an EnvelopeWriter.
func NewEnvelopeWriter(w PacketWriter, session string, channel uint8) *EnvelopeWriter {
	return &EnvelopeWriter{Writer: w, Session: session, Channel: channel}
}

// WritePacket implements PacketWriter.
func (w *EnvelopeWriter) WritePacket(pkt []byte) error {
	w.lock.Lock()
	defer w.lock.Unlock()
	c := Chunk{Session: w.Session, Channel: w.Channel, Seq: w.seq, Data: pkt}
	payload, err := c.Encode()
	if err != nil {
		return err
	}
	w.seq++
	return w.Writer.WritePacket(payload)
}
