// Package stream frames packets over a byte stream.
package stream

import (
	"encoding/binary"
	"errors"
	"io"
)

// MaxPacketSize bounds the length prefix accepted by ReadPacket.
const MaxPacketSize = 1 << 20

// ErrPacketTooLarge indicates a length prefix above MaxPacketSize.
var ErrPacketTooLarge = errors.New("packet too large")

// ReadWriter implements uplink.PacketReader and uplink.PacketWriter.
// Each packet is prefixed by 4-byte (little-endian) indicate the length.
type ReadWriter struct {
	io.ReadWriter
}

// New creates a ReadWriter with io.ReadWriter.
func New(s io.ReadWriter) *ReadWriter {
	return &ReadWriter{s}
}

// NewWriter creates a write-only ReadWriter, e.g. over a file.
func NewWriter(w io.Writer) *ReadWriter {
	return &ReadWriter{writeOnly{w}}
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	var size uint32
	if err := binary.Read(p, binary.LittleEndian, &size); err != nil {
		return nil, err
	}
	if size > MaxPacketSize {
		return nil, ErrPacketTooLarge
	}
	pkt := make([]byte, size)
	_, err := io.ReadFull(p, pkt)
	return pkt, err
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	var head [4]byte
	binary.LittleEndian.PutUint32(head[:], uint32(len(pkt)))
	if _, err := p.Write(head[:]); err != nil {
		return err
	}
	_, err := p.Write(pkt)
	return err
}

type writeOnly struct {
	io.Writer
}

func (writeOnly) Read([]byte) (int, error) {
	return 0, io.EOF
}
