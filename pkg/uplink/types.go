package uplink

import "io"

// PacketWriter writes packets in bytes.
type PacketWriter interface {
	WritePacket([]byte) error
}

// WritePacketFunc is the func form of PacketWriter.
type WritePacketFunc func([]byte) error

// WritePacket implements PacketWriter.
func (f WritePacketFunc) WritePacket(pkt []byte) error {
	return f(pkt)
}

// PacketReader reads packets in bytes.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// Source is the probe side of an RTT control block.
type Source interface {
	Read(channel uint8, p []byte) int
}

// MultiWriter writes every packet to all writers, stopping at the first
// error.
type MultiWriter []PacketWriter

// WritePacket implements PacketWriter.
func (m MultiWriter) WritePacket(pkt []byte) error {
	for _, w := range m {
		if err := w.WritePacket(pkt); err != nil {
			return err
		}
	}
	return nil
}

// RawWriter writes packets unframed so the output is the plain stream.
type RawWriter struct {
	io.Writer
}

// WritePacket implements PacketWriter.
func (w RawWriter) WritePacket(pkt []byte) error {
	_, err := w.Write(pkt)
	return err
}
