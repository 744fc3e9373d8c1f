package mqtt

import (
	"fmt"
	"strconv"
	"strings"
)

// TopicRoot is the first level of every up-buffer topic.
const TopicRoot = "rtt"

// Topic returns the topic carrying a device channel: rtt/<device>/<channel>.
func Topic(device string, channel uint8) string {
	return fmt.Sprintf("%s/%s/%d", TopicRoot, device, channel)
}

// ParseTopic extracts device and channel from a topic built by Topic.
func ParseTopic(topic string) (device string, channel uint8, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != TopicRoot || parts[1] == "" {
		return "", 0, false
	}
	ch, err := strconv.ParseUint(parts[2], 10, 8)
	if err != nil {
		return "", 0, false
	}
	return parts[1], uint8(ch), true
}

// Writer implements uplink.PacketWriter by publishing each packet.
type Writer struct {
	Queue *Queue
	Topic string
}

// NewWriter creates a Writer publishing on the device channel topic.
func NewWriter(q *Queue, device string, channel uint8) *Writer {
	return &Writer{Queue: q, Topic: Topic(device, channel)}
}

// WritePacket implements PacketWriter. It waits for the publish to
// complete so pump errors reflect broker failures.
func (w *Writer) WritePacket(pkt []byte) error {
	token := w.Queue.Pub(w.Topic, pkt)
	token.Wait()
	return token.Error()
}
