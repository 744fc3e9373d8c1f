package uplink

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/golang/glog"
)

// OpenStreamFunc returns the writer receiving one session/channel stream.
type OpenStreamFunc func(session string, channel uint8) (io.Writer, error)

// UnexpectedStreamError is returned for chunks of a stream the receiver
// does not accept.
type UnexpectedStreamError struct {
	Session string
	Channel uint8
}

// Error implements error.
func (e *UnexpectedStreamError) Error() string {
	return fmt.Sprintf("unexpected stream %s/%d", e.Session, e.Channel)
}

// Receiver reassembles chunk envelopes into raw streams, one writer per
// session and channel. Chunks behind the expected sequence are dropped;
// gaps are counted as lost.
type Receiver struct {
	Open OpenStreamFunc

	lock     sync.Mutex
	streams  map[string]*receiverStream
	rejected map[string]bool
	lost     uint64
	dropped  uint64
}

type receiverStream struct {
	w    io.Writer
	next uint64
}

// NewReceiver creates a Receiver writing the first stream it sees to w.
// Chunks of other streams are rejected with UnexpectedStreamError. w is
// not closed by the Receiver.
func NewReceiver(w io.Writer) *Receiver {
	var taken bool
	return NewDemuxReceiver(func(session string, channel uint8) (io.Writer, error) {
		if taken {
			return nil, &UnexpectedStreamError{Session: session, Channel: channel}
		}
		taken = true
		return struct{ io.Writer }{w}, nil
	})
}

// NewDemuxReceiver creates a Receiver opening a writer per stream.
func NewDemuxReceiver(open OpenStreamFunc) *Receiver {
	return &Receiver{
		Open:     open,
		streams:  make(map[string]*receiverStream),
		rejected: make(map[string]bool),
	}
}

// StreamFileName derives the file of a stream from name by inserting the
// session and channel before the extension: trace.bin becomes
// trace-<session>-<channel>.bin.
func StreamFileName(name, session string, channel uint8) string {
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s-%s-%d%s", strings.TrimSuffix(name, ext), session, channel, ext)
}

// FileOpener creates a file per stream named by StreamFileName.
func FileOpener(name string) OpenStreamFunc {
	return func(session string, channel uint8) (io.Writer, error) {
		fn := StreamFileName(name, session, channel)
		glog.Infof("writing stream %s/%d to %s", session, channel, fn)
		return os.Create(fn)
	}
}

func streamKey(c *Chunk) string {
	return fmt.Sprintf("%s/%d", c.Session, c.Channel)
}

// Receive decodes an envelope and appends its data to the stream.
func (r *Receiver) Receive(payload []byte) (*Chunk, error) {
	c, err := DecodeChunk(payload)
	if err != nil {
		return nil, err
	}
	key := streamKey(c)
	r.lock.Lock()
	defer r.lock.Unlock()
	s := r.streams[key]
	if s == nil {
		if r.rejected[key] {
			return c, &UnexpectedStreamError{Session: c.Session, Channel: c.Channel}
		}
		w, err := r.Open(c.Session, c.Channel)
		if err != nil {
			r.rejected[key] = true
			glog.Warningf("stream %s: rejected: %v", key, err)
			return c, err
		}
		glog.Infof("stream %s: new session at seq %d", key, c.Seq)
		s = &receiverStream{w: w, next: c.Seq}
		r.streams[key] = s
	}
	switch {
	case c.Seq < s.next:
		r.dropped++
		glog.Warningf("stream %s: dropped seq %d, expect %d", key, c.Seq, s.next)
		return c, nil
	case c.Seq > s.next:
		r.lost += c.Seq - s.next
		glog.Warningf("stream %s: %d chunks lost before seq %d", key, c.Seq-s.next, c.Seq)
	}
	s.next = c.Seq + 1
	_, err = s.w.Write(c.Data)
	return c, err
}

// Lost returns the number of chunks missing from sequence gaps.
func (r *Receiver) Lost() uint64 {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.lost
}

// Dropped returns the number of duplicate or late chunks discarded.
func (r *Receiver) Dropped() uint64 {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.dropped
}

// Close closes the stream writers that implement io.Closer.
func (r *Receiver) Close() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	var err error
	for key, s := range r.streams {
		if c, ok := s.w.(io.Closer); ok {
			if e := c.Close(); e != nil && err == nil {
				err = e
			}
		}
		delete(r.streams, key)
	}
	return err
}
