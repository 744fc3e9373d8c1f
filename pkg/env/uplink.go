package env

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/rtt.go/pkg/uplink"
	"github.com/robotalks/rtt.go/pkg/uplink/mqtt"
	"github.com/robotalks/rtt.go/pkg/uplink/stream"
	"github.com/robotalks/rtt.go/pkg/uplink/websocket"
)

// Uplink is the pump of the trace channel with its destinations.
type Uplink struct {
	Session string
	Pump    *uplink.Pump
	Targets []string

	closers []io.Closer
}

// NewUplink creates a pump from src to every configured destination.
// With no destination the stream is discarded by the pump.
func (c *Config) NewUplink(src uplink.Source) (*Uplink, error) {
	u := &Uplink{Session: NewSession()}
	var writers uplink.MultiWriter
	ch := c.TraceChannel()

	if c.OutputFile != "" {
		out := io.Writer(os.Stdout)
		if c.OutputFile != "-" {
			f, err := os.Create(c.OutputFile)
			if err != nil {
				return nil, err
			}
			u.closers = append(u.closers, f)
			out = f
		}
		if c.Framed {
			writers = append(writers, uplink.NewEnvelopeWriter(stream.NewWriter(out), u.Session, ch))
		} else {
			writers = append(writers, uplink.RawWriter{Writer: out})
		}
		u.Targets = append(u.Targets, "file:"+c.OutputFile)
	}
	if c.MQTTURL != "" {
		q, err := mqtt.NewQueueFromURL(c.MQTTURL)
		if err != nil {
			u.Close()
			return nil, fmt.Errorf("invalid MQTT URL: %v", err)
		}
		if err := q.Connect(); err != nil {
			u.Close()
			return nil, fmt.Errorf("connect %s: %v", c.MQTTURL, err)
		}
		u.closers = append(u.closers, q)
		writers = append(writers, uplink.NewEnvelopeWriter(mqtt.NewWriter(q, c.Device, ch), u.Session, ch))
		u.Targets = append(u.Targets, c.MQTTURL)
	}
	if c.WebSocketURL != "" {
		conn, err := websocket.Dial(c.WebSocketURL, "http://localhost/")
		if err != nil {
			u.Close()
			return nil, fmt.Errorf("connect %s: %v", c.WebSocketURL, err)
		}
		u.closers = append(u.closers, conn)
		writers = append(writers, uplink.NewEnvelopeWriter(conn, u.Session, ch))
		u.Targets = append(u.Targets, c.WebSocketURL)
	}

	u.Pump = uplink.NewPump(src, ch, writers, c.ChunkSize)
	glog.Infof("uplink session %s: channel %d to %v", u.Session, ch, u.Targets)
	return u, nil
}

// MustNewUplink creates the uplink and fails on error.
func (c *Config) MustNewUplink(src uplink.Source) *Uplink {
	u, err := c.NewUplink(src)
	if err != nil {
		log.Fatalln(err)
	}
	return u
}

// Close implements io.Closer.
func (u *Uplink) Close() error {
	var err error
	for _, c := range u.closers {
		if e := c.Close(); e != nil && err == nil {
			err = e
		}
	}
	u.closers = nil
	return err
}
