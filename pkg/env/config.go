// Package env provides the configuration shared by the trace commands.
package env

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/xid"

	"github.com/robotalks/rtt.go/pkg/rtt"
	"github.com/robotalks/rtt.go/pkg/trace"
	"github.com/robotalks/rtt.go/pkg/uplink"
)

// Config provides common options of the recorder and its uplink.
type Config struct {
	// Device identifies the probe in MQTT topics.
	Device string
	// Channel is the up-buffer channel of the trace stream.
	Channel uint
	// BufferSize is the staging buffer size of the recorder.
	BufferSize int
	// UpBufferSize is the size of the trace up-buffer.
	UpBufferSize int

	// MQTTURL specifies the broker, e.g. mqtt://host:port/topic-prefix/
	MQTTURL string
	// WebSocketURL specifies a websocket endpoint, e.g. ws://host:port/rtt
	WebSocketURL string
	// OutputFile receives the raw stream, "-" for stdout.
	OutputFile string
	// Framed writes OutputFile as length-prefixed chunk envelopes.
	Framed bool

	ChunkSize int
	Interval  time.Duration
}

// Environment variables overriding defaults.
const (
	EnvDevice       = "RTT_DEVICE"
	EnvChannel      = "RTT_TRACE_CHANNEL"
	EnvBufferSize   = "RTT_BUFFER_SIZE"
	EnvUpBufferSize = "RTT_UP_BUFFER_SIZE"
	EnvMQTTURL      = "RTT_MQTT_URL"
	EnvWebSocketURL = "RTT_WS_URL"
	EnvOutputFile   = "RTT_OUTPUT"
	EnvFramed       = "RTT_FRAMED"
)

var defaultConfig = Config{
	Channel:      uint(trace.DefaultChannel),
	BufferSize:   trace.DefaultBufferSize,
	UpBufferSize: trace.DefaultUpBufferSize,
	ChunkSize:    uplink.DefaultChunkSize,
	Interval:     10 * time.Millisecond,
}

func init() {
	defaultConfig.Device = DeviceID()
	defaultConfig.ApplyEnv()
}

// ApplyEnv overrides fields from environment variables. Malformed
// numbers are ignored.
func (c *Config) ApplyEnv() {
	if val := os.Getenv(EnvDevice); val != "" {
		c.Device = val
	}
	if val, err := strconv.ParseUint(os.Getenv(EnvChannel), 10, 8); err == nil {
		c.Channel = uint(val)
	}
	if val, err := strconv.Atoi(os.Getenv(EnvBufferSize)); err == nil {
		c.BufferSize = val
	}
	if val, err := strconv.Atoi(os.Getenv(EnvUpBufferSize)); err == nil {
		c.UpBufferSize = val
	}
	if val := os.Getenv(EnvMQTTURL); val != "" {
		c.MQTTURL = val
	}
	if val := os.Getenv(EnvWebSocketURL); val != "" {
		c.WebSocketURL = val
	}
	if val := os.Getenv(EnvOutputFile); val != "" {
		c.OutputFile = val
	}
	if val, err := strconv.ParseBool(os.Getenv(EnvFramed)); err == nil {
		c.Framed = val
	}
}

// LoadDotEnv loads variables from the files (.env if none) and applies
// them to the default config. Variables already set in the process take
// precedence and missing files are ignored.
func LoadDotEnv(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}
	for _, fn := range filenames {
		if _, err := os.Stat(fn); err != nil {
			continue
		}
		if err := godotenv.Load(fn); err != nil {
			return fmt.Errorf("load %s: %v", fn, err)
		}
	}
	defaultConfig.ApplyEnv()
	return nil
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Device, "device", defaultConfig.Device, "Device ID in uplink topics.")
	flag.UintVar(&defaultConfig.Channel, "channel", defaultConfig.Channel, "Up-buffer channel of the trace stream.")
	flag.IntVar(&defaultConfig.BufferSize, "buffer-size", defaultConfig.BufferSize, "Staging buffer size in bytes.")
	flag.IntVar(&defaultConfig.UpBufferSize, "up-buffer-size", defaultConfig.UpBufferSize, "Up-buffer size in bytes.")
	flag.StringVar(&defaultConfig.MQTTURL, "mqtt", defaultConfig.MQTTURL, "MQTT broker URL.")
	flag.StringVar(&defaultConfig.WebSocketURL, "ws", defaultConfig.WebSocketURL, "Websocket URL.")
	flag.StringVar(&defaultConfig.OutputFile, "o", defaultConfig.OutputFile, "Write the raw stream to file, - for stdout.")
	flag.BoolVar(&defaultConfig.Framed, "framed", defaultConfig.Framed, "Write output as length-prefixed chunk envelopes.")
	flag.IntVar(&defaultConfig.ChunkSize, "chunk-size", defaultConfig.ChunkSize, "Maximum uplink packet size.")
	flag.DurationVar(&defaultConfig.Interval, "interval", defaultConfig.Interval, "Uplink polling interval.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Validate checks the ranges of the options.
func (c *Config) Validate() error {
	if c.Channel >= rtt.MaxUpBuffers {
		return fmt.Errorf("channel %d out of range [0, %d)", c.Channel, rtt.MaxUpBuffers)
	}
	if c.Channel == uint(rtt.TerminalChannel) {
		return fmt.Errorf("channel %d is reserved for the terminal", c.Channel)
	}
	if c.UpBufferSize < 2 {
		return fmt.Errorf("invalid up-buffer size %d", c.UpBufferSize)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("invalid chunk size %d", c.ChunkSize)
	}
	return nil
}

// TraceChannel returns Channel as an up-buffer index.
func (c *Config) TraceChannel() uint8 {
	return uint8(c.Channel)
}

// RecorderOptions returns options for trace.NewRecorder.
func (c *Config) RecorderOptions(sink trace.Sink) trace.Options {
	return trace.Options{
		Sink:         sink,
		BufferSize:   c.BufferSize,
		UpBufferSize: c.UpBufferSize,
	}
}

// NewSession returns a unique uplink session id.
func NewSession() string {
	return xid.New().String()
}
