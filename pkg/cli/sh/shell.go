// Package sh provides an interactive shell driving a trace recorder.
package sh

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/rtt.go/pkg/env"
	fx "github.com/robotalks/rtt.go/pkg/framework"
	"github.com/robotalks/rtt.go/pkg/hooks"
	"github.com/robotalks/rtt.go/pkg/rtt"
	"github.com/robotalks/rtt.go/pkg/trace"
	"github.com/robotalks/rtt.go/pkg/trace/event"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell  *ishell.Shell
	Config *env.Config
	Block  *rtt.ControlBlock
	Trace  *trace.Controller
	Hooks  *hooks.Hooks

	Uplink *env.Uplink
	Loop   *fx.Loop
	cancel context.CancelFunc
	done   chan struct{}
}

// Status is the snapshot printed by the status command.
type Status struct {
	Initialized bool     `json:"initialized"`
	Enabled     bool     `json:"enabled"`
	Channel     uint8    `json:"channel"`
	Buffered    int      `json:"buffered"`
	BufferSize  int      `json:"buffer_size"`
	Available   int      `json:"available"`
	Dropped     uint64   `json:"dropped"`
	Tasks       []string `json:"tasks"`
	Forwarded   uint64   `json:"forwarded,omitempty"`
}

const (
	shellKey = "$shell"
	prompt   = "rtt > "
)

var (
	evalOnly   bool
	outputJSON bool

	commands = []*ishell.Cmd{
		&InitCmd,
		&RegisterCmd,
		&StartCmd,
		&StopCmd,
		&EventCmd,
		&SwitchCmd,
		&ISRCmd,
		&StatusCmd,
		&DrainCmd,
		&TypesCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print status in JSON.")
}

// New creates a shell with its own control block and recorder.
func New(conf *env.Config) *Shell {
	s := newShell(conf)
	s.Shell = ishell.New()
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(prompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

func newShell(conf *env.Config) *Shell {
	cb := rtt.NewControlBlock()
	ctl := trace.NewController(trace.NewRecorder(conf.RecorderOptions(cb)))
	return &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Config: conf,
		Block:  cb,
		Trace:  ctl,
		Hooks:  hooks.New(ctl),
	}
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// ParseHandle parses a decimal or 0x prefixed 32-bit value.
func ParseHandle(s string) (uint32, error) {
	val, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid handle %q", s)
	}
	return uint32(val), nil
}

// StartUplink starts pumping the trace channel to the configured
// destinations.
func (s *Shell) StartUplink() error {
	u, err := s.Config.NewUplink(s.Block)
	if err != nil {
		return err
	}
	s.Uplink = u
	s.Loop = fx.NewLoop().Add(u.Pump)
	s.Loop.Interval = s.Config.Interval
	var ctx context.Context
	ctx, s.cancel = context.WithCancel(context.Background())
	s.done = make(chan struct{})
	go func(loop *fx.Loop, done chan struct{}) {
		loop.Run(ctx)
		close(done)
	}(s.Loop, s.done)
	return nil
}

// Close stops the uplink. The loop drains the channel one last time
// before it exits.
func (s *Shell) Close() error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
		s.cancel, s.done = nil, nil
	}
	if s.Uplink == nil {
		return nil
	}
	err := s.Uplink.Close()
	s.Uplink, s.Loop = nil, nil
	return err
}

// Register registers a task: HANDLE NAME.
func (s *Shell) Register(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("HANDLE NAME expected")
	}
	handle, err := ParseHandle(args[0])
	if err != nil {
		return err
	}
	s.Trace.RegisterTask(handle, strings.Join(args[1:], " "))
	return nil
}

// RecordEvent records an event: TYPE HANDLE [DATA].
func (s *Shell) RecordEvent(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("TYPE HANDLE [DATA] expected")
	}
	typ, err := event.ParseType(args[0])
	if err != nil {
		return err
	}
	handle, err := ParseHandle(args[1])
	if err != nil {
		return err
	}
	var data uint32
	if len(args) > 2 {
		if data, err = ParseHandle(args[2]); err != nil {
			return err
		}
	}
	s.Trace.RecordEvent(typ, handle, data)
	return nil
}

// Switch records a context switch: FROM TO.
func (s *Shell) Switch(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("FROM TO expected")
	}
	from, err := ParseHandle(args[0])
	if err != nil {
		return err
	}
	to, err := ParseHandle(args[1])
	if err != nil {
		return err
	}
	s.Hooks.TaskSwitchedOut(from)
	s.Hooks.TaskSwitchedIn(to)
	return nil
}

// Status returns a snapshot of the recorder and its channel.
func (s *Shell) Status() Status {
	r := s.Trace.Recorder()
	ch := s.traceChannel()
	st := Status{
		Initialized: r.Initialized(),
		Enabled:     r.Enabled(),
		Channel:     ch,
		Buffered:    r.Buffered(),
		BufferSize:  r.BufferSize(),
		Available:   s.Block.Available(ch),
		Dropped:     s.Block.Dropped(ch),
		Tasks:       []string{},
	}
	for _, t := range r.Tasks() {
		st.Tasks = append(st.Tasks, fmt.Sprintf("0x%08x %s", t.Handle, t.Name()))
	}
	if s.Uplink != nil {
		st.Forwarded = s.Uplink.Pump.Forwarded()
	}
	return st
}

// FormatStatus renders Status for display.
func (s *Shell) FormatStatus(st Status) string {
	if s.OutputJSON {
		out, err := json.Marshal(st)
		if err != nil {
			return err.Error()
		}
		return string(out)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "initialized: %v\nenabled: %v\nchannel: %d\n", st.Initialized, st.Enabled, st.Channel)
	fmt.Fprintf(&b, "staged: %d/%d\nup-buffer: %d pending, %d dropped\n", st.Buffered, st.BufferSize, st.Available, st.Dropped)
	if s.Uplink != nil {
		fmt.Fprintf(&b, "uplink: %d bytes forwarded\n", st.Forwarded)
	}
	fmt.Fprintf(&b, "tasks: %d\n", len(st.Tasks))
	for _, t := range st.Tasks {
		fmt.Fprintf(&b, "  %s\n", t)
	}
	return b.String()
}

// traceChannel is the recorder channel once initialized, the configured
// one before.
func (s *Shell) traceChannel() uint8 {
	if r := s.Trace.Recorder(); r.Initialized() {
		return r.Channel()
	}
	return s.Config.TraceChannel()
}

// Drain empties the trace channel and returns the bytes read. With an
// uplink the pump is triggered instead and nil is returned.
func (s *Shell) Drain() []byte {
	if s.Loop != nil {
		s.Loop.TriggerNext()
		return nil
	}
	var out []byte
	buf := make([]byte, 256)
	ch := s.traceChannel()
	for {
		n := s.Block.Read(ch, buf)
		if n == 0 {
			return out
		}
		out = append(out, buf[:n]...)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

func cmdFunc(fn func(s *Shell, args []string) error) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if err := fn(ShellFrom(c), c.Args); err != nil {
			c.Err(err)
		}
	}
}

var (
	// InitCmd initializes the recorder.
	InitCmd = ishell.Cmd{
		Name: "init",
		Help: "initialize tracing on the configured channel",
		Func: cmdFunc(func(s *Shell, _ []string) error {
			s.Trace.Initialize(s.Config.TraceChannel())
			return nil
		}),
	}

	// RegisterCmd registers a task name.
	RegisterCmd = ishell.Cmd{
		Name:    "register",
		Aliases: []string{"reg"},
		Help:    "HANDLE NAME",
		Func: cmdFunc(func(s *Shell, args []string) error {
			return s.Register(args)
		}),
	}

	// StartCmd starts tracing.
	StartCmd = ishell.Cmd{
		Name: "start",
		Help: "start tracing",
		Func: cmdFunc(func(s *Shell, _ []string) error {
			s.Trace.Start()
			if !s.Trace.IsEnabled() {
				return fmt.Errorf("not initialized")
			}
			return nil
		}),
	}

	// StopCmd stops tracing.
	StopCmd = ishell.Cmd{
		Name: "stop",
		Help: "stop tracing",
		Func: cmdFunc(func(s *Shell, _ []string) error {
			s.Trace.Stop()
			return nil
		}),
	}

	// EventCmd records an arbitrary event.
	EventCmd = ishell.Cmd{
		Name:    "event",
		Aliases: []string{"ev"},
		Help:    "TYPE HANDLE [DATA]",
		Func: cmdFunc(func(s *Shell, args []string) error {
			return s.RecordEvent(args)
		}),
	}

	// SwitchCmd records a context switch.
	SwitchCmd = ishell.Cmd{
		Name: "switch",
		Help: "FROM TO",
		Func: cmdFunc(func(s *Shell, args []string) error {
			return s.Switch(args)
		}),
	}

	// ISRCmd records an interrupt entry and exit.
	ISRCmd = ishell.Cmd{
		Name: "isr",
		Help: "record ISR enter and exit",
		Func: cmdFunc(func(s *Shell, _ []string) error {
			s.Hooks.ISREnter()
			s.Hooks.ISRExit()
			return nil
		}),
	}

	// StatusCmd prints the recorder status.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"st"},
		Help:    "show recorder status",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			c.Print(s.FormatStatus(s.Status()))
		},
	}

	// DrainCmd reads the trace channel.
	DrainCmd = ishell.Cmd{
		Name: "drain",
		Help: "dump pending up-buffer bytes",
		Func: func(c *ishell.Context) {
			if data := ShellFrom(c).Drain(); len(data) > 0 {
				c.Print(hex.Dump(data))
			}
		},
	}

	// TypesCmd lists event types.
	TypesCmd = ishell.Cmd{
		Name: "types",
		Help: "list event types",
		Func: func(c *ishell.Context) {
			for _, t := range event.Types() {
				c.Printf("0x%02x %s\n", uint8(t), t)
			}
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	if err := env.LoadDotEnv(); err != nil {
		log.Fatalln(err)
	}
	conf := env.NewConfig()
	if err := conf.Validate(); err != nil {
		log.Fatalln(err)
	}
	s := New(conf)
	if conf.MQTTURL != "" || conf.WebSocketURL != "" || conf.OutputFile != "" {
		if err := s.StartUplink(); err != nil {
			log.Fatalln(err)
		}
	}
	defer s.Close()
	s.Run(flag.Args()...)
}
