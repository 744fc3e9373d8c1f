//go:build tinygo

package critical

import "runtime/interrupt"

// Interrupts masks interrupts on the current core. Enter may be nested as
// long as each Exit restores the state of its own Enter.
type Interrupts struct{}

// Enter implements Section.
func (Interrupts) Enter() State {
	return State(interrupt.Disable())
}

// Exit implements Section.
func (Interrupts) Exit(s State) {
	interrupt.Restore(interrupt.State(s))
}

// Default returns the section used by the process-wide trace recorder.
func Default() Section {
	return Interrupts{}
}
