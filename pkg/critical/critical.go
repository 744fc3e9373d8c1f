// Package critical provides critical sections guarding state shared
// between task and interrupt context.
//
// Trace state is mutated from scheduler hooks and interrupt handlers.
// Every read-modify-write of shared state must run between Enter and Exit
// so a nested or higher priority interrupt cannot observe or corrupt a
// half-updated buffer.
package critical

import "sync"

// State is the saved state returned by Enter and restored by Exit.
type State uintptr

// Section is a critical section.
type Section interface {
	// Enter begins the critical section and returns the state to restore.
	Enter() State
	// Exit ends the critical section started by the matching Enter.
	Exit(State)
}

// Mutex implements Section with a sync.Mutex. It is the choice for hosted
// builds where goroutines stand in for interrupt handlers. It is not
// reentrant.
type Mutex struct {
	mu sync.Mutex
}

// NewMutex creates a Mutex section.
func NewMutex() *Mutex {
	return &Mutex{}
}

// Enter implements Section.
func (m *Mutex) Enter() State {
	m.mu.Lock()
	return 0
}

// Exit implements Section.
func (m *Mutex) Exit(State) {
	m.mu.Unlock()
}

// Func adapts a pair of functions to Section.
type Func struct {
	EnterFunc func() State
	ExitFunc  func(State)
}

// Enter implements Section.
func (f Func) Enter() State {
	return f.EnterFunc()
}

// Exit implements Section.
func (f Func) Exit(s State) {
	f.ExitFunc(s)
}
