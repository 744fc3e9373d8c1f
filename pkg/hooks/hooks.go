// Package hooks maps FreeRTOS trace points to trace events.
//
// A port calls these methods from its trace macros, e.g.
//
//	traceTASK_SWITCHED_IN()   -> h.TaskSwitchedIn(currentTCB)
//	traceMALLOC(addr, size)   -> h.Malloc(addr, size)
//
// The recorder is injected, so a scheduler only depends on the Recorder
// capability and not on a global tracing state.
package hooks

import "github.com/robotalks/rtt.go/pkg/trace/event"

// Recorder records a trace event. It must be safe to call from interrupt
// context.
type Recorder interface {
	RecordEvent(typ event.Type, handle, data uint32)
}

// RecordEventFunc is the func form of Recorder.
type RecordEventFunc func(typ event.Type, handle, data uint32)

// RecordEvent implements Recorder.
func (f RecordEventFunc) RecordEvent(typ event.Type, handle, data uint32) {
	f(typ, handle, data)
}

// Hooks forwards kernel trace points to a Recorder.
// The zero value, with no Recorder, ignores all trace points.
type Hooks struct {
	Recorder Recorder
}

// New creates Hooks over r.
func New(r Recorder) *Hooks {
	return &Hooks{Recorder: r}
}

func (h *Hooks) record(typ event.Type, handle, data uint32) {
	if r := h.Recorder; r != nil {
		r.RecordEvent(typ, handle, data)
	}
}

// TaskSwitchedIn is called after a task is selected to run.
func (h *Hooks) TaskSwitchedIn(tcb uint32) { h.record(event.TaskSwitchedIn, tcb, 0) }

// TaskSwitchedOut is called before the running task is switched out.
func (h *Hooks) TaskSwitchedOut(tcb uint32) { h.record(event.TaskSwitchedOut, tcb, 0) }

// TaskCreate is called when a task is created.
func (h *Hooks) TaskCreate(tcb uint32) { h.record(event.TaskCreate, tcb, 0) }

// TaskDelete is called when a task is deleted.
func (h *Hooks) TaskDelete(tcb uint32) { h.record(event.TaskDelete, tcb, 0) }

// MovedTaskToReadyState is called when a task enters the ready list.
func (h *Hooks) MovedTaskToReadyState(tcb uint32) { h.record(event.TaskReady, tcb, 0) }

// TaskSuspend is called when a task is suspended.
func (h *Hooks) TaskSuspend(tcb uint32) { h.record(event.TaskSuspended, tcb, 0) }

// TaskResume is called when a task is resumed from task context.
func (h *Hooks) TaskResume(tcb uint32) { h.record(event.TaskResumed, tcb, 0) }

// TaskResumeFromISR is called when a task is resumed from an interrupt.
// The data field is 1 to tell it apart from TaskResume.
func (h *Hooks) TaskResumeFromISR(tcb uint32) { h.record(event.TaskResumed, tcb, 1) }

// ISREnter is called on interrupt entry.
func (h *Hooks) ISREnter() { h.record(event.ISREnter, 0, 0) }

// ISRExit is called on interrupt exit.
func (h *Hooks) ISRExit() { h.record(event.ISRExit, 0, 0) }

// QueueCreate is called when a queue is created.
func (h *Hooks) QueueCreate(queue uint32) { h.record(event.QueueCreate, queue, 0) }

// QueueSend is called when an item is sent to a queue.
func (h *Hooks) QueueSend(queue uint32) { h.record(event.QueueSend, queue, 0) }

// QueueReceive is called when an item is received from a queue.
func (h *Hooks) QueueReceive(queue uint32) { h.record(event.QueueReceive, queue, 0) }

// SemaphoreCreate is called when a semaphore is created.
func (h *Hooks) SemaphoreCreate(sem uint32) { h.record(event.SemaphoreCreate, sem, 0) }

// SemaphoreGive is called when a semaphore is given.
func (h *Hooks) SemaphoreGive(sem uint32) { h.record(event.SemaphoreGive, sem, 0) }

// SemaphoreTake is called when a semaphore is taken.
func (h *Hooks) SemaphoreTake(sem uint32) { h.record(event.SemaphoreTake, sem, 0) }

// MutexCreate is called when a mutex is created.
func (h *Hooks) MutexCreate(mutex uint32) { h.record(event.MutexCreate, mutex, 0) }

// MutexGive is called when a mutex is released.
func (h *Hooks) MutexGive(mutex uint32) { h.record(event.MutexGive, mutex, 0) }

// MutexTake is called when a mutex is acquired.
func (h *Hooks) MutexTake(mutex uint32) { h.record(event.MutexTake, mutex, 0) }

// TimerCreate is called when a software timer is created.
func (h *Hooks) TimerCreate(timer uint32) { h.record(event.TimerCreate, timer, 0) }

// TimerStart is called when a software timer is started.
func (h *Hooks) TimerStart(timer uint32) { h.record(event.TimerStart, timer, 0) }

// TimerStop is called when a software timer is stopped.
func (h *Hooks) TimerStop(timer uint32) { h.record(event.TimerStop, timer, 0) }

// Malloc is called after a heap allocation.
func (h *Hooks) Malloc(addr, size uint32) { h.record(event.Malloc, addr, size) }

// Free is called before a heap block is released.
func (h *Hooks) Free(addr, size uint32) { h.record(event.Free, addr, size) }
