// Package event defines trace event types and the binary record format.
package event

// Records are written back-to-back to the trace channel without
// delimiters, so the layout below is the contract with the host reader:
//
//	offset  size  field
//	0       1     type tag
//	1       4     timestamp (cycle counter)
//	5       4     handle (task or kernel object)
//	9       4     data (event specific)
//
// Multi-byte fields are little-endian, matching the Cortex-M targets.

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// RecordSize is the size of an encoded record in bytes.
const RecordSize = 13

// ErrShortRecord indicates there are fewer than RecordSize bytes to decode.
var ErrShortRecord = errors.New("short record")

// Type is the one-byte event type tag.
type Type uint8

// Event types. The numeric values are part of the wire format.
const (
	TaskSwitchedIn  Type = 0x01
	TaskSwitchedOut Type = 0x02
	TaskCreate      Type = 0x03
	TaskDelete      Type = 0x04
	TaskReady       Type = 0x05
	TaskSuspended   Type = 0x06
	TaskResumed     Type = 0x07

	ISREnter Type = 0x10
	ISRExit  Type = 0x11

	QueueCreate  Type = 0x20
	QueueSend    Type = 0x21
	QueueReceive Type = 0x22

	SemaphoreCreate Type = 0x30
	SemaphoreGive   Type = 0x31
	SemaphoreTake   Type = 0x32

	MutexCreate Type = 0x40
	MutexGive   Type = 0x41
	MutexTake   Type = 0x42

	TimerCreate Type = 0x50
	TimerStart  Type = 0x51
	TimerStop   Type = 0x52

	Malloc Type = 0x60
	Free   Type = 0x61
)

var typeNames = map[Type]string{
	TaskSwitchedIn:  "TASK_SWITCHED_IN",
	TaskSwitchedOut: "TASK_SWITCHED_OUT",
	TaskCreate:      "TASK_CREATE",
	TaskDelete:      "TASK_DELETE",
	TaskReady:       "TASK_READY",
	TaskSuspended:   "TASK_SUSPENDED",
	TaskResumed:     "TASK_RESUMED",
	ISREnter:        "ISR_ENTER",
	ISRExit:         "ISR_EXIT",
	QueueCreate:     "QUEUE_CREATE",
	QueueSend:       "QUEUE_SEND",
	QueueReceive:    "QUEUE_RECEIVE",
	SemaphoreCreate: "SEMAPHORE_CREATE",
	SemaphoreGive:   "SEMAPHORE_GIVE",
	SemaphoreTake:   "SEMAPHORE_TAKE",
	MutexCreate:     "MUTEX_CREATE",
	MutexGive:       "MUTEX_GIVE",
	MutexTake:       "MUTEX_TAKE",
	TimerCreate:     "TIMER_CREATE",
	TimerStart:      "TIMER_START",
	TimerStop:       "TIMER_STOP",
	Malloc:          "MALLOC",
	Free:            "FREE",
}

// Types lists all known event types in tag order.
func Types() []Type {
	return []Type{
		TaskSwitchedIn, TaskSwitchedOut, TaskCreate, TaskDelete,
		TaskReady, TaskSuspended, TaskResumed,
		ISREnter, ISRExit,
		QueueCreate, QueueSend, QueueReceive,
		SemaphoreCreate, SemaphoreGive, SemaphoreTake,
		MutexCreate, MutexGive, MutexTake,
		TimerCreate, TimerStart, TimerStop,
		Malloc, Free,
	}
}

// String implements fmt.Stringer.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TYPE_%02X", uint8(t))
}

// IsValid indicates t is one of the defined types.
func (t Type) IsValid() bool {
	_, ok := typeNames[t]
	return ok
}

// HighFrequency reports whether t is fired on every context switch or
// interrupt. These types force a flush once the staging buffer is half full.
func (t Type) HighFrequency() bool {
	switch t {
	case TaskSwitchedIn, TaskSwitchedOut, ISREnter, ISRExit:
		return true
	}
	return false
}

// UnknownTypeError is returned by ParseType.
type UnknownTypeError struct {
	Name string
}

// Error implements error.
func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown event type %q", e.Name)
}

// ParseType finds the type by its mnemonic, e.g. "ISR_ENTER".
func ParseType(name string) (Type, error) {
	for t, n := range typeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, &UnknownTypeError{Name: name}
}

// Event is a single trace event.
type Event struct {
	Type      Type
	Timestamp uint32
	Handle    uint32
	Data      uint32
}

// Put encodes one record into dst, which must hold at least RecordSize bytes.
func Put(dst []byte, typ Type, timestamp, handle, data uint32) {
	_ = dst[RecordSize-1]
	dst[0] = byte(typ)
	binary.LittleEndian.PutUint32(dst[1:5], timestamp)
	binary.LittleEndian.PutUint32(dst[5:9], handle)
	binary.LittleEndian.PutUint32(dst[9:13], data)
}

// Encode returns the encoded record.
func (e Event) Encode() (rec [RecordSize]byte) {
	Put(rec[:], e.Type, e.Timestamp, e.Handle, e.Data)
	return
}

// Decode decodes the first record in b.
func Decode(b []byte) (Event, error) {
	if len(b) < RecordSize {
		return Event{}, ErrShortRecord
	}
	return Event{
		Type:      Type(b[0]),
		Timestamp: binary.LittleEndian.Uint32(b[1:5]),
		Handle:    binary.LittleEndian.Uint32(b[5:9]),
		Data:      binary.LittleEndian.Uint32(b[9:13]),
	}, nil
}
