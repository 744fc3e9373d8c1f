// Package registry keeps the names of traced tasks.
//
// The registry is a fixed arena populated before tracing starts. It is
// replayed as text at the start of every capture so the host can resolve
// handles in the binary records that follow.
package registry

import "strconv"

const (
	// Capacity is the maximum number of entries.
	Capacity = 32
	// MaxNameLen is the maximum stored name length in bytes.
	MaxNameLen = 15
)

// Markers bounding the textual registry block.
const (
	BeginMarker = "TASK_REGISTRY_START\n"
	EndMarker   = "TASK_REGISTRY_END\n"
)

// Writer receives registry text. The return value is the number of bytes
// accepted and is not checked.
type Writer interface {
	Write(p []byte) int
}

// Entry maps a handle to a task name.
type Entry struct {
	Handle uint32

	name [MaxNameLen]byte
	n    uint8
}

// Name returns the stored (possibly truncated) name.
func (e Entry) Name() string {
	return string(e.name[:e.n])
}

// Registry is an append-only, fixed capacity list of entries.
// It is not safe for concurrent use; the owner serializes access.
type Registry struct {
	entries [Capacity]Entry
	count   int
}

// Register appends an entry and returns false if the registry is full.
// Names longer than MaxNameLen are truncated. Handles are not deduplicated.
func (r *Registry) Register(handle uint32, name string) bool {
	if r.count >= Capacity {
		return false
	}
	e := &r.entries[r.count]
	e.Handle = handle
	e.n = uint8(copy(e.name[:], name))
	r.count++
	return true
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	return r.count
}

// Reset drops all entries.
func (r *Registry) Reset() {
	r.count = 0
}

// Entries returns a copy of the entries in insertion order.
func (r *Registry) Entries() []Entry {
	entries := make([]Entry, r.count)
	copy(entries, r.entries[:r.count])
	return entries
}

// EmitAll writes the registry block: the begin marker, one
// "TASK:<handle>:<name>" line per entry and the end marker.
func (r *Registry) EmitAll(w Writer) {
	w.Write([]byte(BeginMarker))
	var line [64]byte
	for i := 0; i < r.count; i++ {
		w.Write(r.entries[i].appendLine(line[:0]))
	}
	w.Write([]byte(EndMarker))
}

func (e *Entry) appendLine(b []byte) []byte {
	b = append(b, "TASK:"...)
	b = strconv.AppendUint(b, uint64(e.Handle), 10)
	b = append(b, ':')
	b = append(b, e.name[:e.n]...)
	return append(b, '\n')
}
