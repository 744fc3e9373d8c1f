//go:build !(tinygo && cortexm)

package cyccnt

var defaultCounter = &Lazy{New: func() Counter {
	return NewClock(nil, DefaultHz)
}}

// Default returns the counter used by the process-wide trace recorder.
// The clock starts at the first read.
func Default() Counter {
	return defaultCounter
}
