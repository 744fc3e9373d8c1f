//go:build !tinygo

package critical

var defaultSection Section = NewMutex()

// Default returns the section used by the process-wide trace recorder.
func Default() Section {
	return defaultSection
}
