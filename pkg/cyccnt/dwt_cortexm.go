//go:build tinygo && cortexm

package cyccnt

import (
	"runtime/volatile"
	"unsafe"
)

// DWT and debug registers of the Cortex-M3/M4 core.
const (
	regDWTControl = uintptr(0xE0001000)
	regDWTCycCnt  = uintptr(0xE0001004)
	regSCBDEMCR   = uintptr(0xE000EDFC)

	demcrTraceEna = 0x01000000
	dwtCycCntEna  = 0x1
)

// DWT reads the DWT cycle counter.
type DWT struct{}

// EnableDWT turns on trace and resets the cycle counter.
func EnableDWT() DWT {
	demcr := (*volatile.Register32)(unsafe.Pointer(regSCBDEMCR))
	demcr.SetBits(demcrTraceEna)
	volatile.StoreUint32((*uint32)(unsafe.Pointer(regDWTCycCnt)), 0)
	ctrl := (*volatile.Register32)(unsafe.Pointer(regDWTControl))
	ctrl.SetBits(dwtCycCntEna)
	return DWT{}
}

// Cycles implements Counter.
func (DWT) Cycles() uint32 {
	return volatile.LoadUint32((*uint32)(unsafe.Pointer(regDWTCycCnt)))
}

var defaultCounter = &Lazy{New: func() Counter {
	return EnableDWT()
}}

// Default returns the counter used by the process-wide trace recorder.
// The DWT is enabled at the first read.
func Default() Counter {
	return defaultCounter
}
