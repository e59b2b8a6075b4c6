//go:build mpfs

package main

import (
	"runtime/volatile"
	"unsafe"

	"device/riscv"

	"hartclock/core"
)

// CLINT machine timer, clocked by the RTC toggle clock
const (
	clintBase  = 0x02000000
	clintMtime = clintBase + 0xBFF8
)

var (
	mtimeLo = (*volatile.Register32)(unsafe.Pointer(uintptr(clintMtime)))
	mtimeHi = (*volatile.Register32)(unsafe.Pointer(uintptr(clintMtime + 4)))
)

// mtimeClock implements core.ClockSource on the CLINT mtime counter
type mtimeClock struct{}

func (mtimeClock) Now() uint64 {
	// Re-read the high word to detect a carry between the two reads
	for {
		high1 := mtimeHi.Get()
		low := mtimeLo.Get()
		high2 := mtimeHi.Get()
		if high1 == high2 {
			return uint64(high1)<<32 | uint64(low)
		}
	}
}

func (mtimeClock) Reset() {
	mtimeLo.Set(0)
	mtimeHi.Set(0)
	mtimeLo.Set(0)
}

// mhartid implements core.HartSource
type mhartid struct{}

func (mhartid) HartID() core.Hart {
	return core.Hart(riscv.MHARTID.Get())
}
