//go:build mpfs

package main

import (
	"runtime/volatile"
	"unsafe"

	"hartclock/core"
)

const (
	plicBase     = 0x0C000000
	plicPriority = plicBase
	plicEnable   = plicBase + 0x2000
	plicCtxSize  = 0x80
	plicHarts    = 5
)

func plicReg(addr uintptr) *volatile.Register32 {
	return (*volatile.Register32)(unsafe.Pointer(addr))
}

// mContext returns the PLIC machine-mode context of a hart. The E51 has a
// single context; each U54 has an M and an S context.
func mContext(hart core.Hart) uintptr {
	if hart == 0 {
		return 0
	}
	return uintptr(2*hart - 1)
}

// plic implements core.InterruptController
type plic struct{}

func (plic) SetPriority(irq core.IRQ, priority uint8) {
	plicReg(plicPriority + 4*uintptr(irq)).Set(uint32(priority))
}

// route enables irq on hart's context only
func (plic) route(irq core.IRQ, hart core.Hart) {
	word := 4 * (uintptr(irq) / 32)
	bit := uint32(1) << (irq % 32)
	for h := core.Hart(0); h < plicHarts; h++ {
		reg := plicReg(plicEnable + mContext(h)*plicCtxSize + word)
		if h == hart {
			reg.SetBits(bit)
		} else {
			reg.ClearBits(bit)
		}
	}
}

