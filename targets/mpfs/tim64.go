//go:build mpfs

package main

import (
	"runtime/volatile"
	"unsafe"

	"hartclock/core"
)

// MSS timer (TIMER_LO) in 64-bit mode
const (
	timerBase = 0x20125000

	tim64LoadValU  = timerBase + 0x38
	tim64LoadValL  = timerBase + 0x3C
	tim64Ctrl      = timerBase + 0x48
	tim64RIS       = timerBase + 0x4C
	tim64Mode      = timerBase + 0x54
	tim64ModeOn64  = 0x1
	tim64CtrlEn    = 1 << 0
	tim64CtrlOne   = 1 << 1 // One-shot when set, periodic when clear
	tim64CtrlIntEn = 1 << 2
	tim64RISClear  = 0x1
)

// SYSREG clock gating and soft reset of the MSS peripherals
const (
	sysregBase      = 0x20002000
	sysregSubblkClk = sysregBase + 0x84
	sysregSoftReset = sysregBase + 0x88
	sysregTimerMask = 1 << 4
)

var (
	timLoadU    = (*volatile.Register32)(unsafe.Pointer(uintptr(tim64LoadValU)))
	timLoadL    = (*volatile.Register32)(unsafe.Pointer(uintptr(tim64LoadValL)))
	timCtrl     = (*volatile.Register32)(unsafe.Pointer(uintptr(tim64Ctrl)))
	timRIS      = (*volatile.Register32)(unsafe.Pointer(uintptr(tim64RIS)))
	timMode     = (*volatile.Register32)(unsafe.Pointer(uintptr(tim64Mode)))
	subblkClock = (*volatile.Register32)(unsafe.Pointer(uintptr(sysregSubblkClk)))
	softReset   = (*volatile.Register32)(unsafe.Pointer(uintptr(sysregSoftReset)))
)

// tim64 implements core.OneShotTimer on the MSS timer
type tim64 struct {
	plic *plic
}

func (t *tim64) PowerOn() {
	subblkClock.SetBits(sysregTimerMask)
	softReset.ClearBits(sysregTimerMask)
}

func (t *tim64) Configure(mode core.TimerMode) {
	timCtrl.ClearBits(tim64CtrlEn | tim64CtrlIntEn)
	timMode.Set(tim64ModeOn64)
	if mode == core.TimerOneShot {
		timCtrl.SetBits(tim64CtrlOne)
	} else {
		timCtrl.ClearBits(tim64CtrlOne)
	}
	timRIS.Set(tim64RISClear)
}

func (t *tim64) LoadImmediate(high, low uint32) {
	// Writing the low half commits the 64-bit value
	timLoadU.Set(high)
	timLoadL.Set(low)
}

func (t *tim64) Start() {
	timCtrl.SetBits(tim64CtrlEn)
}

func (t *tim64) Stop() {
	timCtrl.ClearBits(tim64CtrlEn)
}

func (t *tim64) EnableIRQForHart(hart core.Hart) {
	timCtrl.SetBits(tim64CtrlIntEn)
	t.plic.route(core.IRQTimer1, hart)
}

func (t *tim64) ClearIRQ() {
	timRIS.Set(tim64RISClear)
}

