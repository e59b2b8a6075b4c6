//go:build mpfs

package main

import (
	"runtime/volatile"
	"unsafe"
)

// MMUART0, initialized to 115200 8N1 by the boot monitor
const (
	uartBase = 0x20000000
	uartTHR  = uartBase + 0x00
	uartLSR  = uartBase + 0x14
	lsrTHRE  = 1 << 5
)

var (
	uartTx     = (*volatile.Register8)(unsafe.Pointer(uintptr(uartTHR)))
	uartStatus = (*volatile.Register8)(unsafe.Pointer(uintptr(uartLSR)))
)

// traceUART writes trace frames by polling the transmit holding register
type traceUART struct{}

func (traceUART) Write(p []byte) (int, error) {
	for _, b := range p {
		for uartStatus.Get()&lsrTHRE == 0 {
		}
		uartTx.Set(b)
	}
	return len(p), nil
}
