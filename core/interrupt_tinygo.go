//go:build tinygo

package core

import "runtime/interrupt"

// State is the saved interrupt mask of the executing hart
type State = interrupt.State

// disableInterrupts disables interrupts and returns the previous state
func disableInterrupts() State {
	return interrupt.Disable()
}

// restoreInterrupts restores the interrupt state
func restoreInterrupts(state State) {
	interrupt.Restore(state)
}

// spinWait busy-waits; the lock holder runs on another hart with its
// interrupts masked and releases within a bounded number of cycles
func spinWait() {
}
