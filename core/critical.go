package core

import "sync/atomic"

// criticalSection excludes every hart and the interrupt path from the
// guarded state. Interrupts are masked on the executing hart first, then a
// spin lock keeps the other harts out. It never sleeps and never allocates.
type criticalSection struct {
	locked atomic.Uint32
}

func (cs *criticalSection) enter() State {
	state := disableInterrupts()
	for !cs.locked.CompareAndSwap(0, 1) {
		spinWait()
	}
	return state
}

func (cs *criticalSection) exit(state State) {
	cs.locked.Store(0)
	restoreInterrupts(state)
}
