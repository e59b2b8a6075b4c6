package core

// Hart identifies a processing core able to receive interrupts
type Hart uint32

// IRQ is an interrupt controller source number
type IRQ uint32

// TimerMode selects how the countdown timer behaves when it reaches zero
type TimerMode uint8

const (
	// TimerOneShot stops at zero and must be reloaded to fire again
	TimerOneShot TimerMode = iota
	// TimerPeriodic reloads from the background load value at zero
	TimerPeriodic
)

// ClockSource is the free-running monotonic tick counter.
type ClockSource interface {
	// Now returns the current tick count. Never decreases.
	Now() uint64

	// Reset sets the counter back to zero (bring-up only)
	Reset()
}

// OneShotTimer is the abstract countdown timer the alarms are multiplexed onto.
// Platform-specific implementations handle the register writes.
// None of the methods report status: writes are fire-and-forget.
type OneShotTimer interface {
	// PowerOn releases the timer peripheral from reset and enables its clock
	PowerOn()

	// Configure selects the countdown mode
	Configure(mode TimerMode)

	// LoadImmediate loads the countdown value, given as its upper and
	// lower 32-bit halves, replacing any countdown in progress
	LoadImmediate(high, low uint32)

	// Start starts counting down
	Start()

	// Stop halts the countdown
	Stop()

	// EnableIRQForHart enables the expiry interrupt, routed to hart
	EnableIRQForHart(hart Hart)

	// ClearIRQ clears the interrupt-pending flag
	ClearIRQ()
}

// InterruptController configures external interrupt sources.
type InterruptController interface {
	// SetPriority sets the priority of an interrupt source
	SetPriority(irq IRQ, priority uint8)
}

// HartSource reports which hart is executing the caller
type HartSource interface {
	HartID() Hart
}

// Hardware bundles the collaborators the time driver programs.
type Hardware struct {
	Clock ClockSource
	Timer OneShotTimer
	PLIC  InterruptController
	Harts HartSource
}

func (hw Hardware) complete() bool {
	return hw.Clock != nil && hw.Timer != nil && hw.PLIC != nil && hw.Harts != nil
}
