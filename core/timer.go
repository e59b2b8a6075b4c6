package core

import "errors"

// Clock frequencies of the reference board
const (
	DefaultBusClockHz   = 150000000 // APB/AHB clock feeding the countdown timer
	DefaultTimerClockHz = 1000000   // RTC toggle clock driving mtime
	DefaultIRQPriority  = 2
)

// PLIC sources of the two 32-bit halves of the MSS timer
const (
	IRQTimer1 IRQ = 82
	IRQTimer2 IRQ = 83
)

var (
	ErrInvalidClockRatio = errors.New("timer clock must not be faster than the bus clock")
	ErrMissingHardware   = errors.New("hardware collaborator not configured")
)

// Config holds the build-time settings of the time driver
type Config struct {
	// BusClockHz is the frequency the countdown timer decrements at
	BusClockHz uint64

	// TimerClockHz is the frequency of the clock source returned by Now
	TimerClockHz uint64

	// TimerIRQs are the interrupt sources given IRQPriority at bring-up
	TimerIRQs []IRQ

	// IRQPriority is the interrupt controller priority of the timer sources
	IRQPriority uint8
}

// DefaultConfig returns the configuration of the reference board
func DefaultConfig() Config {
	return Config{
		BusClockHz:   DefaultBusClockHz,
		TimerClockHz: DefaultTimerClockHz,
		TimerIRQs:    []IRQ{IRQTimer1, IRQTimer2},
		IRQPriority:  DefaultIRQPriority,
	}
}

// ClockRatio returns how many countdown units elapse per clock source tick
func (c Config) ClockRatio() (uint64, error) {
	if c.TimerClockHz == 0 {
		return 0, ErrInvalidClockRatio
	}
	ratio := c.BusClockHz / c.TimerClockHz
	if ratio == 0 {
		return 0, ErrInvalidClockRatio
	}
	return ratio, nil
}

// splitLoad converts an interval in clock ticks into the two 32-bit halves
// of the countdown load value
func splitLoad(interval, ratio uint64) (high, low uint32) {
	counter := interval * ratio
	return uint32(counter >> 32), uint32(counter)
}

// TicksFromMicros converts microseconds to clock source ticks
func (d *TimeDriver) TicksFromMicros(us uint64) uint64 {
	return us * d.tickHz / 1000000
}

// MicrosFromTicks converts clock source ticks to microseconds
func (d *TimeDriver) MicrosFromTicks(ticks uint64) uint64 {
	return ticks * 1000000 / d.tickHz
}

// After returns the deadline us microseconds from now
func (d *TimeDriver) After(us uint64) uint64 {
	return d.Now() + d.TicksFromMicros(us)
}
