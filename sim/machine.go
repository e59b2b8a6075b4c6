package sim

import (
	"errors"

	"github.com/joeycumines/logiface"

	"hartclock/core"
)

// DefaultMaxInterrupts bounds the interrupts delivered by one Advance
const DefaultMaxInterrupts = 1024

var ErrRunaway = errors.New("interrupt storm: too many timer interrupts in one advance")

// Machine wires a time driver to simulated hardware
type Machine struct {
	Clock  *Clock
	Timer  *Timer
	PLIC   *PLIC
	Harts  *Harts
	Driver *core.TimeDriver

	log           *logiface.Logger[logiface.Event]
	maxInterrupts int
	interrupts    int
	masked        int
}

// Option configures a Machine
type Option func(*Machine)

// WithLogger sets the logger interrupt deliveries are reported to
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return func(m *Machine) {
		m.log = logger
	}
}

// WithMaxInterrupts overrides DefaultMaxInterrupts
func WithMaxInterrupts(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.maxInterrupts = n
		}
	}
}

// NewMachine creates simulated hardware for cfg and brings up a time
// driver on it
func NewMachine(cfg core.Config, opts ...Option) (*Machine, error) {
	ratio, err := cfg.ClockRatio()
	if err != nil {
		return nil, err
	}

	m := &Machine{
		Clock:         &Clock{},
		PLIC:          &PLIC{},
		Harts:         &Harts{},
		maxInterrupts: DefaultMaxInterrupts,
	}
	m.Timer = NewTimer(m.Clock, ratio)
	for _, opt := range opts {
		opt(m)
	}

	m.Driver, err = core.NewTimeDriver(core.Hardware{
		Clock: m.Clock,
		Timer: m.Timer,
		PLIC:  m.PLIC,
		Harts: m.Harts,
	}, cfg)
	if err != nil {
		return nil, err
	}
	m.Driver.Init()

	m.log.Debug().
		Uint64("bus_hz", cfg.BusClockHz).
		Uint64("timer_hz", cfg.TimerClockHz).
		Uint64("ratio", ratio).
		Log("machine up")
	return m, nil
}

// Advance moves simulated time forward by ticks, delivering every timer
// interrupt that falls due on the way at the tick it expires
func (m *Machine) Advance(ticks uint64) error {
	target := m.Clock.Now() + ticks
	expiries := 0

	for {
		expires, ok := m.Timer.ExpiresAt()
		if !ok || expires > target {
			break
		}
		m.Clock.Set(expires)

		m.poll()
		expiries++
		if expiries > m.maxInterrupts {
			m.log.Err().Int("expiries", expiries).Log("interrupt storm")
			return ErrRunaway
		}
	}

	m.Clock.Set(target)
	m.poll()
	return nil
}

// poll delivers the timer interrupt if it is latched and enabled
func (m *Machine) poll() {
	now := m.Clock.Now()
	hart, raised := m.Timer.Tick(now)
	if !raised {
		return
	}

	prev := m.Harts.HartID()
	m.Harts.Set(hart)
	action := m.Driver.HandleInterrupt()
	m.Harts.Set(prev)
	m.interrupts++

	if action == core.IRQDisable {
		m.Timer.MaskIRQ()
		m.masked++
	}

	armed, _ := m.Driver.Armed()
	m.log.Debug().
		Uint64("now", now).
		Int("hart", int(hart)).
		Int("armed", int(armed)).
		Bool("keep_enabled", action == core.IRQKeepEnabled).
		Log("timer interrupt")
}

// Interrupts returns the number of timer interrupts delivered
func (m *Machine) Interrupts() int {
	return m.interrupts
}

// Masked returns how many handlers asked for the source to be disabled
func (m *Machine) Masked() int {
	return m.masked
}
