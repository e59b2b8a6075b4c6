package sim

import (
	"sync"

	"hartclock/core"
)

// Load is one write of the countdown load registers
type Load struct {
	High uint32 `json:"high"`
	Low  uint32 `json:"low"`
	At   uint64 `json:"at"` // Clock ticks when written
}

// Value returns the 64-bit countdown value
func (l Load) Value() uint64 {
	return uint64(l.High)<<32 | uint64(l.Low)
}

// Timer simulates the 64-bit MSS countdown timer. The countdown runs at
// ratio units per clock tick and latches its interrupt flag at zero.
type Timer struct {
	clock *Clock
	ratio uint64

	mu         sync.Mutex
	powered    bool
	mode       core.TimerMode
	running    bool
	load       Load
	loads      []Load
	irqEnabled bool
	irqHart    core.Hart
	irqPending bool
	clears     int
}

// NewTimer creates a timer counting ratio units per tick of clock
func NewTimer(clock *Clock, ratio uint64) *Timer {
	if ratio == 0 {
		ratio = 1
	}
	return &Timer{clock: clock, ratio: ratio}
}

func (t *Timer) PowerOn() {
	t.mu.Lock()
	t.powered = true
	t.mu.Unlock()
}

func (t *Timer) Configure(mode core.TimerMode) {
	t.mu.Lock()
	t.mode = mode
	t.mu.Unlock()
}

func (t *Timer) LoadImmediate(high, low uint32) {
	t.mu.Lock()
	t.load = Load{High: high, Low: low, At: t.clock.Now()}
	t.loads = append(t.loads, t.load)
	t.mu.Unlock()
}

func (t *Timer) Start() {
	t.mu.Lock()
	t.running = t.powered
	t.mu.Unlock()
}

func (t *Timer) Stop() {
	t.mu.Lock()
	t.running = false
	t.mu.Unlock()
}

func (t *Timer) EnableIRQForHart(hart core.Hart) {
	t.mu.Lock()
	t.irqEnabled = true
	t.irqHart = hart
	t.mu.Unlock()
}

func (t *Timer) ClearIRQ() {
	t.mu.Lock()
	t.irqPending = false
	t.clears++
	t.mu.Unlock()
}

// MaskIRQ disables the interrupt source, as the dispatcher does when a
// handler returns core.IRQDisable. The next EnableIRQForHart unmasks it.
func (t *Timer) MaskIRQ() {
	t.mu.Lock()
	t.irqEnabled = false
	t.mu.Unlock()
}

// ExpiresAt returns the clock tick the running countdown reaches zero
func (t *Timer) ExpiresAt() (uint64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return 0, false
	}
	return t.expiresAt(), true
}

func (t *Timer) expiresAt() uint64 {
	ticks := (t.load.Value() + t.ratio - 1) / t.ratio
	return t.load.At + ticks
}

// Tick latches the interrupt flag if the countdown has expired by now.
// It returns the hart to interrupt when the flag is set and the source is
// enabled.
func (t *Timer) Tick(now uint64) (core.Hart, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running && now >= t.expiresAt() {
		t.irqPending = true
		if t.mode == core.TimerPeriodic {
			t.load.At = t.expiresAt()
		} else {
			t.running = false
		}
	}
	return t.irqHart, t.irqPending && t.irqEnabled
}

// Running reports whether the countdown is active
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Loads returns every load register write in order
func (t *Timer) Loads() []Load {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Load(nil), t.loads...)
}

// LastLoad returns the most recent load register write
func (t *Timer) LastLoad() (Load, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.loads) == 0 {
		return Load{}, false
	}
	return t.loads[len(t.loads)-1], true
}

// IRQHart returns the hart the expiry interrupt is routed to
func (t *Timer) IRQHart() core.Hart {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.irqHart
}

var _ core.OneShotTimer = (*Timer)(nil)
