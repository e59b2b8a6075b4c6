package core

import (
	"sync/atomic"
	"testing"
)

// fakeClock is a settable clock source
type fakeClock struct {
	now    atomic.Uint64
	resets int
}

func (c *fakeClock) Now() uint64 { return c.now.Load() }
func (c *fakeClock) Reset()      { c.resets++; c.now.Store(0) }
func (c *fakeClock) set(t uint64) { c.now.Store(t) }

type timerLoad struct {
	high, low uint32
}

func (l timerLoad) value() uint64 { return uint64(l.high)<<32 | uint64(l.low) }

// fakeTimer records every register write. Only touched inside the
// driver's critical section, so it needs no lock of its own.
type fakeTimer struct {
	powered bool
	mode    TimerMode
	modeSet bool
	running bool
	loads   []timerLoad
	harts   []Hart
	stops   int
	clears  int
}

func (t *fakeTimer) PowerOn() { t.powered = true }
func (t *fakeTimer) Configure(mode TimerMode) {
	t.mode = mode
	t.modeSet = true
}
func (t *fakeTimer) LoadImmediate(high, low uint32) {
	t.loads = append(t.loads, timerLoad{high: high, low: low})
}
func (t *fakeTimer) Start() { t.running = true }
func (t *fakeTimer) Stop() {
	t.running = false
	t.stops++
}
func (t *fakeTimer) EnableIRQForHart(hart Hart) { t.harts = append(t.harts, hart) }
func (t *fakeTimer) ClearIRQ()                  { t.clears++ }

func (t *fakeTimer) lastLoad() timerLoad {
	if len(t.loads) == 0 {
		return timerLoad{}
	}
	return t.loads[len(t.loads)-1]
}

type fakePLIC struct {
	priorities map[IRQ]uint8
}

func (p *fakePLIC) SetPriority(irq IRQ, priority uint8) {
	if p.priorities == nil {
		p.priorities = make(map[IRQ]uint8)
	}
	p.priorities[irq] = priority
}

type fakeHarts struct {
	hart atomic.Uint32
}

func (h *fakeHarts) HartID() Hart { return Hart(h.hart.Load()) }

type testRig struct {
	driver *TimeDriver
	clock  *fakeClock
	timer  *fakeTimer
	plic   *fakePLIC
	harts  *fakeHarts
}

// newTestRig returns an initialized driver whose countdown runs ratio
// times faster than its clock source
func newTestRig(t *testing.T, ratio uint64) *testRig {
	t.Helper()
	r := &testRig{
		clock: &fakeClock{},
		timer: &fakeTimer{},
		plic:  &fakePLIC{},
		harts: &fakeHarts{},
	}
	cfg := DefaultConfig()
	cfg.TimerClockHz = 1000000
	cfg.BusClockHz = ratio * cfg.TimerClockHz

	d, err := NewTimeDriver(Hardware{Clock: r.clock, Timer: r.timer, PLIC: r.plic, Harts: r.harts}, cfg)
	if err != nil {
		t.Fatalf("NewTimeDriver failed: %v", err)
	}
	d.Init()
	r.driver = d
	return r
}

func (r *testRig) allocate(t *testing.T) AlarmID {
	t.Helper()
	id, err := r.driver.AllocateAlarm()
	if err != nil {
		t.Fatalf("AllocateAlarm failed: %v", err)
	}
	return id
}

func (r *testRig) deadline(t *testing.T, id AlarmID) uint64 {
	t.Helper()
	deadline, err := r.driver.Deadline(id)
	if err != nil {
		t.Fatalf("Deadline(%d) failed: %v", id, err)
	}
	return deadline
}
