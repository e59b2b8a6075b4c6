package core

import "sync/atomic"

// IRQAction tells the interrupt controller what to do with the timer source
// after the handler returns
type IRQAction uint8

const (
	IRQKeepEnabled IRQAction = iota // Alarms remain pending
	IRQDisable                      // No alarm pending
)

// Stats counts the driver's decisions since creation
type Stats struct {
	Programmed uint32 // Countdown loads
	Stopped    uint32 // Timer stopped with nothing pending
	Fired      uint32 // Callbacks run
	Expired    uint32 // set_alarm calls with a past deadline
	Deferred   uint32 // set_alarm calls later than the armed alarm
	Spurious   uint32 // Interrupts with no due alarm
}

// TimeDriver multiplexes AlarmCount software alarms onto one hardware
// one-shot timer. Create one per system and pass it to every user.
type TimeDriver struct {
	hw     Hardware
	cfg    Config
	ratio  uint64
	tickHz uint64

	// next is the allocation cursor; updated lock-free
	next atomic.Uint32

	// Everything below is guarded by cs
	cs     criticalSection
	alarms alarmTable
	armed  atomic.Uint32 // AlarmID the timer counts toward, or NoAlarm
	stats  Stats
	trace  traceRing
}

// NewTimeDriver creates a driver for the given hardware. Init must be
// called once before any other method.
func NewTimeDriver(hw Hardware, cfg Config) (*TimeDriver, error) {
	if !hw.complete() {
		return nil, ErrMissingHardware
	}
	ratio, err := cfg.ClockRatio()
	if err != nil {
		return nil, err
	}
	cfg.TimerIRQs = append([]IRQ(nil), cfg.TimerIRQs...)

	d := &TimeDriver{
		hw:     hw,
		cfg:    cfg,
		ratio:  ratio,
		tickHz: cfg.TimerClockHz,
	}
	d.alarms.reset()
	d.armed.Store(uint32(NoAlarm))
	return d, nil
}

// Init brings up the timer hardware and clears every alarm.
// It must run exactly once, before any other call, on a hart allowed to
// initialize peripherals. It is not re-entrant.
func (d *TimeDriver) Init() {
	state := d.cs.enter()
	d.alarms.reset()
	d.armed.Store(uint32(NoAlarm))
	d.cs.exit(state)

	d.hw.Timer.PowerOn()
	for _, irq := range d.cfg.TimerIRQs {
		d.hw.PLIC.SetPriority(irq, d.cfg.IRQPriority)
	}
	d.hw.Clock.Reset()
	d.hw.Timer.Configure(TimerOneShot)
}

// Now returns the current clock source tick count
func (d *TimeDriver) Now() uint64 {
	return d.hw.Clock.Now()
}

// ClockRatio returns the countdown units per clock tick
func (d *TimeDriver) ClockRatio() uint64 {
	return d.ratio
}

// AllocateAlarm claims the next free alarm for the calling hart.
// Ids are handed out once, in increasing order, and never recycled.
func (d *TimeDriver) AllocateAlarm() (AlarmID, error) {
	for {
		n := d.next.Load()
		if n >= AlarmCount {
			return 0, ErrAlarmsExhausted
		}
		if !d.next.CompareAndSwap(n, n+1) {
			continue
		}

		id := AlarmID(n)
		hart := d.hw.Harts.HartID()
		state := d.cs.enter()
		d.alarms[id].hart = hart
		d.record(TraceAllocate, id, 0)
		d.cs.exit(state)
		return id, nil
	}
}

func (d *TimeDriver) allocated(id AlarmID) bool {
	return uint32(id) < d.next.Load()
}

// SetAlarmCallback registers the function run when the alarm fires.
// The last registration before the alarm fires wins.
func (d *TimeDriver) SetAlarmCallback(id AlarmID, fn Callback, ctx any) error {
	if !d.allocated(id) {
		return ErrInvalidAlarm
	}
	state := d.cs.enter()
	d.alarms[id].fn = fn
	d.alarms[id].ctx = ctx
	d.cs.exit(state)
	return nil
}

// SetAlarm schedules the alarm to fire at the absolute tick deadline.
//
// It returns true if the alarm is guaranteed to fire at or after the
// deadline, and false if the deadline has already passed. On false the
// alarm is retired without running its callback; the caller handles the
// expiry itself. Passing Sentinel cancels the alarm.
func (d *TimeDriver) SetAlarm(id AlarmID, deadline uint64) bool {
	if !d.allocated(id) {
		return false
	}
	state := d.cs.enter()
	ok := d.setAlarm(id, deadline)
	d.cs.exit(state)
	return ok
}

func (d *TimeDriver) setAlarm(id AlarmID, deadline uint64) bool {
	alarm := &d.alarms[id]
	alarm.deadline = deadline
	d.record(TraceSet, id, deadline)

	armed := AlarmID(d.armed.Load())
	if armed == id {
		return d.rearm(id)
	}

	if deadline == Sentinel || deadline > d.armedDeadline(armed) {
		// Another alarm fires first; the rescan picks this one up
		d.stats.Deferred++
		d.record(TraceDeferred, id, deadline)
		return true
	}

	now := d.Now()
	if deadline <= now {
		alarm.deadline = Sentinel
		d.stats.Expired++
		d.record(TraceExpired, id, deadline)
		return false
	}

	d.program(id, deadline-now)
	return true
}

func (d *TimeDriver) armedDeadline(armed AlarmID) uint64 {
	if armed == NoAlarm {
		return Sentinel
	}
	return d.alarms[armed].deadline
}

// rearm handles a new deadline for the alarm the timer currently counts
// toward. Moving it later may hand the timer to another alarm.
func (d *TimeDriver) rearm(id AlarmID) bool {
	now := d.Now()
	alarm := &d.alarms[id]
	if alarm.pending() && alarm.deadline <= now {
		deadline := alarm.deadline
		alarm.deadline = Sentinel
		d.stats.Expired++
		d.record(TraceExpired, id, deadline)
		d.reprogram(now)
		return false
	}
	d.reprogram(now)
	return true
}

// reprogram arms the timer toward the nearest pending alarm, or stops it.
// Returns whether an alarm is pending.
func (d *TimeDriver) reprogram(now uint64) bool {
	next, ok := d.alarms.nearest()
	if !ok {
		d.hw.Timer.Stop()
		d.armed.Store(uint32(NoAlarm))
		d.stats.Stopped++
		d.record(TraceStopped, NoAlarm, 0)
		return false
	}

	var interval uint64
	if deadline := d.alarms[next].deadline; deadline > now {
		interval = deadline - now
	}
	d.program(next, interval)
	return true
}

// program loads the countdown for interval ticks and routes the expiry
// interrupt to the alarm's owner hart
func (d *TimeDriver) program(id AlarmID, interval uint64) {
	high, low := splitLoad(interval, d.ratio)
	d.hw.Timer.LoadImmediate(high, low)
	d.hw.Timer.Start()
	d.hw.Timer.EnableIRQForHart(d.alarms[id].hart)
	d.armed.Store(uint32(id))
	d.stats.Programmed++
	d.record(TraceArmed, id, interval)
}

// triggerAlarm services one hardware expiry: fires the armed alarm if it
// is due, then re-arms toward the next nearest. Returns whether an alarm
// is still pending.
func (d *TimeDriver) triggerAlarm() bool {
	state := d.cs.enter()
	now := d.Now()

	armed := AlarmID(d.armed.Load())
	if armed != NoAlarm && d.alarms[armed].pending() && d.alarms[armed].deadline <= now {
		alarm := &d.alarms[armed]
		d.stats.Fired++
		d.record(TraceFired, armed, alarm.deadline)
		alarm.fire()
	} else {
		d.stats.Spurious++
		d.record(TraceSpurious, armed, 0)
	}

	pending := d.reprogram(now)
	d.cs.exit(state)
	return pending
}

// HandleInterrupt is the timer interrupt entry point. The pending flag is
// cleared on every call, whether or not an alarm fired.
func (d *TimeDriver) HandleInterrupt() IRQAction {
	pending := d.triggerAlarm()
	d.hw.Timer.ClearIRQ()
	if pending {
		return IRQKeepEnabled
	}
	return IRQDisable
}

// Deadline returns the stored deadline of an allocated alarm
func (d *TimeDriver) Deadline(id AlarmID) (uint64, error) {
	if !d.allocated(id) {
		return 0, ErrInvalidAlarm
	}
	state := d.cs.enter()
	deadline := d.alarms[id].deadline
	d.cs.exit(state)
	return deadline, nil
}

// Armed returns the alarm the timer currently counts toward
func (d *TimeDriver) Armed() (AlarmID, bool) {
	id := AlarmID(d.armed.Load())
	return id, id != NoAlarm
}

// Stats returns a snapshot of the decision counters
func (d *TimeDriver) Stats() Stats {
	state := d.cs.enter()
	s := d.stats
	d.cs.exit(state)
	return s
}

func (d *TimeDriver) record(kind TraceKind, id AlarmID, value uint64) {
	if !d.trace.enabled {
		return
	}
	d.trace.record(TraceEvent{
		Kind:  kind,
		Alarm: id,
		Hart:  d.hw.Harts.HartID(),
		Now:   d.Now(),
		Value: value,
	})
}
