package core

// TraceKind identifies what the driver did
type TraceKind uint8

// Trace event kinds
const (
	TraceAllocate TraceKind = 1 // Alarm allocated, Value = 0
	TraceSet      TraceKind = 2 // set_alarm received, Value = requested deadline
	TraceDeferred TraceKind = 3 // Later than the armed alarm, hardware untouched
	TraceArmed    TraceKind = 4 // Timer programmed, Value = interval in ticks
	TraceExpired  TraceKind = 5 // Deadline already passed, alarm retired
	TraceFired    TraceKind = 6 // Callback invoked, Value = deadline
	TraceStopped  TraceKind = 7 // Nothing pending, timer stopped
	TraceSpurious TraceKind = 8 // Interrupt with no due alarm
)

const (
	TraceRingSize = 32 // Keep last 32 events for post-mortem
)

// TraceEvent captures one driver decision for post-mortem analysis
type TraceEvent struct {
	Kind  TraceKind
	Alarm AlarmID
	Hart  Hart   // Hart that executed the operation
	Now   uint64 // Clock source value when recorded
	Value uint64 // Kind-dependent value
}

func (k TraceKind) String() string {
	switch k {
	case TraceAllocate:
		return "ALLOCATE"
	case TraceSet:
		return "SET"
	case TraceDeferred:
		return "DEFERRED"
	case TraceArmed:
		return "ARMED"
	case TraceExpired:
		return "EXPIRED"
	case TraceFired:
		return "FIRED"
	case TraceStopped:
		return "STOPPED"
	case TraceSpurious:
		return "SPURIOUS"
	default:
		return "UNKNOWN"
	}
}

// AppendText appends a one-line description of the event to buf
func (e TraceEvent) AppendText(buf []byte) []byte {
	buf = append(buf, "[TIMER] "...)
	buf = append(buf, e.Kind.String()...)
	buf = append(buf, " alarm="...)
	buf = appendUint(buf, uint64(e.Alarm))
	buf = append(buf, " hart="...)
	buf = appendUint(buf, uint64(e.Hart))
	buf = append(buf, " now="...)
	buf = appendUint(buf, e.Now)
	buf = append(buf, " value="...)
	buf = appendUint(buf, e.Value)
	return buf
}

func (e TraceEvent) String() string {
	return string(e.AppendText(nil))
}

// traceRing is a non-blocking ring buffer of trace events. Only accessed
// inside the critical section.
type traceRing struct {
	events  [TraceRingSize]TraceEvent
	head    uint8 // Next write position
	count   uint8
	dropped uint32
	enabled bool
}

func (r *traceRing) record(e TraceEvent) {
	if !r.enabled {
		return
	}
	r.events[r.head] = e
	r.head = (r.head + 1) % TraceRingSize
	if r.count < TraceRingSize {
		r.count++
	} else {
		r.dropped++
	}
}

// drain copies events oldest first into dst and removes them from the ring
func (r *traceRing) drain(dst []TraceEvent) int {
	n := int(r.count)
	if n > len(dst) {
		n = len(dst)
	}
	start := (int(r.head) + TraceRingSize - int(r.count)) % TraceRingSize
	for i := 0; i < n; i++ {
		dst[i] = r.events[(start+i)%TraceRingSize]
	}
	r.count -= uint8(n)
	return n
}

// SetTracing enables or disables trace capture
// Disabled by default; capture costs a few stores per operation
func (d *TimeDriver) SetTracing(enabled bool) {
	state := d.cs.enter()
	d.trace.enabled = enabled
	d.cs.exit(state)
}

// DrainTrace moves up to len(dst) captured events into dst, oldest first,
// and returns how many were written. Call it outside time-critical code.
func (d *TimeDriver) DrainTrace(dst []TraceEvent) int {
	state := d.cs.enter()
	n := d.trace.drain(dst)
	d.cs.exit(state)
	return n
}

// TraceDropped returns how many events were overwritten before being drained
func (d *TimeDriver) TraceDropped() uint32 {
	state := d.cs.enter()
	n := d.trace.dropped
	d.cs.exit(state)
	return n
}
