package core

import (
	"errors"

	"hartclock/protocol"
)

var ErrTraceKind = errors.New("unknown trace event kind")

// EncodeTrace writes one trace event as a frame payload
func EncodeTrace(output protocol.OutputBuffer, e TraceEvent) {
	protocol.EncodeVLQUint(output, uint32(e.Kind))
	protocol.EncodeVLQUint(output, uint32(e.Alarm))
	protocol.EncodeVLQUint(output, uint32(e.Hart))
	protocol.EncodeVLQUint64(output, e.Now)
	protocol.EncodeVLQUint64(output, e.Value)
}

// DecodeTrace reads a trace event written by EncodeTrace
func DecodeTrace(data *[]byte) (TraceEvent, error) {
	var e TraceEvent

	kind, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return e, err
	}
	if kind < uint32(TraceAllocate) || kind > uint32(TraceSpurious) {
		return e, ErrTraceKind
	}
	e.Kind = TraceKind(kind)

	alarm, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return e, err
	}
	e.Alarm = AlarmID(alarm)

	hart, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return e, err
	}
	e.Hart = Hart(hart)

	if e.Now, err = protocol.DecodeVLQUint64(data); err != nil {
		return e, err
	}
	if e.Value, err = protocol.DecodeVLQUint64(data); err != nil {
		return e, err
	}
	return e, nil
}

// traceBatch bounds the events encoded per Flush so the frames always fit
// in one scratch buffer
const traceBatch = 12

// TraceStreamer drains the driver's trace ring into frames. Owned by one
// goroutine, typically the idle loop.
type TraceStreamer struct {
	driver  *TimeDriver
	encoder protocol.Encoder
	output  *protocol.ScratchOutput
	events  [traceBatch]TraceEvent
}

// NewTraceStreamer creates a streamer for the driver's trace ring
func NewTraceStreamer(d *TimeDriver) *TraceStreamer {
	return &TraceStreamer{
		driver: d,
		output: protocol.NewScratchOutput(),
	}
}

// Flush drains up to a batch of pending events and returns them encoded as
// frames, or an empty slice when the ring is empty. The returned slice is
// reused by the next call.
func (s *TraceStreamer) Flush() []byte {
	s.output.Reset()
	n := s.driver.DrainTrace(s.events[:])
	for i := 0; i < n; i++ {
		e := s.events[i]
		// Trace payloads are far below the frame limit
		_ = s.encoder.EncodeFrame(s.output, func(o protocol.OutputBuffer) {
			EncodeTrace(o, e)
		})
	}
	return s.output.Result()
}
