package core

import (
	"testing"

	"hartclock/protocol"
)

func TestTracingDisabledByDefault(t *testing.T) {
	r := newTestRig(t, 10)
	id := r.allocate(t)
	r.driver.SetAlarm(id, 100)

	var events [TraceRingSize]TraceEvent
	if n := r.driver.DrainTrace(events[:]); n != 0 {
		t.Errorf("Expected no events with tracing off, got %d", n)
	}
}

func TestTraceRecordsDecisions(t *testing.T) {
	r := newTestRig(t, 10)
	r.driver.SetTracing(true)
	r.harts.hart.Store(2)

	id := r.allocate(t)
	r.clock.set(40)
	r.driver.SetAlarm(id, 100)
	r.clock.set(100)
	r.driver.HandleInterrupt()

	var events [TraceRingSize]TraceEvent
	n := r.driver.DrainTrace(events[:])

	want := []struct {
		kind  TraceKind
		alarm AlarmID
		value uint64
	}{
		{TraceAllocate, id, 0},
		{TraceSet, id, 100},
		{TraceArmed, id, 60},
		{TraceFired, id, 100},
		{TraceStopped, NoAlarm, 0},
	}
	if n != len(want) {
		t.Fatalf("Expected %d events, got %d: %v", len(want), n, events[:n])
	}
	for i, w := range want {
		e := events[i]
		if e.Kind != w.kind || e.Alarm != w.alarm || e.Value != w.value {
			t.Errorf("Event %d: expected %s alarm=%d value=%d, got %s", i, w.kind, w.alarm, w.value, e)
		}
		if e.Hart != 2 {
			t.Errorf("Event %d: expected hart 2, got %d", i, e.Hart)
		}
	}

	if n := r.driver.DrainTrace(events[:]); n != 0 {
		t.Errorf("Drain should empty the ring, %d events left", n)
	}
}

func TestTraceRingOverflow(t *testing.T) {
	r := newTestRig(t, 10)
	r.driver.SetTracing(true)
	id := r.allocate(t)

	// Allocate + 40 sets (each deferred or armed adds another event)
	r.driver.SetAlarm(id, 1000)
	for i := 0; i < 40; i++ {
		r.clock.set(uint64(i))
		r.driver.SetAlarm(id, 2000+uint64(i))
	}

	var events [TraceRingSize]TraceEvent
	n := r.driver.DrainTrace(events[:])
	if n != TraceRingSize {
		t.Fatalf("Expected a full ring of %d, got %d", TraceRingSize, n)
	}
	if r.driver.TraceDropped() == 0 {
		t.Error("Expected dropped events after overflow")
	}

	last := events[n-1]
	if last.Kind != TraceArmed || last.Value != 2039-39 {
		t.Errorf("Expected newest event to be the last arm, got %s", last)
	}
	for i := 1; i < n; i++ {
		if events[i].Now < events[i-1].Now {
			t.Errorf("Events out of order at %d: %d after %d", i, events[i].Now, events[i-1].Now)
		}
	}
}

func TestTraceEventText(t *testing.T) {
	e := TraceEvent{Kind: TraceFired, Alarm: 1, Hart: 3, Now: 1234567890123, Value: 0}
	want := "[TIMER] FIRED alarm=1 hart=3 now=1234567890123 value=0"
	if got := e.String(); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestTraceWireRoundTrip(t *testing.T) {
	events := []TraceEvent{
		{Kind: TraceAllocate, Alarm: 0, Hart: 1, Now: 0},
		{Kind: TraceArmed, Alarm: 3, Hart: 4, Now: 1 << 40, Value: 600},
		{Kind: TraceStopped, Alarm: NoAlarm, Hart: 0, Now: 99, Value: 0},
		{Kind: TraceSet, Alarm: 2, Hart: 2, Now: 5, Value: Sentinel},
	}

	for _, want := range events {
		output := protocol.NewScratchOutput()
		EncodeTrace(output, want)
		data := output.Result()

		got, err := DecodeTrace(&data)
		if err != nil {
			t.Errorf("DecodeTrace(%s) failed: %v", want, err)
			continue
		}
		if got != want {
			t.Errorf("Round trip mismatch: expected %s, got %s", want, got)
		}
	}
}

func TestDecodeTraceUnknownKind(t *testing.T) {
	output := protocol.NewScratchOutput()
	protocol.EncodeVLQUint(output, 99)
	data := output.Result()
	if _, err := DecodeTrace(&data); err != ErrTraceKind {
		t.Errorf("Expected ErrTraceKind, got %v", err)
	}
}

func TestTraceStreamerFrames(t *testing.T) {
	r := newTestRig(t, 10)
	r.driver.SetTracing(true)
	streamer := NewTraceStreamer(r.driver)

	ids := []AlarmID{r.allocate(t), r.allocate(t), r.allocate(t), r.allocate(t)}
	for i, id := range ids {
		r.driver.SetAlarm(id, uint64(1000*(len(ids)-i)))
	}

	var decoded []TraceEvent
	dec := protocol.NewDecoder(func(seq uint8, payload []byte) {
		e, err := DecodeTrace(&payload)
		if err != nil {
			t.Errorf("Frame %d: %v", seq, err)
			return
		}
		decoded = append(decoded, e)
	})

	for {
		wire := streamer.Flush()
		if len(wire) == 0 {
			break
		}
		dec.Write(wire)
	}

	// 4 allocations, then each set records SET and ARMED
	if len(decoded) != 12 {
		t.Fatalf("Expected 12 events, got %d", len(decoded))
	}
	if decoded[0].Kind != TraceAllocate || decoded[11].Kind != TraceArmed || decoded[11].Alarm != ids[3] {
		t.Errorf("Unexpected first/last events: %s / %s", decoded[0], decoded[11])
	}
	if stats := dec.Stats(); stats.Lost != 0 || stats.Resyncs != 0 {
		t.Errorf("Unexpected link errors: %+v", stats)
	}
}
