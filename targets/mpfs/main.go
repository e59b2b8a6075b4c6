//go:build mpfs

package main

import (
	"sync/atomic"

	"hartclock/core"
)

var (
	driver   *core.TimeDriver
	streamer *core.TraceStreamer
	timer    = &tim64{plic: &plic{}}

	heartbeats atomic.Uint32
)

const heartbeatMicros = 500000

// PLIC_timer1_IRQHandler is called by the HAL's external interrupt
// dispatcher. 0 keeps the source enabled, 1 disables it.
//
//export PLIC_timer1_IRQHandler
func PLIC_timer1_IRQHandler() uint8 {
	if driver == nil {
		timer.ClearIRQ()
		return 1
	}
	if driver.HandleInterrupt() == core.IRQKeepEnabled {
		return 0
	}
	return 1
}

func heartbeat(ctx any) {
	heartbeats.Add(1)
}

func main() {
	d, err := core.NewTimeDriver(core.Hardware{
		Clock: mtimeClock{},
		Timer: timer,
		PLIC:  timer.plic,
		Harts: mhartid{},
	}, boardConfig())
	if err != nil {
		for {
		}
	}
	d.SetTracing(true)
	d.Init()
	driver = d
	streamer = core.NewTraceStreamer(d)

	id, err := d.AllocateAlarm()
	if err != nil {
		for {
		}
	}
	d.SetAlarmCallback(id, heartbeat, nil)

	out := traceUART{}
	var seen uint32
	d.SetAlarm(id, d.After(heartbeatMicros))
	for {
		if n := heartbeats.Load(); n != seen {
			seen = n
			if !d.SetAlarm(id, d.After(heartbeatMicros)) {
				heartbeat(nil)
			}
		}
		if frames := streamer.Flush(); len(frames) > 0 {
			out.Write(frames)
		}
	}
}
