//go:build mpfs

package main

import "hartclock/core"

// Libero MSS clock configuration of the reference design
const (
	liberoAPBAHBClkHz    = 150000000
	liberoRTCToggleClkHz = 1000000
)

func boardConfig() core.Config {
	cfg := core.DefaultConfig()
	cfg.BusClockHz = liberoAPBAHBClkHz
	cfg.TimerClockHz = liberoRTCToggleClkHz
	return cfg
}
