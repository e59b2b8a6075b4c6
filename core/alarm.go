package core

import (
	"errors"
	"math"
)

const (
	// AlarmCount is the number of software alarms multiplexed onto the timer
	AlarmCount = 4

	// Sentinel is the deadline of an alarm with no pending work
	Sentinel uint64 = math.MaxUint64
)

var (
	ErrAlarmsExhausted = errors.New("all alarms allocated")
	ErrInvalidAlarm    = errors.New("alarm not allocated")
)

// AlarmID identifies an allocated alarm slot
type AlarmID uint8

// NoAlarm marks the timer as not counting toward any alarm
const NoAlarm AlarmID = 0xFF

// Callback is invoked with the context registered next to it when the
// alarm fires. It runs inside the driver's critical section: it must be
// short, must not block and must not call back into the driver.
type Callback func(ctx any)

// alarmSlot is one software alarm. Only accessed inside the critical section.
type alarmSlot struct {
	deadline uint64
	hart     Hart
	fn       Callback
	ctx      any
}

func (s *alarmSlot) pending() bool {
	return s.deadline != Sentinel
}

func (s *alarmSlot) fire() {
	s.deadline = Sentinel
	if s.fn != nil {
		s.fn(s.ctx)
	}
}

// alarmTable is the fixed-capacity slot array
type alarmTable [AlarmCount]alarmSlot

func (t *alarmTable) reset() {
	for i := range t {
		t[i].deadline = Sentinel
	}
}

// nearest returns the pending slot with the smallest deadline; ties go to
// the lowest id
func (t *alarmTable) nearest() (AlarmID, bool) {
	found := false
	var best AlarmID
	for i := range t {
		if !t[i].pending() {
			continue
		}
		if !found || t[i].deadline < t[best].deadline {
			best = AlarmID(i)
			found = true
		}
	}
	return best, found
}
