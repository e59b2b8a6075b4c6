package sim

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/joeycumines/logiface"
	"github.com/spf13/afero"

	"hartclock/core"
)

// Step operations
const (
	OpAllocate = "allocate" // Claim the next alarm on Hart
	OpCallback = "callback" // Record fires of Alarm under Label
	OpSet      = "set"      // SetAlarm(Alarm, At), checking Expect when given
	OpAdvance  = "advance"  // Advance simulated time by Ticks
	OpExpect   = "expect"   // Check Fired, Armed, Load and Deadline when given
)

// ArmedNone is the Armed expectation meaning the timer is stopped
const ArmedNone = -1

var ErrUnknownOp = errors.New("unknown scenario step")

// Scenario is a scripted sequence of driver calls and checks
type Scenario struct {
	Name         string `json:"name"`
	BusClockHz   uint64 `json:"bus_clock_hz"`
	TimerClockHz uint64 `json:"timer_clock_hz"`
	Start        uint64 `json:"start"`
	Steps        []Step `json:"steps"`
}

// Step is one scenario instruction. Pointer fields are optional checks.
type Step struct {
	Op    string       `json:"op"`
	Alarm core.AlarmID `json:"alarm"`
	Hart  core.Hart    `json:"hart"`
	Label string       `json:"label,omitempty"`
	At    uint64       `json:"at"`
	Ticks uint64       `json:"ticks"`

	Expect   *bool   `json:"expect,omitempty"`
	Fired    *int    `json:"fired,omitempty"`
	Armed    *int    `json:"armed,omitempty"`
	Load     *uint64 `json:"load,omitempty"`
	Deadline *uint64 `json:"deadline,omitempty"`
}

// Fire is one callback invocation seen by the scenario runner
type Fire struct {
	Alarm core.AlarmID `json:"alarm"`
	Label string       `json:"label"`
	Hart  core.Hart    `json:"hart"`
	At    uint64       `json:"at"`
}

// Report is the outcome of running a scenario
type Report struct {
	Name       string     `json:"name"`
	Fires      []Fire     `json:"fires"`
	Loads      []Load     `json:"loads"`
	Interrupts int        `json:"interrupts"`
	Stats      core.Stats `json:"stats"`
	Failures   []string   `json:"failures,omitempty"`
}

// Passed reports whether every check held
func (r *Report) Passed() bool {
	return len(r.Failures) == 0
}

// Config returns the driver configuration of the scenario
func (s *Scenario) Config() core.Config {
	cfg := core.DefaultConfig()
	cfg.BusClockHz = s.BusClockHz
	cfg.TimerClockHz = s.TimerClockHz
	return cfg
}

// ParseScenario decodes a JSON scenario
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	applyDefaults(&s)

	for i, step := range s.Steps {
		switch step.Op {
		case OpAllocate, OpCallback, OpSet, OpAdvance, OpExpect:
		default:
			return nil, fmt.Errorf("step %d: %w %q", i, ErrUnknownOp, step.Op)
		}
	}
	return &s, nil
}

// LoadScenario reads a JSON scenario file from fs
func LoadScenario(fs afero.Fs, path string) (*Scenario, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario %s: %w", path, err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scenario %s: %w", path, err)
	}
	return s, nil
}

func applyDefaults(s *Scenario) {
	if s.Name == "" {
		s.Name = "scenario"
	}
	if s.BusClockHz == 0 {
		s.BusClockHz = core.DefaultBusClockHz
	}
	if s.TimerClockHz == 0 {
		s.TimerClockHz = core.DefaultTimerClockHz
	}
}

type runner struct {
	scenario *Scenario
	machine  *Machine
	report   *Report
	log      *logiface.Logger[logiface.Event]
	fired    map[core.AlarmID]int
}

// Run executes the scenario on a fresh machine. Failed checks are
// collected in the report; the error is reserved for steps that cannot run.
func Run(s *Scenario, opts ...Option) (*Report, error) {
	m, err := NewMachine(s.Config(), opts...)
	if err != nil {
		return nil, err
	}
	m.Clock.Set(s.Start)

	r := &runner{
		scenario: s,
		machine:  m,
		report:   &Report{Name: s.Name},
		log:      m.log,
		fired:    make(map[core.AlarmID]int),
	}
	for i, step := range s.Steps {
		if err := r.step(i, step); err != nil {
			return r.report, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
	}

	r.report.Loads = m.Timer.Loads()
	r.report.Interrupts = m.Interrupts()
	r.report.Stats = m.Driver.Stats()

	r.log.Info().
		Str("scenario", s.Name).
		Int("fires", len(r.report.Fires)).
		Int("interrupts", r.report.Interrupts).
		Int("failures", len(r.report.Failures)).
		Log("scenario complete")
	return r.report, nil
}

func (r *runner) failf(i int, format string, args ...any) {
	msg := fmt.Sprintf("step %d: ", i) + fmt.Sprintf(format, args...)
	r.report.Failures = append(r.report.Failures, msg)
	r.log.Warning().Str("scenario", r.scenario.Name).Log(msg)
}

func (r *runner) step(i int, step Step) error {
	d := r.machine.Driver

	switch step.Op {
	case OpAllocate:
		r.machine.Harts.Set(step.Hart)
		id, err := d.AllocateAlarm()
		if err != nil {
			return err
		}
		r.log.Debug().Int("alarm", int(id)).Int("hart", int(step.Hart)).Log("allocated")

	case OpCallback:
		label := step.Label
		if label == "" {
			label = fmt.Sprintf("alarm%d", step.Alarm)
		}
		id := step.Alarm
		return d.SetAlarmCallback(id, r.record, Fire{Alarm: id, Label: label})

	case OpSet:
		if _, err := d.Deadline(step.Alarm); err != nil {
			return err
		}
		ok := d.SetAlarm(step.Alarm, step.At)
		if step.Expect != nil && ok != *step.Expect {
			r.failf(i, "SetAlarm(%d, %d) returned %v, expected %v", step.Alarm, step.At, ok, *step.Expect)
		}

	case OpAdvance:
		return r.machine.Advance(step.Ticks)

	case OpExpect:
		return r.expect(i, step)
	}
	return nil
}

// record is the callback installed by OpCallback. It runs inside the
// driver's critical section and must not call back into the driver.
func (r *runner) record(ctx any) {
	fire := ctx.(Fire)
	fire.Hart = r.machine.Harts.HartID()
	fire.At = r.machine.Clock.Now()
	r.fired[fire.Alarm]++
	r.report.Fires = append(r.report.Fires, fire)
}

func (r *runner) expect(i int, step Step) error {
	d := r.machine.Driver

	if step.Fired != nil {
		if got := r.fired[step.Alarm]; got != *step.Fired {
			r.failf(i, "alarm %d fired %d times, expected %d", step.Alarm, got, *step.Fired)
		}
	}

	if step.Armed != nil {
		got := ArmedNone
		if id, ok := d.Armed(); ok {
			got = int(id)
		}
		if got != *step.Armed {
			r.failf(i, "armed alarm is %d, expected %d", got, *step.Armed)
		}
	}

	if step.Load != nil {
		load, ok := r.machine.Timer.LastLoad()
		if !ok {
			r.failf(i, "no countdown loaded, expected %d", *step.Load)
		} else if load.Value() != *step.Load {
			r.failf(i, "last countdown load %d, expected %d", load.Value(), *step.Load)
		}
	}

	if step.Deadline != nil {
		deadline, err := d.Deadline(step.Alarm)
		if err != nil {
			return err
		}
		if deadline != *step.Deadline {
			r.failf(i, "alarm %d deadline %d, expected %d", step.Alarm, deadline, *step.Deadline)
		}
	}
	return nil
}
