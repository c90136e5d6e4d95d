// Package scenario describes terminal test cases as ordered scripts of key
// presses and output waits, and runs them against a live target such as a
// [rig.Rig].
package scenario

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Driver is the input/output surface a Script runs against.
type Driver interface {
	PressKey(key string) error
	ClearInput() error
	WaitForOutput(ctx context.Context, substring string, timeout time.Duration) (string, error)
}

// Target is a Driver that owns the lifecycle of the process behind it.
type Target interface {
	Driver
	Spawn() error
	Cleanup() error
}

// Action defines the type of action for a step.
type Action int

const (
	ActionPressKey Action = iota
	ActionType
	ActionClearInput
	ActionWaitForOutput
	ActionStartTimer
	ActionStopTimer
)

func (a Action) String() string {
	switch a {
	case ActionPressKey:
		return "press"
	case ActionType:
		return "type"
	case ActionClearInput:
		return "clear"
	case ActionWaitForOutput:
		return "wait"
	case ActionStartTimer:
		return "timer-start"
	case ActionStopTimer:
		return "timer-stop"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Step represents a single step of a script. Input holds the key, the text
// or the timer label; Expected holds the substring of a wait.
type Step struct {
	Name     string
	Action   Action
	Input    string
	Expected string
	Timeout  time.Duration
}

// Script is a named, ordered list of steps. Builder methods append and
// return the script for chaining.
type Script struct {
	Name   string
	steps  []Step
	logger *slog.Logger
}

// New creates an empty script.
func New(name string) *Script {
	return &Script{Name: name}
}

// Steps returns a copy of the steps.
func (s *Script) Steps() []Step {
	return append([]Step(nil), s.steps...)
}

// WithLogger sets the logger used by Run. Defaults to slog.Default().
func (s *Script) WithLogger(logger *slog.Logger) *Script {
	s.logger = logger
	return s
}

// Add appends raw steps.
func (s *Script) Add(steps ...Step) *Script {
	s.steps = append(s.steps, steps...)
	return s
}

// PressKey adds a step sending one key.
func (s *Script) PressKey(key string) *Script {
	return s.Add(Step{Name: "press " + quote(key), Action: ActionPressKey, Input: key})
}

// Type adds a step sending text one character at a time.
func (s *Script) Type(text string) *Script {
	return s.Add(Step{Name: "type " + quote(text), Action: ActionType, Input: text})
}

// ClearInput adds a step clearing the current input line.
func (s *Script) ClearInput() *Script {
	return s.Add(Step{Name: "clear input", Action: ActionClearInput})
}

// WaitForOutput adds a step waiting for a substring. A zero timeout uses
// the driver's default.
func (s *Script) WaitForOutput(expected string, timeout time.Duration) *Script {
	return s.Add(Step{Name: "wait for " + quote(expected), Action: ActionWaitForOutput, Expected: expected, Timeout: timeout})
}

// StartTimer adds a step starting the named timer.
func (s *Script) StartTimer(label string) *Script {
	return s.Add(Step{Name: "start timer " + label, Action: ActionStartTimer, Input: label})
}

// StopTimer adds a step stopping the named timer and recording its result.
func (s *Script) StopTimer(label string) *Script {
	return s.Add(Step{Name: "stop timer " + label, Action: ActionStopTimer, Input: label})
}

// Repeat calls fn n times with the 1-based iteration and the script.
func (s *Script) Repeat(n int, fn func(i int, s *Script)) *Script {
	for i := 1; i <= n; i++ {
		fn(i, s)
	}
	return s
}

// Run executes the steps in order against d. It stops at the first failing
// step; the returned report covers the steps that ran.
func (s *Script) Run(ctx context.Context, d Driver) (*Report, error) {
	logger := s.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("script", s.Name)

	report := &Report{Script: s.Name}
	timers := make(map[string]time.Time)
	start := time.Now()
	defer func() { report.Elapsed = time.Since(start) }()

	for i, step := range s.steps {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("step %d (%s) failed: %w", i+1, step.Name, err)
		}
		stepStart := time.Now()
		err := s.executeStep(ctx, d, step, timers, report)
		report.Steps = append(report.Steps, StepResult{Step: step, Duration: time.Since(stepStart), Err: err})
		if err != nil {
			logger.Debug("step failed", "step", i+1, "name", step.Name, "error", err)
			return report, fmt.Errorf("step %d (%s) failed: %w", i+1, step.Name, err)
		}
		logger.Debug("step done", "step", i+1, "name", step.Name)
	}
	return report, nil
}

func (s *Script) executeStep(ctx context.Context, d Driver, step Step, timers map[string]time.Time, report *Report) error {
	switch step.Action {
	case ActionPressKey:
		return d.PressKey(step.Input)

	case ActionType:
		for _, r := range step.Input {
			if err := d.PressKey(string(r)); err != nil {
				return err
			}
		}
		return nil

	case ActionClearInput:
		return d.ClearInput()

	case ActionWaitForOutput:
		_, err := d.WaitForOutput(ctx, step.Expected, step.Timeout)
		return err

	case ActionStartTimer:
		if _, ok := timers[step.Input]; ok {
			return fmt.Errorf("timer %q already started", step.Input)
		}
		timers[step.Input] = time.Now()
		return nil

	case ActionStopTimer:
		started, ok := timers[step.Input]
		if !ok {
			return fmt.Errorf("timer %q not started", step.Input)
		}
		delete(timers, step.Input)
		report.Timers = append(report.Timers, Timer{Label: step.Input, Elapsed: time.Since(started)})
		return nil

	default:
		return fmt.Errorf("unknown action: %v", step.Action)
	}
}

// Execute spawns t, runs the script, and cleans t up on every path.
func Execute(ctx context.Context, t Target, s *Script) (*Report, error) {
	if err := t.Spawn(); err != nil {
		return nil, fmt.Errorf("failed to spawn: %w", err)
	}
	report, err := s.Run(ctx, t)
	if cerr := t.Cleanup(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("failed to clean up: %w", cerr))
	}
	return report, err
}

func quote(s string) string {
	return fmt.Sprintf("%q", s)
}
