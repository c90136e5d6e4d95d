package rig

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotSpawned is returned by input operations invoked while no child
	// process is running.
	ErrNotSpawned = errors.New("process not spawned")

	// ErrAlreadySpawned is returned by Spawn when the Rig already owns a live
	// child process.
	ErrAlreadySpawned = errors.New("process already spawned")

	// ErrCleanedUp is the reason given to waits still pending when Cleanup
	// tears the child down.
	ErrCleanedUp = errors.New("rig cleaned up while waiting for output")
)

// TimeoutError reports a WaitForOutput call whose substring did not appear
// in time.
type TimeoutError struct {
	Substring string
	Timeout   time.Duration
	Elapsed   time.Duration
	OutputLen int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout waiting for output: %q (timeout %v, waited %v, output length: %d)",
		e.Substring, e.Timeout, e.Elapsed.Round(time.Millisecond), e.OutputLen)
}

// ExitStatus describes how the child process terminated.
type ExitStatus struct {
	Code   int
	Signal string
}

// Abnormal reports whether the process exited with a non-zero code or was
// killed by a signal.
func (s ExitStatus) Abnormal() bool {
	return s.Code != 0 || s.Signal != ""
}

func (s ExitStatus) String() string {
	if s.Signal != "" {
		return fmt.Sprintf("code %d, signal %s", s.Code, s.Signal)
	}
	return fmt.Sprintf("code %d", s.Code)
}
