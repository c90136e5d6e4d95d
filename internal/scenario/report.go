package scenario

import (
	"fmt"
	"io"
	"time"
)

// Report is the outcome of a Run.
type Report struct {
	Script  string
	Steps   []StepResult
	Timers  []Timer
	Elapsed time.Duration
}

// StepResult records one executed step.
type StepResult struct {
	Step     Step
	Duration time.Duration
	Err      error
}

// Timer is a stopped named timer.
type Timer struct {
	Label   string
	Elapsed time.Duration
}

// String formats the timer as "label: 1234.567ms".
func (t Timer) String() string {
	return fmt.Sprintf("%s: %.3fms", t.Label, float64(t.Elapsed)/float64(time.Millisecond))
}

// Timer returns the first stopped timer with the given label.
func (r *Report) Timer(label string) (Timer, bool) {
	for _, t := range r.Timers {
		if t.Label == label {
			return t, true
		}
	}
	return Timer{}, false
}

// WriteTo writes one line per stopped timer.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, t := range r.Timers {
		n, err := fmt.Fprintln(w, t.String())
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
