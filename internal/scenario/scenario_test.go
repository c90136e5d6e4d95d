package scenario

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/termrig/internal/rig"
)

// fakeDriver records calls and answers waits from a scripted output.
type fakeDriver struct {
	mu      sync.Mutex
	calls   []string
	output  string
	waitErr map[string]error

	spawnErr   error
	cleanupErr error
	spawned    int
	cleaned    int
}

func (f *fakeDriver) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeDriver) PressKey(key string) error {
	f.record("press:" + key)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.output += key
	return nil
}

func (f *fakeDriver) ClearInput() error {
	f.record("clear")
	return nil
}

func (f *fakeDriver) WaitForOutput(ctx context.Context, substring string, timeout time.Duration) (string, error) {
	f.record("wait:" + substring + "@" + timeout.String())
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.waitErr[substring]; err != nil {
		return f.output, err
	}
	return f.output, nil
}

func (f *fakeDriver) Spawn() error {
	f.spawned++
	return f.spawnErr
}

func (f *fakeDriver) Cleanup() error {
	f.cleaned++
	return f.cleanupErr
}

func TestScript_Builder(t *testing.T) {
	s := New("demo").
		PressKey("!").
		Type("ab").
		ClearInput().
		WaitForOutput("x", time.Second).
		StartTimer("t").
		StopTimer("t")

	steps := s.Steps()
	require.Len(t, steps, 6)

	assert.Equal(t, Step{Name: `press "!"`, Action: ActionPressKey, Input: "!"}, steps[0])
	assert.Equal(t, Step{Name: `type "ab"`, Action: ActionType, Input: "ab"}, steps[1])
	assert.Equal(t, ActionClearInput, steps[2].Action)
	assert.Equal(t, Step{Name: `wait for "x"`, Action: ActionWaitForOutput, Expected: "x", Timeout: time.Second}, steps[3])
	assert.Equal(t, ActionStartTimer, steps[4].Action)
	assert.Equal(t, ActionStopTimer, steps[5].Action)

	// Steps returns a copy
	steps[0].Input = "changed"
	assert.Equal(t, "!", s.Steps()[0].Input)
}

func TestScript_Repeat(t *testing.T) {
	var seen []int
	s := New("repeat").Repeat(3, func(i int, s *Script) {
		seen = append(seen, i)
		s.PressKey("k")
	})
	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.Len(t, s.Steps(), 3)

	assert.Empty(t, New("none").Repeat(0, func(int, *Script) { t.Fatal("called") }).Steps())
}

func TestScript_Run(t *testing.T) {
	d := &fakeDriver{}
	s := New("run").
		PressKey("!").
		Type("hi").
		ClearInput().
		WaitForOutput("hi", 200*time.Millisecond).
		StartTimer("t").
		StopTimer("t")

	report, err := s.Run(context.Background(), d)
	require.NoError(t, err)

	assert.Equal(t, []string{"press:!", "press:h", "press:i", "clear", "wait:hi@200ms"}, d.calls)
	assert.Equal(t, "run", report.Script)
	assert.Len(t, report.Steps, 6)
	for _, r := range report.Steps {
		assert.NoError(t, r.Err)
	}

	timer, ok := report.Timer("t")
	require.True(t, ok)
	assert.Equal(t, "t", timer.Label)
	assert.GreaterOrEqual(t, timer.Elapsed, time.Duration(0))
	assert.GreaterOrEqual(t, report.Elapsed, timer.Elapsed)

	_, ok = report.Timer("missing")
	assert.False(t, ok)
}

func TestScript_Run_TypeIsPerRune(t *testing.T) {
	d := &fakeDriver{}
	_, err := New("runes").Type(`echo "│"`).Run(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, []string{"press:e", "press:c", "press:h", "press:o", "press: ", `press:"`, "press:│", `press:"`}, d.calls)
}

func TestScript_Run_StopsAtFirstFailure(t *testing.T) {
	timeoutErr := &rig.TimeoutError{Substring: "never", Timeout: 50 * time.Millisecond}
	d := &fakeDriver{waitErr: map[string]error{"never": timeoutErr}}

	report, err := New("fail").
		PressKey("a").
		WaitForOutput("never", 50*time.Millisecond).
		PressKey("b").
		Run(context.Background(), d)

	require.Error(t, err)
	assert.Contains(t, err.Error(), `step 2 (wait for "never") failed:`)

	var te *rig.TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "never", te.Substring)

	// no retries and no further steps
	assert.Equal(t, []string{"press:a", "wait:never@50ms"}, d.calls)
	require.Len(t, report.Steps, 2)
	assert.ErrorIs(t, report.Steps[1].Err, timeoutErr)
}

func TestScript_Run_Timers(t *testing.T) {
	t.Run("stop without start", func(t *testing.T) {
		_, err := New("t").StopTimer("x").Run(context.Background(), &fakeDriver{})
		assert.ErrorContains(t, err, `timer "x" not started`)
	})

	t.Run("double start", func(t *testing.T) {
		_, err := New("t").StartTimer("x").StartTimer("x").Run(context.Background(), &fakeDriver{})
		assert.ErrorContains(t, err, `timer "x" already started`)
	})

	t.Run("restart after stop", func(t *testing.T) {
		report, err := New("t").
			StartTimer("x").StopTimer("x").
			StartTimer("x").StopTimer("x").
			Run(context.Background(), &fakeDriver{})
		require.NoError(t, err)
		assert.Len(t, report.Timers, 2)
	})
}

func TestScript_Run_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := &fakeDriver{}
	_, err := New("cancel").PressKey("a").Run(ctx, d)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, d.calls)
}

func TestScript_Run_UnknownAction(t *testing.T) {
	_, err := New("bad").Add(Step{Name: "odd", Action: Action(99)}).Run(context.Background(), &fakeDriver{})
	assert.ErrorContains(t, err, "unknown action: Action(99)")
}

func TestExecute(t *testing.T) {
	t.Run("success cleans up", func(t *testing.T) {
		d := &fakeDriver{}
		_, err := Execute(context.Background(), d, New("ok").PressKey("a"))
		require.NoError(t, err)
		assert.Equal(t, 1, d.spawned)
		assert.Equal(t, 1, d.cleaned)
	})

	t.Run("failure still cleans up", func(t *testing.T) {
		d := &fakeDriver{
			waitErr:    map[string]error{"x": errors.New("boom")},
			cleanupErr: errors.New("stuck"),
		}
		_, err := Execute(context.Background(), d, New("fail").WaitForOutput("x", 0))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
		assert.Contains(t, err.Error(), "failed to clean up: stuck")
		assert.Equal(t, 1, d.cleaned)
	})

	t.Run("spawn failure", func(t *testing.T) {
		d := &fakeDriver{spawnErr: errors.New("no such file")}
		_, err := Execute(context.Background(), d, New("spawn").PressKey("a"))
		assert.ErrorContains(t, err, "failed to spawn: no such file")
		assert.Empty(t, d.calls)
		assert.Equal(t, 0, d.cleaned)
	})
}

func TestShellModeProbe(t *testing.T) {
	s := ShellModeProbe(2)
	steps := s.Steps()

	require.NotEmpty(t, steps)
	assert.Equal(t, Step{Name: `wait for "YOLO mode"`, Action: ActionWaitForOutput, Expected: ReadyMarker, Timeout: 30 * time.Second}, steps[0])
	assert.Equal(t, ActionStartTimer, steps[1].Action)
	assert.Equal(t, ShellModeTimer, steps[1].Input)

	last := steps[len(steps)-1]
	assert.Equal(t, ActionStopTimer, last.Action)
	assert.Equal(t, ShellModeTimer, last.Input)

	// 7 steps per iteration between the timer steps
	iterations := steps[2 : len(steps)-1]
	require.Len(t, iterations, 14)
	for n, it := range [][]Step{iterations[:7], iterations[7:]} {
		assert.Equal(t, "!", it[0].Input)
		assert.Equal(t, Step{Name: `wait for "│"`, Action: ActionWaitForOutput, Expected: BoxMarker, Timeout: 500 * time.Millisecond}, it[1])
		assert.Equal(t, ActionType, it[2].Action)
		assert.Equal(t, `echo "test `+string(rune('1'+n))+`"`, it[2].Input)
		assert.Equal(t, rig.Enter, it[3].Input)
		assert.Equal(t, time.Second, it[4].Timeout)
		assert.Equal(t, rig.KeyEscape, it[5].Input)
		assert.Equal(t, 500*time.Millisecond, it[6].Timeout)
	}
}

func TestReport_WriteTo(t *testing.T) {
	r := &Report{Timers: []Timer{
		{Label: ShellModeTimer, Elapsed: 1234500 * time.Microsecond},
		{Label: "other", Elapsed: 2 * time.Millisecond},
	}}
	var buf bytes.Buffer
	n, err := r.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.Equal(t, "shell_mode_toggle_test: 1234.500ms\nother: 2.000ms\n", buf.String())
}

func TestAction_String(t *testing.T) {
	names := make([]string, 0, 6)
	for a := ActionPressKey; a <= ActionStopTimer; a++ {
		names = append(names, a.String())
	}
	assert.Equal(t, "press type clear wait timer-start timer-stop", strings.Join(names, " "))
}
