package scenario

import (
	"fmt"
	"time"

	"github.com/joeycumines/termrig/internal/rig"
)

const (
	// ReadyMarker is printed by the target once it accepts input.
	ReadyMarker = "YOLO mode"
	// BoxMarker is the vertical edge of the target's input box.
	BoxMarker = "│"
	// ShellModeTimer labels the timer wrapping all probe iterations.
	ShellModeTimer = "shell_mode_toggle_test"

	readyTimeout = 30 * time.Second
)

// ShellModeProbe measures how quickly the target enters shell mode, runs a
// command, and leaves shell mode again, iterations times.
func ShellModeProbe(iterations int) *Script {
	return New("shell mode toggle").
		WaitForOutput(ReadyMarker, readyTimeout).
		StartTimer(ShellModeTimer).
		Repeat(iterations, func(i int, s *Script) {
			s.PressKey("!").
				WaitForOutput(BoxMarker, 500*time.Millisecond).
				Type(fmt.Sprintf("echo \"test %d\"", i)).
				PressKey(rig.Enter).
				WaitForOutput(BoxMarker, time.Second).
				PressKey(rig.KeyEscape).
				WaitForOutput(BoxMarker, 500*time.Millisecond)
		}).
		StopTimer(ShellModeTimer)
}
