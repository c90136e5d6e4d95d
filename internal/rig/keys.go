package rig

// Key values accepted by PressKey. KeyEscape is the only symbolic name;
// the rest are the literal byte sequences a terminal would send.
const (
	KeyEscape = "escape"

	Enter     = "\r"
	Tab       = "\t"
	Backspace = "\x7f"
	CtrlC     = "\x03"
	CtrlD     = "\x04"
	CtrlZ     = "\x1a"
	Up        = "\x1b[A"
	Down      = "\x1b[B"
	Right     = "\x1b[C"
	Left      = "\x1b[D"

	// ClearLine kills the current input line, like Ctrl+U in a shell.
	ClearLine = "\x15"
)

const escapeByte = "\x1b"

// Sequence returns the bytes written to the terminal for key.
func Sequence(key string) string {
	if key == KeyEscape {
		return escapeByte
	}
	return key
}
