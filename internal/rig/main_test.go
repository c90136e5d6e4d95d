//go:build unix

package rig

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"golang.org/x/term"
)

// TestMain doubles as the helper process: tests re-exec the test binary
// with GO_TEST_MODE=helper and the helper command after "--".
func TestMain(m *testing.M) {
	if os.Getenv("GO_TEST_MODE") == "helper" {
		os.Exit(runHelper(helperArgs()))
	}
	os.Exit(m.Run())
}

func helperArgs() []string {
	for i, arg := range os.Args {
		if arg == "--" {
			return os.Args[i+1:]
		}
	}
	return nil
}

func runHelper(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "helper: no command")
		return 2
	}

	switch cmd, rest := args[0], args[1:]; cmd {
	case "echo":
		for _, s := range rest {
			fmt.Println(s)
		}
		// give the reader a chance to drain before the slave closes
		time.Sleep(100 * time.Millisecond)
		return 0

	case "ansi":
		fmt.Print("\x1b[31mHello Red\x1b[0m\r\n")
		time.Sleep(100 * time.Millisecond)
		return 0

	case "interactive":
		fmt.Println("Interactive mode ready")
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "quit" {
				return 0
			}
			fmt.Printf("ECHO: %s\n", line)
		}
		return 0

	case "keys":
		state, err := term.MakeRaw(int(os.Stdin.Fd()))
		if err != nil {
			fmt.Fprintf(os.Stderr, "helper: %v\n", err)
			return 1
		}
		defer term.Restore(int(os.Stdin.Fd()), state)
		fmt.Print("keys ready\r\n")
		buf := make([]byte, 1)
		for {
			if _, err := os.Stdin.Read(buf); err != nil {
				return 0
			}
			if buf[0] == 'q' {
				return 0
			}
			fmt.Printf("key %02x\r\n", buf[0])
		}

	case "exit":
		code := 0
		if len(rest) > 0 {
			code, _ = strconv.Atoi(rest[0])
		}
		fmt.Printf("exiting with %d\n", code)
		time.Sleep(100 * time.Millisecond)
		return code

	case "wait":
		d := 5 * time.Second
		if len(rest) > 0 {
			if v, err := time.ParseDuration(rest[0]); err == nil {
				d = v
			}
		}
		fmt.Println("waiting")
		time.Sleep(d)
		return 0

	default:
		fmt.Fprintf(os.Stderr, "helper: unknown command %q\n", cmd)
		return 2
	}
}
