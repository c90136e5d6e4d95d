package rig

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"
)

// DefaultWaitTimeout is used by WaitForOutput when no timeout is given.
const DefaultWaitTimeout = 5 * time.Second

// EnvDebugOutput enables WithDebugOutput by default when set to "true".
// Any other value leaves it off.
const EnvDebugOutput = "DEBUG_OUTPUT"

// Option configures Rig creation.
type Option interface {
	applyOption(*rigConfig) error
}

// optionFunc is the concrete implementation of Option.
type optionFunc func(*rigConfig) error

func (f optionFunc) applyOption(c *rigConfig) error { return f(c) }

// rigConfig holds the internal configuration during construction.
type rigConfig struct {
	command        string
	args           []string
	env            []string
	dir            string
	cols           int
	rows           int
	defaultTimeout time.Duration
	logger         *slog.Logger
	debugOutput    bool
}

// defaultConfig returns a rigConfig with default values.
func defaultConfig() *rigConfig {
	return &rigConfig{
		cols:           80,
		rows:           24,
		defaultTimeout: DefaultWaitTimeout,
		debugOutput:    os.Getenv(EnvDebugOutput) == "true",
	}
}

// environ returns the environment of the child process. Later entries win,
// so user overrides are appended last.
func (c *rigConfig) environ() []string {
	env := append(os.Environ(),
		"FORCE_COLOR=0",
		"TERM=xterm-256color",
		fmt.Sprintf("COLUMNS=%d", c.cols),
		fmt.Sprintf("LINES=%d", c.rows),
	)
	return append(env, c.env...)
}

// WithCommand sets the program to launch and its arguments.
// This is required.
func WithCommand(path string, args ...string) Option {
	return optionFunc(func(c *rigConfig) error {
		if path == "" {
			return fmt.Errorf("command path cannot be empty")
		}
		c.command = path
		c.args = append([]string(nil), args...)
		return nil
	})
}

// WithSize sets the terminal dimensions. Default is 80x24.
func WithSize(cols, rows int) Option {
	return optionFunc(func(c *rigConfig) error {
		if cols <= 0 || rows <= 0 {
			return fmt.Errorf("terminal size must be positive, got %dx%d", cols, rows)
		}
		if cols > math.MaxUint16 || rows > math.MaxUint16 {
			return fmt.Errorf("terminal size must not exceed %d, got %dx%d", math.MaxUint16, cols, rows)
		}
		c.cols = cols
		c.rows = rows
		return nil
	})
}

// WithEnv appends KEY=VALUE entries to the child environment, after the
// defaults (FORCE_COLOR=0, TERM=xterm-256color).
func WithEnv(env ...string) Option {
	return optionFunc(func(c *rigConfig) error {
		c.env = append(c.env, env...)
		return nil
	})
}

// WithDir sets the working directory of the child process.
func WithDir(dir string) Option {
	return optionFunc(func(c *rigConfig) error {
		c.dir = dir
		return nil
	})
}

// WithDefaultTimeout sets the timeout WaitForOutput uses when called with a
// non-positive timeout.
func WithDefaultTimeout(d time.Duration) Option {
	return optionFunc(func(c *rigConfig) error {
		if d <= 0 {
			return fmt.Errorf("default timeout must be positive, got %v", d)
		}
		c.defaultTimeout = d
		return nil
	})
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return optionFunc(func(c *rigConfig) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		c.logger = logger
		return nil
	})
}

// WithDebugOutput toggles logging of every raw output chunk. Defaults to
// true when DEBUG_OUTPUT=true is set.
func WithDebugOutput(enabled bool) Option {
	return optionFunc(func(c *rigConfig) error {
		c.debugOutput = enabled
		return nil
	})
}
