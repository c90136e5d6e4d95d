package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/joeycumines/termrig/internal/rig"
)

// Settings is the typed view of a Config for one command.
type Settings struct {
	Target      string
	Args        []string
	Dir         string
	Cols        int
	Rows        int
	Timeout     time.Duration
	DebugOutput bool
	LogLevel    slog.Level
	LogFormat   string
	Iterations  int
	Env         []string
}

// ResolveSettings resolves every known option for command ("" for global)
// against the schema defaults and environment overrides.
func ResolveSettings(c *Config, command string) (*Settings, error) {
	s := DefaultSchema()
	get := func(key string) string { return s.Resolve(c, command, key) }

	var (
		out = &Settings{
			Target:    get("target"),
			Dir:       get("dir"),
			LogFormat: get("log.format"),
			Env:       append([]string(nil), c.Env...),
		}
		err error
	)

	if out.Args, err = shellquote.Split(get("args")); err != nil {
		return nil, fmt.Errorf("invalid args: %w", err)
	}
	if out.Cols, err = positiveInt("cols", get("cols")); err != nil {
		return nil, err
	}
	if out.Rows, err = positiveInt("rows", get("rows")); err != nil {
		return nil, err
	}
	if v := get("iterations"); v != "" {
		if out.Iterations, err = strconv.Atoi(v); err != nil || out.Iterations < 0 {
			return nil, fmt.Errorf("invalid iterations %q", v)
		}
	}
	if out.Timeout, err = time.ParseDuration(get("timeout")); err != nil || out.Timeout <= 0 {
		return nil, fmt.Errorf("invalid timeout %q", get("timeout"))
	}
	// the environment toggle is on for "true" only, and never an error
	if v, ok := os.LookupEnv(rig.EnvDebugOutput); ok {
		out.DebugOutput = v == "true"
	} else if out.DebugOutput, err = parseBool(get("debug-output")); err != nil {
		return nil, fmt.Errorf("invalid debug-output: %w", err)
	}
	if out.LogLevel, err = ParseLogLevel(get("log.level")); err != nil {
		return nil, err
	}
	switch out.LogFormat {
	case "auto", "text", "json":
	default:
		return nil, fmt.Errorf("invalid log.format %q (want auto, text or json)", out.LogFormat)
	}

	return out, nil
}

// ParseLogLevel parses debug, info, warn or error (case-insensitive).
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// RigOptions converts the settings into options for rig.New. Target must
// be set.
func (s *Settings) RigOptions(logger *slog.Logger) []rig.Option {
	opts := []rig.Option{
		rig.WithCommand(s.Target, s.Args...),
		rig.WithSize(s.Cols, s.Rows),
		rig.WithDefaultTimeout(s.Timeout),
		rig.WithDebugOutput(s.DebugOutput),
		rig.WithEnv(s.Env...),
	}
	if s.Dir != "" {
		opts = append(opts, rig.WithDir(s.Dir))
	}
	if logger != nil {
		opts = append(opts, rig.WithLogger(logger))
	}
	return opts
}

func positiveInt(name, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", name, value)
	}
	return n, nil
}
