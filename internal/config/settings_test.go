package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSettings_Defaults(t *testing.T) {
	unsetenv(t, "DEBUG_OUTPUT")
	unsetenv(t, "TERMRIG_LOG_LEVEL")

	s, err := ResolveSettings(NewConfig(), "probe")
	require.NoError(t, err)

	assert.Equal(t, "", s.Target)
	assert.Equal(t, []string{"--yolo"}, s.Args)
	assert.Equal(t, 80, s.Cols)
	assert.Equal(t, 24, s.Rows)
	assert.Equal(t, 5*time.Second, s.Timeout)
	assert.False(t, s.DebugOutput)
	assert.Equal(t, slog.LevelInfo, s.LogLevel)
	assert.Equal(t, "auto", s.LogFormat)
	assert.Equal(t, 3, s.Iterations)

	s, err = ResolveSettings(NewConfig(), "")
	require.NoError(t, err)
	assert.Empty(t, s.Args)
	assert.Equal(t, 0, s.Iterations)
}

func TestResolveSettings_FromFile(t *testing.T) {
	unsetenv(t, "DEBUG_OUTPUT")
	unsetenv(t, "TERMRIG_LOG_LEVEL")

	c, err := LoadFromReader(strings.NewReader(`target ./agent
args --model "big one"
cols 120
rows 40
timeout 750ms
log.level DEBUG
log.format json

[probe]
iterations 7

[env]
NO_UPDATE 1
`))
	require.NoError(t, err)
	require.False(t, c.HasWarnings(), "%v", c.Warnings)

	s, err := ResolveSettings(c, "probe")
	require.NoError(t, err)
	assert.Equal(t, "./agent", s.Target)
	assert.Equal(t, []string{"--model", "big one"}, s.Args, "global args override the probe default")
	assert.Equal(t, 120, s.Cols)
	assert.Equal(t, 40, s.Rows)
	assert.Equal(t, 750*time.Millisecond, s.Timeout)
	assert.Equal(t, slog.LevelDebug, s.LogLevel)
	assert.Equal(t, "json", s.LogFormat)
	assert.Equal(t, 7, s.Iterations)
	assert.Equal(t, []string{"NO_UPDATE=1"}, s.Env)

	assert.Len(t, s.RigOptions(nil), 5)
}

func TestResolveSettings_EnvOverrides(t *testing.T) {
	c := NewConfig()
	c.SetGlobalOption("debug-output", "false")
	c.SetGlobalOption("log.level", "error")

	t.Setenv("DEBUG_OUTPUT", "true")
	t.Setenv("TERMRIG_LOG_LEVEL", "warn")

	s, err := ResolveSettings(c, "")
	require.NoError(t, err)
	assert.True(t, s.DebugOutput)
	assert.Equal(t, slog.LevelWarn, s.LogLevel)
}

func TestResolveSettings_DebugOutputEnv(t *testing.T) {
	c := NewConfig()
	c.SetGlobalOption("debug-output", "yes")

	for _, tc := range []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"", false},
		{"verbose", false},
		{"1", false},
	} {
		t.Run(fmt.Sprintf("%q", tc.value), func(t *testing.T) {
			t.Setenv("DEBUG_OUTPUT", tc.value)
			s, err := ResolveSettings(c, "")
			require.NoError(t, err)
			assert.Equal(t, tc.want, s.DebugOutput)
		})
	}

	unsetenv(t, "DEBUG_OUTPUT")
	s, err := ResolveSettings(c, "")
	require.NoError(t, err)
	assert.True(t, s.DebugOutput, "config value applies without the env var")
}

func TestResolveSettings_Invalid(t *testing.T) {
	unsetenv(t, "DEBUG_OUTPUT")
	unsetenv(t, "TERMRIG_LOG_LEVEL")

	testCases := []struct {
		key, value, want string
	}{
		{"cols", "0", "invalid cols"},
		{"rows", "x", "invalid rows"},
		{"timeout", "-1s", "invalid timeout"},
		{"args", `"open`, "invalid args"},
		{"debug-output", "maybe", "invalid debug-output"},
		{"log.level", "loud", "invalid log level"},
		{"log.format", "xml", "invalid log.format"},
	}
	for _, tc := range testCases {
		t.Run(tc.key, func(t *testing.T) {
			c := NewConfig()
			c.SetGlobalOption(tc.key, tc.value)
			_, err := ResolveSettings(c, "")
			assert.ErrorContains(t, err, tc.want)
		})
	}

	c := NewConfig()
	c.Commands["probe"] = map[string]string{"iterations": "-2"}
	_, err := ResolveSettings(c, "probe")
	assert.ErrorContains(t, err, "invalid iterations")
}

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		" warn": slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLogLevel("verbose")
	assert.Error(t, err)
}

func TestSchema_FormatHelp(t *testing.T) {
	help := DefaultSchema().FormatHelp()
	assert.Contains(t, help, "Global Options:")
	assert.Contains(t, help, "debug-output")
	assert.Contains(t, help, "env: DEBUG_OUTPUT")
	assert.Contains(t, help, "[probe] Options:")
	assert.Contains(t, help, "default: --yolo")
	assert.Contains(t, help, "[env] Section:")
}

// unsetenv removes key for the duration of the test.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatal(err)
	}
}
