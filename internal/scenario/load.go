package scenario

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// file is the on-disk form of a scenario.
type file struct {
	Name    string     `yaml:"name"`
	Timeout Duration   `yaml:"timeout"`
	Steps   []stepSpec `yaml:"steps"`
}

// stepSpec is one YAML step. Exactly one action key must be set.
type stepSpec struct {
	Name       string     `yaml:"name"`
	Press      *string    `yaml:"press"`
	Type       *string    `yaml:"type"`
	Clear      bool       `yaml:"clear"`
	Wait       *string    `yaml:"wait"`
	Timeout    Duration   `yaml:"timeout"`
	TimerStart *string    `yaml:"timer-start"`
	TimerStop  *string    `yaml:"timer-stop"`
	Repeat     *int       `yaml:"repeat"`
	Steps      []stepSpec `yaml:"steps"`
}

// Duration accepts either a Go duration string ("500ms") or a number of
// milliseconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	if ms, err := strconv.ParseInt(node.Value, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	v, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", node.Line, node.Value, err)
	}
	*d = Duration(v)
	return nil
}

// LoadFile reads a scenario from a YAML file.
func LoadFile(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()

	s, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Load decodes a YAML scenario. A top-level timeout applies to waits that
// set none. Inside a repeat block, ${i} is replaced by the 1-based
// iteration of the innermost enclosing repeat.
func Load(r io.Reader) (*Script, error) {
	var f file
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode scenario: empty document")
		}
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if len(f.Steps) == 0 {
		return nil, fmt.Errorf("scenario has no steps")
	}

	s := New(f.Name)
	if err := appendSteps(s, f.Steps, time.Duration(f.Timeout), nil); err != nil {
		return nil, err
	}
	return s, nil
}

func appendSteps(s *Script, specs []stepSpec, defaultTimeout time.Duration, expand func(string) string) error {
	if expand == nil {
		expand = func(v string) string { return v }
	}
	for i, spec := range specs {
		if err := appendStep(s, spec, defaultTimeout, expand); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return nil
}

func appendStep(s *Script, spec stepSpec, defaultTimeout time.Duration, expand func(string) string) error {
	set := 0
	for _, ok := range []bool{
		spec.Press != nil,
		spec.Type != nil,
		spec.Clear,
		spec.Wait != nil,
		spec.TimerStart != nil,
		spec.TimerStop != nil,
		spec.Repeat != nil,
	} {
		if ok {
			set++
		}
	}
	switch {
	case set == 0:
		return fmt.Errorf("no action (want one of press, type, clear, wait, timer-start, timer-stop, repeat)")
	case set > 1:
		return fmt.Errorf("more than one action set")
	}
	if len(spec.Steps) > 0 && spec.Repeat == nil {
		return fmt.Errorf("steps is only valid with repeat")
	}

	before := len(s.steps)
	switch {
	case spec.Press != nil:
		s.PressKey(expand(*spec.Press))
	case spec.Type != nil:
		s.Type(expand(*spec.Type))
	case spec.Clear:
		s.ClearInput()
	case spec.Wait != nil:
		timeout := time.Duration(spec.Timeout)
		if timeout == 0 {
			timeout = defaultTimeout
		}
		s.WaitForOutput(expand(*spec.Wait), timeout)
	case spec.TimerStart != nil:
		s.StartTimer(expand(*spec.TimerStart))
	case spec.TimerStop != nil:
		s.StopTimer(expand(*spec.TimerStop))
	case spec.Repeat != nil:
		if *spec.Repeat < 0 {
			return fmt.Errorf("repeat count must not be negative, got %d", *spec.Repeat)
		}
		if len(spec.Steps) == 0 {
			return fmt.Errorf("repeat has no steps")
		}
		for i := 1; i <= *spec.Repeat; i++ {
			iteration := strconv.Itoa(i)
			inner := func(v string) string {
				return expand(strings.ReplaceAll(v, "${i}", iteration))
			}
			if err := appendSteps(s, spec.Steps, defaultTimeout, inner); err != nil {
				return fmt.Errorf("repeat %d: %w", i, err)
			}
		}
		return nil
	}

	if spec.Name != "" {
		s.steps[before].Name = expand(spec.Name)
	}
	return nil
}
