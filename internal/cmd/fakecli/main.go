// Package main provides a small interactive CLI used as a rig target in
// tests. It renders a bordered input box, and "!" on an empty input switches
// to a shell mode that runs each submitted line with sh -c.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/pflag"
)

type mode int

const (
	modeNormal mode = iota
	modeShell
)

var (
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1)
	shellStyle  = boxStyle.BorderForeground(lipgloss.Color("3"))
	headerStyle = lipgloss.NewStyle().Bold(true)
	hintStyle   = lipgloss.NewStyle().Faint(true)
)

type shellResultMsg struct {
	output string
	err    error
}

type model struct {
	yolo  bool
	mode  mode
	input textinput.Model
	width int
}

func newModel(yolo bool) model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "type a message, ! for shell"
	ti.Focus()
	return model{yolo: yolo, input: ti, width: 80}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case shellResultMsg:
		out := strings.TrimRight(msg.output, "\n")
		if msg.err != nil {
			out = strings.TrimSpace(out + "\n" + msg.err.Error())
		}
		return m, tea.Println(out)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "esc":
			if m.mode == modeShell {
				m.setMode(modeNormal)
			}
			m.input.SetValue("")
			return m, nil

		case "!":
			if m.mode == modeNormal && m.input.Value() == "" {
				m.setMode(modeShell)
				return m, nil
			}

		case "enter":
			line := m.input.Value()
			m.input.SetValue("")
			if line == "" {
				return m, nil
			}
			if m.mode == modeShell {
				return m, tea.Sequence(tea.Println("$ "+line), runShell(line))
			}
			return m, tea.Println("sent: " + line)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *model) setMode(md mode) {
	m.mode = md
	switch md {
	case modeShell:
		m.input.Prompt = "$ "
		m.input.Placeholder = "shell command, esc to leave"
	default:
		m.input.Prompt = "> "
		m.input.Placeholder = "type a message, ! for shell"
	}
}

func (m model) View() string {
	var b strings.Builder
	if m.yolo {
		b.WriteString(headerStyle.Render("YOLO mode"))
		b.WriteString(" enabled\n")
	}

	style := boxStyle
	hint := "enter to send, ctrl+c to quit"
	if m.mode == modeShell {
		style = shellStyle
		hint = "shell mode: enter to run, esc to leave"
	}
	if w := m.width - style.GetHorizontalFrameSize(); w > 0 {
		style = style.Width(w)
	}
	b.WriteString(style.Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(hintStyle.Render(hint))
	b.WriteString("\n")
	return b.String()
}

func runShell(line string) tea.Cmd {
	return func() tea.Msg {
		out, err := exec.Command("sh", "-c", line).CombinedOutput()
		return shellResultMsg{output: string(out), err: err}
	}
}

func main() {
	yolo := pflag.Bool("yolo", false, "skip confirmations")
	pflag.Parse()

	p := tea.NewProgram(newModel(*yolo))
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
