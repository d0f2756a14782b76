package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/wasm-stage/window"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	actionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	paramStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// action is one window command the inspector can send.
type action struct {
	run    func(ctx context.Context, w *window.Window, args []string) (string, error)
	name   string
	params []string
}

var actions = []action{
	{name: "resize", params: []string{"width", "height"}, run: func(_ context.Context, w *window.Window, args []string) (string, error) {
		x, y, err := intPair(args)
		if err != nil {
			return "", err
		}
		return "resize queued", w.Resize(x, y)
	}},
	{name: "move", params: []string{"x", "y"}, run: func(_ context.Context, w *window.Window, args []string) (string, error) {
		x, y, err := intPair(args)
		if err != nil {
			return "", err
		}
		return "move queued", w.Move(x, y)
	}},
	{name: "centre", run: func(_ context.Context, w *window.Window, _ []string) (string, error) {
		return "centre queued", w.Centre()
	}},
	{name: "fullscreen", run: func(_ context.Context, w *window.Window, _ []string) (string, error) {
		on := !w.Mode().Fullscreen
		return fmt.Sprintf("fullscreen=%t queued", on), w.SetFullscreen(on)
	}},
	{name: "title", params: []string{"title"}, run: func(_ context.Context, w *window.Window, args []string) (string, error) {
		return "title queued", w.SetTitle(args[0])
	}},
	{name: "copy", params: []string{"text"}, run: func(_ context.Context, w *window.Window, args []string) (string, error) {
		return "clipboard set", w.SetClipboard(args[0])
	}},
	{name: "paste", run: func(ctx context.Context, w *window.Window, _ []string) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		text, err := w.Clipboard(ctx)
		return strconv.Quote(text), err
	}},
	{name: "quit", run: func(_ context.Context, w *window.Window, _ []string) (string, error) {
		return "quit queued", w.Quit()
	}},
}

func intPair(args []string) (int, int, error) {
	a, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("%q is not a number", args[0])
	}
	b, err := strconv.Atoi(strings.TrimSpace(args[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("%q is not a number", args[1])
	}
	return a, b, nil
}

type inspectorState int

const (
	stateSelect inspectorState = iota
	stateInput
	stateResult
)

type inspectorModel struct {
	ctx      context.Context
	err      error
	win      *window.Window
	guest    string
	result   string
	inputs   []textinput.Model
	mode     window.Mode
	dropped  uint64
	selected int
	focusIdx int
	state    inspectorState
}

type resultMsg struct {
	err    error
	result string
}

type tickMsg struct{}

func newInspectorModel(ctx context.Context, win *window.Window, guest string) *inspectorModel {
	return &inspectorModel{
		ctx:   ctx,
		win:   win,
		guest: guest,
		mode:  win.Mode(),
		state: stateSelect,
	}
}

func tick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m *inspectorModel) Init() tea.Cmd {
	return tick()
}

func (m *inspectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			_ = m.win.Quit()
			return m, tea.Quit

		case "q":
			if m.state != stateInput {
				_ = m.win.Quit()
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelect && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelect && m.selected < len(actions)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelect:
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.send
				}
				m.state = stateInput
				return m, nil

			case stateInput:
				return m, m.send

			case stateResult:
				m.reset()
			}

		case "tab":
			if m.state == stateInput && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			if m.state != stateSelect {
				m.reset()
			}
		}

	case tickMsg:
		m.mode = m.win.Mode()
		m.dropped = m.win.Dropped()
		return m, tick()

	case resultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateResult
	}

	if m.state == stateInput {
		cmds := make([]tea.Cmd, len(m.inputs))
		for i := range m.inputs {
			m.inputs[i], cmds[i] = m.inputs[i].Update(msg)
		}
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

func (m *inspectorModel) reset() {
	m.state = stateSelect
	m.inputs = nil
	m.result = ""
	m.err = nil
}

func (m *inspectorModel) prepareInputs() {
	a := actions[m.selected]
	m.inputs = make([]textinput.Model, len(a.params))
	for i, p := range a.params {
		ti := textinput.New()
		ti.Prompt = p + ": "
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *inspectorModel) send() tea.Msg {
	args := make([]string, len(m.inputs))
	for i, in := range m.inputs {
		args[i] = in.Value()
	}
	res, err := actions[m.selected].run(m.ctx, m.win, args)
	return resultMsg{result: res, err: err}
}

func (m *inspectorModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Stage"))
	b.WriteString(" ")
	if m.guest != "" {
		b.WriteString(m.guest)
	} else {
		b.WriteString("no guest")
	}
	fmt.Fprintf(&b, "\nmode %dx%d fullscreen=%t  dropped events %d\n\n",
		m.mode.Width, m.mode.Height, m.mode.Fullscreen, m.dropped)

	switch m.state {
	case stateSelect:
		b.WriteString("Send a window command:\n\n")
		for i, a := range actions {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + formatAction(a)))
			} else {
				b.WriteString("  " + formatAction(a))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter send • q quit"))

	case stateInput:
		a := actions[m.selected]
		fmt.Fprintf(&b, "Sending %s\n\n", actionStyle.Render(a.name))
		for _, in := range m.inputs {
			b.WriteString(in.View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter send • esc back"))

	case stateResult:
		fmt.Fprintf(&b, "%s:\n\n", actionStyle.Render(actions[m.selected].name))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}
	return b.String()
}

func formatAction(a action) string {
	if len(a.params) == 0 {
		return actionStyle.Render(a.name)
	}
	return actionStyle.Render(a.name) + " " + paramStyle.Render(strings.Join(a.params, " "))
}

// runInspector drives the window from a terminal UI until the user quits
// or ctx ends.
func runInspector(ctx context.Context, win *window.Window, guest string) error {
	p := tea.NewProgram(newInspectorModel(ctx, win, guest), tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}
