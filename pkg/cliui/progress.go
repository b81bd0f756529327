package cliui

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/inkwellhq/inkwell/pkg/genstream"
)

// RunFunc performs a generation and reports its stream events to l.
type RunFunc func(ctx context.Context, l genstream.Listener) error

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	messageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

const (
	defaultBarWidth = 40
	maxBarWidth     = 60
)

// ProgressMsg carries one progress update into the model.
type ProgressMsg struct {
	Percent int
	Message string
}

// DoneMsg ends the model with the run result.
type DoneMsg struct {
	Err error
}

// ProgressModel is a bubbletea model showing a spinner, a progress bar and
// the latest status message while a RunFunc streams.
type ProgressModel struct {
	title   string
	run     RunFunc
	ctx     context.Context
	cancel  context.CancelFunc
	msgs    chan tea.Msg
	started time.Time

	spinner spinner.Model
	bar     progress.Model
	width   int

	percent  int
	message  string
	done     bool
	canceled bool
	err      error
}

// NewProgressModel creates a model that runs run under ctx once started.
func NewProgressModel(ctx context.Context, title string, run RunFunc) ProgressModel {
	ctx, cancel := context.WithCancel(ctx)

	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = spinnerStyle

	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = defaultBarWidth

	return ProgressModel{
		title:   title,
		run:     run,
		ctx:     ctx,
		cancel:  cancel,
		msgs:    make(chan tea.Msg, 64),
		started: time.Now(),
		spinner: s,
		bar:     bar,
		width:   defaultBarWidth + 20,
	}
}

func (m ProgressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.start(), m.listen())
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			// The run sees the cancellation and finishes with DoneMsg.
			m.canceled = true
			m.cancel()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(max(msg.Width-20, 10), maxBarWidth)
		return m, nil

	case ProgressMsg:
		m.percent = msg.Percent
		if msg.Message != "" {
			m.message = msg.Message
		}
		return m, m.listen()

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		if m.err == nil {
			m.percent = 100
		}
		m.cancel()
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m ProgressModel) View() string {
	if m.done {
		line := fmt.Sprintf("  %s %s %s", Mark(m.err), m.title,
			StepStyle.Render(fmt.Sprintf("(%s)", FormatDuration(time.Since(m.started)))))
		if m.err != nil {
			line += "\n    " + errorStyle.Render(ansi.Truncate(m.err.Error(), max(m.width-4, 10), "…"))
		}
		return line + "\n"
	}

	status := m.message
	if m.canceled {
		status = "Canceling..."
	}

	// The message gets its own line so the bar never squeezes it.
	return fmt.Sprintf("  %s %s\n  %s %3d%%\n    %s\n",
		m.spinner.View(),
		titleStyle.Render(m.title),
		m.bar.ViewAs(float64(m.percent)/100),
		m.percent,
		messageStyle.Render(ansi.Truncate(status, max(m.width-4, 10), "…")),
	)
}

// Err returns the run failure once the model is done.
func (m ProgressModel) Err() error {
	return m.err
}

// Percent returns the last reported progress.
func (m ProgressModel) Percent() int {
	return m.percent
}

// Message returns the last status message.
func (m ProgressModel) Message() string {
	return m.message
}

// start runs the generation and always delivers exactly one DoneMsg.
func (m ProgressModel) start() tea.Cmd {
	return func() tea.Msg {
		err := m.run(m.ctx, &msgListener{ctx: m.ctx, msgs: m.msgs})
		m.msgs <- DoneMsg{Err: err}
		return nil
	}
}

func (m ProgressModel) listen() tea.Cmd {
	return func() tea.Msg {
		return <-m.msgs
	}
}

// msgListener forwards session callbacks into the model's message channel.
type msgListener struct {
	ctx  context.Context
	msgs chan<- tea.Msg
}

func (l *msgListener) send(msg tea.Msg) {
	select {
	case l.msgs <- msg:
	case <-l.ctx.Done():
	}
}

func (l *msgListener) OnProgress(progress int, message string) {
	l.send(ProgressMsg{Percent: progress, Message: message})
}

func (l *msgListener) OnData(string, json.RawMessage) {}

func (l *msgListener) OnComplete(map[string]json.RawMessage) {
	l.send(ProgressMsg{Percent: 100, Message: "Done"})
}

// OnError is a no-op: the failure arrives through DoneMsg.
func (l *msgListener) OnError(error) {}

// RunProgress runs run while showing progress on w. On a terminal it uses
// the interactive progress view; otherwise it prints one line per change.
func RunProgress(ctx context.Context, w io.Writer, title string, run RunFunc) error {
	if !IsTerminal(w) {
		return run(ctx, NewLineListener(w))
	}

	m := NewProgressModel(ctx, title, run)
	final, err := tea.NewProgram(m, tea.WithOutput(w), tea.WithContext(ctx)).Run()
	if err != nil {
		return fmt.Errorf("running progress view: %w", err)
	}
	return final.(ProgressModel).Err()
}

// LineListener prints progress as plain lines, skipping repeats.
type LineListener struct {
	w           io.Writer
	lastPercent int
	lastMessage string
}

// NewLineListener creates a LineListener writing to w.
func NewLineListener(w io.Writer) *LineListener {
	return &LineListener{w: w, lastPercent: -1}
}

func (l *LineListener) OnProgress(progress int, message string) {
	if message == "" {
		message = l.lastMessage
	}
	if progress == l.lastPercent && message == l.lastMessage {
		return
	}
	l.lastPercent = progress
	l.lastMessage = message
	fmt.Fprintf(l.w, "  [%3d%%] %s\n", progress, message)
}

func (l *LineListener) OnData(string, json.RawMessage) {}

func (l *LineListener) OnComplete(map[string]json.RawMessage) {
	fmt.Fprintf(l.w, "  %s done\n", SuccessMark)
}

// OnError is a no-op: RunProgress returns the failure to the caller.
func (l *LineListener) OnError(error) {}
