// Package cliui provides terminal UI helpers for inkwell commands: step
// spinners, the generation progress view and markdown rendering.
package cliui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	SuccessMark  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	StepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	KeyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	ValueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	NameStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	DimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

const markdownWidth = 80

// Step runs fn under label and finishes with one result line carrying a mark
// and the elapsed time. The spinner only animates on a terminal, so piped
// output holds nothing but result lines.
func Step(w io.Writer, label string, fn func() error) error {
	stop := func() {}
	if IsTerminal(w) {
		stop = animate(w, label)
	}

	start := time.Now()
	err := fn()
	stop()

	fmt.Fprintf(w, "\r  %s %s %s\n", Mark(err), label,
		StepStyle.Render("("+FormatDuration(time.Since(start))+")"))
	return err
}

// animate draws spinner.Dot frames in front of label until the returned func
// is called. The func returns once the last frame is written.
func animate(w io.Writer, label string) func() {
	var (
		wg   sync.WaitGroup
		done = make(chan struct{})
	)
	frames := spinner.Dot.Frames

	wg.Add(1)
	go func() {
		defer wg.Done()
		tick := time.NewTicker(spinner.Dot.FPS)
		defer tick.Stop()

		for i := 0; ; i++ {
			fmt.Fprintf(w, "\r  %s %s", spinnerStyle.Render(frames[i%len(frames)]), label)
			select {
			case <-done:
				return
			case <-tick.C:
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
	}
}

// Mark is SuccessMark for a nil err and FailMark otherwise.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// FormatDuration renders d as "250ms", "3.2s" or "2m05s".
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	d = d.Round(time.Second)
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}

// RenderMarkdown renders content for w. A terminal gets glamour's auto style
// wrapped to its width; anything else gets the plain notty style.
func RenderMarkdown(w io.Writer, content string) (string, error) {
	style := glamour.WithStandardStyle("notty")
	if IsTerminal(w) {
		style = glamour.WithAutoStyle()
	}

	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(min(TerminalWidth(w, markdownWidth), markdownWidth)))
	if err != nil {
		return content, err
	}
	return r.Render(content)
}
