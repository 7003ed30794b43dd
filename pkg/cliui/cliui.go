// Package cliui provides reusable terminal UI helpers (styles, step
// indicators, markdown rendering) for chatzilla CLI commands.
package cliui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/papercomputeco/chatzilla/pkg/llm"
)

var (
	SuccessMark  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	StepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	KeyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("111")).Bold(true)
	ValueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	DimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	NameStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true)
	HashStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("179"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

var roleStyles = map[llm.Role]lipgloss.Style{
	llm.RoleUser:      lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true),
	llm.RoleAssistant: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	llm.RoleSystem:    lipgloss.NewStyle().Foreground(lipgloss.Color("179")).Italic(true),
	llm.RoleTool:      lipgloss.NewStyle().Foreground(lipgloss.Color("111")),
}

// spinnerFrames is the braille dot spinner.
var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// RoleLabel renders "<role>> " in the role's color.
func RoleLabel(role llm.Role) string {
	style, ok := roleStyles[role]
	if !ok {
		style = DimStyle
	}
	return style.Render(string(role) + "> ")
}

// Step runs fn and prints msg with a ✓ or ✗ and the elapsed time. On a
// terminal a spinner animates in front of msg while fn runs.
func Step(w io.Writer, msg string, fn func() error) error {
	stop := func() {}
	if f, ok := w.(*os.File); ok && IsTerminal(f) {
		stop = spin(w, msg)
	}

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	stop()

	fmt.Fprintf(w, "\r  %s %s %s\n", Mark(err), msg, StepStyle.Render("("+FormatDuration(elapsed)+")"))
	return err
}

// spin redraws the spinner until the returned func is called, which
// blocks until the last frame is written.
func spin(w io.Writer, msg string) func() {
	done := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for frame := 0; ; frame++ {
			fmt.Fprintf(w, "\r  %s %s", spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]), msg)
			select {
			case <-done:
				return
			case <-ticker.C:
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
	}
}

// Mark returns a ✓ for nil errors or ✗ for non-nil errors.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// FormatDuration formats a duration for display (e.g. "12ms" or "3.2s").
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}

// RenderMarkdown renders markdown for an 80-column terminal. On failure it
// returns content unchanged along with the error.
func RenderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80))
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}
	return strings.TrimRight(rendered, "\n"), nil
}

// RenderReply renders reply text as markdown when w is a terminal and
// returns it untouched otherwise, so piped output stays plain.
func RenderReply(w io.Writer, text string) string {
	f, ok := w.(*os.File)
	if !ok || !IsTerminal(f) {
		return text
	}

	rendered, err := RenderMarkdown(text)
	if err != nil {
		return text
	}
	return rendered
}
