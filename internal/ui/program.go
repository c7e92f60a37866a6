package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/ledbench/internal/deviceapi"
	"github.com/muurk/ledbench/internal/discovery"
	"github.com/muurk/ledbench/internal/session"
)

// Printer writes UI components to an output. CLI commands use it for all
// curated output so logs on stderr never interleave with it.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{out: w, width: GetTerminalWidth()}
}

// Width returns the current terminal width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// SetWidth overrides the detected width
func (p *Printer) SetWidth(width int) *Printer {
	p.width = width
	return p
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, params ...Param) {
	p.Println(NewHeader(title, command, params...).SetWidth(p.width).Render())
	p.Newline()
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details ...Param) {
	p.Println(NewSuccessResult(title, details...).SetWidth(p.width).Render())
}

// PrintWarning prints a warning result box
func (p *Printer) PrintWarning(title string, details ...Param) {
	p.Println(NewWarningResult(title, details...).SetWidth(p.width).Render())
}

// PrintFailure prints a failure result box with troubleshooting tips
func (p *Printer) PrintFailure(title string, err error) {
	p.Println(NewFailureResult(title, err).SetWidth(p.width).Render())
}

// PrintPanel prints text in a muted rounded box with a title
func (p *Printer) PrintPanel(title, body string) {
	p.Println(RenderPanel(title, body, p.width))
}

// RenderPanel renders text in a muted rounded box
func RenderPanel(title, body string, width int) string {
	content := PanelTitleStyle.Render(title) + "\n" +
		lipgloss.NewStyle().Foreground(TextColor).Render(strings.TrimRight(body, "\n"))

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Width(width-4).
		Padding(0, 1).
		Render(content)
}

// RenderDevices renders a device table in discovery order
func RenderDevices(devices []*discovery.Device) string {
	if len(devices) == 0 {
		return StepPendingStyle.Render("  No devices found")
	}

	head := lipgloss.NewStyle().Foreground(MutedColor).Bold(true)
	lines := []string{head.Render(fmt.Sprintf("  %-16s %-20s %-28s %-8s %s", "IP", "DEVICE ID", "NAME", "STATUS", "SOURCE"))}

	for _, d := range devices {
		style := StepPendingStyle
		if d.Identified() {
			style = StepCompleteStyle
		}
		lines = append(lines, style.Render(fmt.Sprintf("  %-16s %-20s %-28s %-8s %s",
			d.IP, truncate(d.DeviceID, 20), truncate(d.Name, 28), d.Status, d.Source)))
	}
	return strings.Join(lines, "\n")
}

// RenderResultLine renders one result log entry with its mark
func RenderResultLine(r session.TestResult) string {
	ts := StepNoteStyle.Render(r.Time.Format("15:04:05"))
	if r.Succeeded() {
		return fmt.Sprintf("  %s %s %s", ts, StepCompleteStyle.Render(SuccessMarker), r.Label)
	}
	return fmt.Sprintf("  %s %s %s %s", ts, ErrorTitleStyle.Render(FailureMarker), r.Label,
		ErrorMessageStyle.Render("("+r.Outcome+")"))
}

// RenderSummary renders result counts on one line
func RenderSummary(s session.Summary) string {
	return fmt.Sprintf("%d total, %s, %s, %.1f%% success",
		s.Total,
		StepCompleteStyle.Render(fmt.Sprintf("%d succeeded", s.Succeeded)),
		ErrorMessageStyle.Render(fmt.Sprintf("%d failed", s.Failed)),
		s.Rate())
}

// InfoParams turns device info into header/result params
func InfoParams(info *deviceapi.DeviceInfo) []Param {
	fields := info.Fields()
	out := make([]Param, 0, len(fields))
	for _, f := range fields {
		out = append(out, Param{Key: f.Key, Value: f.Value})
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
