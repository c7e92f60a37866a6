package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// DefaultVisibleSteps is how many finished steps a Progress shows
const DefaultVisibleSteps = 8

// StepStatus represents the current state of a step
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepComplete
	StepFailed
)

// Step is one line of a multi-step operation
type Step struct {
	Number  int
	Name    string
	Status  StepStatus
	Message string
}

// Progress is a bar plus a rolling list of the most recent steps. Steps are
// recorded as they finish, so their names need not be known up front.
type Progress struct {
	Label   string
	Total   int
	Done    int
	Failed  int
	Visible int
	Width   int

	steps []Step
	bar   progress.Model
}

// NewProgress creates a progress display for totalSteps steps
func NewProgress(label string, totalSteps int) *Progress {
	p := &Progress{
		Label:   label,
		Total:   totalSteps,
		Visible: DefaultVisibleSteps,
	}
	return p.SetWidth(GetTerminalWidth())
}

// SetWidth sets the width and resizes the bar to fit
func (p *Progress) SetWidth(width int) *Progress {
	p.Width = width
	barWidth := width - 24
	if barWidth < 20 {
		barWidth = 20
	}
	if barWidth > 50 {
		barWidth = 50
	}
	p.bar = progress.New(
		progress.WithGradient(string(PrimaryColor), string(SuccessColor)),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)
	return p
}

// Record marks step number (1-based) as finished
func (p *Progress) Record(number int, name string, ok bool, message string) {
	status := StepComplete
	if !ok {
		status = StepFailed
		p.Failed++
	}
	if number > p.Done {
		p.Done = number
	}
	p.steps = append(p.steps, Step{Number: number, Name: name, Status: status, Message: message})
	if len(p.steps) > p.Visible && p.Visible > 0 {
		p.steps = p.steps[len(p.steps)-p.Visible:]
	}
}

// Percent returns progress in the range 0.0 to 1.0
func (p *Progress) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	pct := float64(p.Done) / float64(p.Total)
	if pct > 1 {
		return 1
	}
	return pct
}

// Steps returns the visible steps, oldest first
func (p *Progress) Steps() []Step {
	return p.steps
}

// Render returns the styled progress display as a string
func (p *Progress) Render() string {
	var b strings.Builder

	if p.Label != "" {
		b.WriteString(ProgressLabelStyle.Render(p.Label))
		b.WriteString("\n\n")
	}

	b.WriteString(p.renderBar())
	b.WriteString("\n\n")

	lines := make([]string, 0, len(p.steps))
	for _, step := range p.steps {
		lines = append(lines, p.renderStepLine(step))
	}
	b.WriteString(strings.Join(lines, "\n"))

	return b.String()
}

func (p *Progress) renderBar() string {
	line := fmt.Sprintf("%s  %3.0f%%  [%d/%d]", p.bar.ViewAs(p.Percent()), p.Percent()*100, p.Done, p.Total)
	if p.Failed > 0 {
		line += "  " + ErrorMessageStyle.Render(fmt.Sprintf("%d failed", p.Failed))
	}
	return lipgloss.NewStyle().PaddingLeft(2).Render(line)
}

func (p *Progress) renderStepLine(step Step) string {
	prefix := fmt.Sprintf("  [%*d/%d]", len(fmt.Sprint(p.Total)), step.Number, p.Total)

	var marker string
	var style lipgloss.Style
	switch step.Status {
	case StepComplete:
		marker, style = StepMarkerComplete, StepCompleteStyle
	case StepRunning:
		marker, style = StepMarkerRunning, StepRunningStyle
	case StepFailed:
		marker, style = FailureMarker, ErrorTitleStyle
	default:
		marker, style = StepMarkerPending, StepPendingStyle
	}

	padding := 40 - lipgloss.Width(step.Name)
	if padding < 1 {
		padding = 1
	}

	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(" ")
	b.WriteString(style.Render(step.Name))
	b.WriteString(strings.Repeat(" ", padding))
	b.WriteString(style.Render(marker))
	if step.Message != "" {
		b.WriteString("  ")
		b.WriteString(StepNoteStyle.Render("(" + step.Message + ")"))
	}
	return b.String()
}

// String implements fmt.Stringer
func (p *Progress) String() string {
	return p.Render()
}
