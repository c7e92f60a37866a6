package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/ledbench/internal/session"
)

// SequenceRunnerConfig holds configuration for running a sequence from the CLI
type SequenceRunnerConfig struct {
	Title   string
	Command string
	Params  []Param

	// Interactive renders a live bubbletea view. When false, each step is
	// printed as a plain line, which suits pipes and CI logs.
	Interactive bool

	Output io.Writer
}

// SequenceRunner starts a sequence on a session and renders it until it
// finishes. It is the session's interactive loop for the duration of the
// run: it drains Events and calls Apply.
type SequenceRunner struct {
	config SequenceRunnerConfig
}

// NewSequenceRunner creates a runner
func NewSequenceRunner(config SequenceRunnerConfig) *SequenceRunner {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	return &SequenceRunner{config: config}
}

// Run starts seq and blocks until it finishes or ctx is cancelled. The
// returned SequenceFinished is zero when the sequence could not start.
func (r *SequenceRunner) Run(ctx context.Context, sess *session.Session, seq session.Sequence) (session.SequenceFinished, error) {
	printer := NewPrinter(r.config.Output)
	printer.PrintHeader(r.config.Title, r.config.Command, r.config.Params...)

	if err := sess.StartSequence(ctx, seq); err != nil {
		printer.PrintFailure("Sequence Not Started", err)
		return session.SequenceFinished{}, err
	}

	var finished session.SequenceFinished
	if r.config.Interactive {
		// cancelling ctx cancels the sequence, whose SequenceFinished ends the program
		model := newSequenceModel(sess, seq, printer.Width())
		final, err := tea.NewProgram(model, tea.WithOutput(r.config.Output)).Run()
		if err != nil {
			sess.CancelSequence()
			return session.SequenceFinished{Name: seq.Name, Total: len(seq.Steps), Cancelled: true}, err
		}
		if m, ok := final.(sequenceModel); ok && m.finished != nil {
			finished = *m.finished
		}
	} else {
		finished = r.drainUntilFinished(sess, func(ev session.SequenceProgress) {
			printer.Println(plainStepLine(sess, ev))
		})
	}

	printer.Newline()
	r.printOutcome(printer, finished)
	return finished, nil
}

func (r *SequenceRunner) drainUntilFinished(sess *session.Session, onStep func(session.SequenceProgress)) session.SequenceFinished {
	for e := range sess.Events() {
		sess.Apply(e)
		switch ev := e.(type) {
		case session.SequenceProgress:
			if onStep != nil {
				onStep(ev)
			}
		case session.SequenceFinished:
			return ev
		}
	}
	return session.SequenceFinished{}
}

func (r *SequenceRunner) printOutcome(printer *Printer, f session.SequenceFinished) {
	details := []Param{
		{Key: "Sequence", Value: f.Name},
		{Key: "Steps", Value: fmt.Sprintf("%d/%d", f.Steps, f.Total)},
		{Key: "Failed", Value: fmt.Sprint(f.Failed)},
	}
	switch {
	case f.Cancelled:
		printer.PrintWarning("Sequence Cancelled", details...)
	case f.Failed > 0:
		printer.PrintWarning("Sequence Finished With Failures", details...)
	default:
		printer.PrintSuccess("Sequence Complete", details...)
	}
}

func plainStepLine(sess *session.Session, ev session.SequenceProgress) string {
	mark := SuccessMarker
	note := ""
	if !ev.OK {
		mark = FailureMarker
		if last, ok := sess.Results().Last(); ok {
			note = "  (" + last.Outcome + ")"
		}
	}
	return fmt.Sprintf("  [%d/%d] %s %s%s", ev.Step, ev.Total, mark, ev.Label, note)
}

type sessionEventMsg struct {
	event session.Event
}

type eventsClosedMsg struct{}

func waitForEvent(events <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return sessionEventMsg{event: e}
	}
}

type sequenceModel struct {
	sess       *session.Session
	name       string
	progress   *Progress
	finished   *session.SequenceFinished
	cancelling bool
}

func newSequenceModel(sess *session.Session, seq session.Sequence, width int) sequenceModel {
	p := NewProgress(fmt.Sprintf("Running %s (%d steps)", seq.Name, len(seq.Steps)), len(seq.Steps))
	p.SetWidth(width)
	return sequenceModel{sess: sess, name: seq.Name, progress: p}
}

func (m sequenceModel) Init() tea.Cmd {
	return waitForEvent(m.sess.Events())
}

func (m sequenceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.cancelling = true
			m.sess.CancelSequence()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.progress.SetWidth(clampWidth(msg.Width))
		return m, nil

	case sessionEventMsg:
		m.sess.Apply(msg.event)
		switch ev := msg.event.(type) {
		case session.SequenceProgress:
			note := ""
			if !ev.OK {
				if last, ok := m.sess.Results().Last(); ok {
					note = last.Outcome
				}
			}
			m.progress.Record(ev.Step, ev.Label, ev.OK, note)
		case session.SequenceFinished:
			if ev.Name == m.name {
				m.finished = &ev
				return m, tea.Quit
			}
		}
		return m, waitForEvent(m.sess.Events())

	case eventsClosedMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m sequenceModel) View() string {
	var b strings.Builder
	b.WriteString(m.progress.Render())
	b.WriteString("\n\n")
	if m.cancelling {
		b.WriteString(StepRunningStyle.Render("  Cancelling after the current step..."))
	} else {
		b.WriteString(StepNoteStyle.Render("  q/esc to cancel"))
	}
	b.WriteString("\n")
	return b.String()
}
