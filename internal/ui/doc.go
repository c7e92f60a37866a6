// Package ui renders the ledbench command line output with Lipgloss and
// Bubble Tea.
//
// One-shot commands print a Header, do their work and print a Result box;
// failures carry troubleshooting tips taken from the deviceapi error
// taxonomy. Long running sequences go through a SequenceRunner, which is
// the session's event loop while the sequence runs and draws a Progress bar
// with the most recent steps.
//
//	p := ui.NewPrinter(os.Stdout)
//	p.PrintHeader("Preset", "ledbench color 3", ui.Param{Key: "Device", Value: ip})
//	if err := sess.Do(ctx, session.Preset(3)); err != nil {
//	    p.PrintFailure("Preset Failed", err)
//	}
//
// Logging goes to stderr and is silent unless --log-level is given, so the
// curated output here is not interleaved with log lines.
package ui
