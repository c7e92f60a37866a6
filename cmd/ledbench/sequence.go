package main

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/ledbench/internal/config"
	"github.com/muurk/ledbench/internal/logging"
	"github.com/muurk/ledbench/internal/session"
	"github.com/muurk/ledbench/internal/tui"
	"github.com/muurk/ledbench/internal/ui"
)

// Sequence command flags
var (
	reportDir string
	seed      uint64
)

func init() {
	rootCmd.AddCommand(sequenceCmd)
	rootCmd.AddCommand(tuiCmd)
}

// sequenceCmd runs a built-in test sequence
var sequenceCmd = &cobra.Command{
	Use:   "sequence <" + strings.Join(session.SequenceNames(), "|") + ">",
	Short: "Run a test sequence",
	Long: `Run one of the built-in test sequences against a controller.

  all-colors  every preset, rainbow last
  rainbow     hue sweep in 10° steps
  gradient    hue sweep in 5° steps, then saturation and value fades
  random      20 random colours
  full        presets, the three primaries over HSV, then broadcast on/off

Every step is logged; a failed step does not stop the run. The exit status
is non-zero when any step failed or the run was cancelled.`,
	Example: `  # Cycle through every preset
  ledbench sequence all-colors --device 192.168.1.23

  # Full run, then write a report to ./reports
  ledbench sequence full --report ./reports

  # Reproducible random colours
  ledbench sequence random --seed 42`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: session.SequenceNames(),
	RunE:      runSequence,
}

func init() {
	sequenceCmd.Flags().StringVar(&reportDir, "report", "", "Export a report to this directory when the run ends")
	sequenceCmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for the random sequence (0 = time based)")
}

func runSequence(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	p := ui.NewPrinter(os.Stdout)

	seq, err := session.SequenceByName(args[0], newRand(seed))
	if err != nil {
		return err
	}

	ip, err := resolveDevice(ctx, p)
	if err != nil {
		return err
	}

	sess := newSession()
	defer sess.Close()

	if err := sess.Connect(ctx, ip); err != nil {
		p.PrintFailure("Connection Failed", err)
		return err
	}

	runner := ui.NewSequenceRunner(ui.SequenceRunnerConfig{
		Title:   "Test Sequence",
		Command: commandLine(cmd, args),
		Params: []ui.Param{
			{Key: "Device", Value: ip},
			{Key: "Sequence", Value: seq.Name},
			{Key: "Steps", Value: fmt.Sprintf("%d", len(seq.Steps))},
			{Key: "Estimate", Value: seq.Duration().Round(time.Second).String()},
		},
		Interactive: ui.IsTerminal(),
		Output:      os.Stdout,
	})

	finished, err := runner.Run(ctx, sess, seq)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("report") {
		path, err := sess.ExportReport(reportDir)
		if err != nil {
			p.PrintFailure("Report Export Failed", err)
			return err
		}
		p.PrintSuccess("Report Exported", ui.Param{Key: "File", Value: path})
	}

	switch {
	case finished.Cancelled:
		return fmt.Errorf("sequence %s cancelled after %d of %d steps", seq.Name, finished.Steps, finished.Total)
	case finished.Failed > 0:
		return fmt.Errorf("sequence %s: %d of %d steps failed", seq.Name, finished.Failed, finished.Total)
	}
	return nil
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed>>32|seed<<32))
}

// tuiCmd launches the interactive interface
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive interface",
	Long: `Launch the full-screen interface.

The device screen scans the subnet, lists discovered controllers and shows
live UDP announcements. The control screen drives the selected controller
with a colour wheel, presets and brightness, runs sequences and shows the
result log. Reports are exported to the report directory from the settings
file.

With --log-level set, log lines go to ledbench.log in the config directory.`,
	Example: `  # Start on the device screen
  ledbench tui
  # Or simply (tui is the default):
  ledbench

  # Connect straight away
  ledbench tui --device 192.168.1.23`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	if logLevel != "" {
		logPath, err := tuiLogPath()
		if err != nil {
			return err
		}
		if err := logging.InitializeWithOutput(logLevel, logPath); err != nil {
			return err
		}
	}

	device := deviceIP
	if device == "" {
		device = settings.Device.Address
	}

	err := tui.Run(tui.Options{
		Session:   newSession(),
		Sweeper:   settings.Scanner(),
		Wheel:     settings.Circle(),
		ReportDir: settings.Report.Dir,
		Device:    device,
	})
	if err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}

func tuiLogPath() (string, error) {
	dir, err := config.GetConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return filepath.Join(dir, "ledbench.log"), nil
}
