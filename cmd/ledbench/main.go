// Ledbench is a test bench for ESP32-S3 LED controllers.
//
// It finds controllers on the local subnet, drives their HTTP control API,
// listens for their UDP announcements and runs scripted test sequences,
// keeping a result log that can be exported as a plain-text report.
//
// Usage:
//
//	ledbench [command] [flags]
//
// Running without arguments launches the interactive TUI.
// See 'ledbench --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muurk/ledbench/internal/config"
	"github.com/muurk/ledbench/internal/logging"
	"github.com/muurk/ledbench/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	deviceIP   string
	devicePort int
	configPath string
	logLevel   string
)

// settings is loaded once per invocation by the root pre-run hook
var settings *config.Settings

// skipSettings marks commands that must work without a valid config file
const skipSettings = "skip-settings"

var rootCmd = &cobra.Command{
	Use:   "ledbench",
	Short: "LED controller test bench",
	Long: `A test bench for ESP32-S3 LED controllers.

Discovers controllers on the local network, sends power, preset, brightness
and HSV commands over their HTTP API, listens for UDP announcements and runs
test sequences. Every action is recorded in a result log that can be
exported as a report.

If no command is specified, the interactive TUI will launch automatically.`,
	Version:           version.Get().Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd, args)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&deviceIP, "device", "", "Controller IP address (skips discovery)")
	rootCmd.PersistentFlags().IntVar(&devicePort, "port", 0, "Controller HTTP port (default from config, 80)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Settings file (default is the per-user config path)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); logging is off when empty")

	rootCmd.AddCommand(versionCmd)
}

// setup initialises logging and loads the settings file. The TUI replaces
// the logger later so log lines stay off the alternate screen.
func setup(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return err
	}

	if cmd.Annotations[skipSettings] == "true" {
		return nil
	}

	s, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		s.Device.Port = devicePort
	}
	settings = s
	return nil
}

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print version information",
	Annotations: map[string]string{skipSettings: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ledbench %s\n", version.Full())
	},
}
