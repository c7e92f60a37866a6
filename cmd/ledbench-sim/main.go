// Ledbench-sim is a stub LED controller for trying ledbench without hardware.
//
// It serves the controller HTTP API on loopback, animates the rainbow
// preset, sends UDP announcements while broadcast is enabled and exposes a
// websocket feed of the LED state that 'ledbench-sim watch' renders.
//
// Usage:
//
//	ledbench-sim run [flags]
//	ledbench-sim watch [addr]
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/ledbench/internal/config"
	"github.com/muurk/ledbench/internal/logging"
	"github.com/muurk/ledbench/internal/simulator"
	"github.com/muurk/ledbench/internal/ui"
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

var (
	configPath string
	logLevel   string
	settings   *config.Settings
)

var rootCmd = &cobra.Command{
	Use:   "ledbench-sim",
	Short: "Stub LED controller",
	Long: `A stub ESP32-S3 LED controller for exercising ledbench without hardware.

Serves /api/info, /api/control and /api/broadcast like the firmware, sends
UDP announcements while broadcast is enabled and publishes a live state feed
over websocket.

Point ledbench at it with --device 127.0.0.1 --port <port>.`,
	Version:       version.Get().Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := logLevel
		if level == "" && cmd == runCmd {
			level = "info"
		}
		if err := logging.Initialize(level); err != nil {
			return err
		}

		s, err := config.Load(configPath)
		if err != nil {
			return err
		}
		settings = s
		return nil
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Settings file (default is the per-user config path)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}

var (
	listenAddr       string
	announceInterval time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Serve the stub controller",
	Long: `Serve the stub controller until interrupted.

The listen address, identity and announcement interval default to the
simulator section of the settings file. Announcements go to the broadcast
group and port ledbench listens on.`,
	Example: `  # Serve on the configured address
  ledbench-sim run

  # Serve on all interfaces, announcing every second
  ledbench-sim run --listen 0.0.0.0:8080 --announce-interval 1s`,
	Args: cobra.NoArgs,
	RunE: runSimulator,
}

func init() {
	runCmd.Flags().StringVar(&listenAddr, "listen", "", "HTTP listen address (default from config, 127.0.0.1:8080)")
	runCmd.Flags().DurationVar(&announceInterval, "announce-interval", 0, "Announcement interval (default from config, 2s)")
}

func runSimulator(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg := simulator.Config{
		Listen:           settings.Simulator.Listen,
		DeviceID:         settings.Simulator.DeviceID,
		DeviceName:       settings.Simulator.DeviceName,
		AnnounceAddr:     announceTarget(settings),
		AnnounceInterval: settings.Simulator.AnnounceInterval,
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}
	if announceInterval > 0 {
		cfg.AnnounceInterval = announceInterval
	}

	srv := simulator.New(cfg)
	if err := srv.Start(ctx); err != nil {
		return err
	}

	p := ui.NewPrinter(os.Stdout)
	p.PrintHeader("Simulator", "ledbench-sim run",
		ui.Param{Key: "Listen", Value: srv.Addr().String()},
		ui.Param{Key: "Device ID", Value: cfg.DeviceID},
		ui.Param{Key: "Announce", Value: cfg.AnnounceAddr + " every " + cfg.AnnounceInterval.String()},
		ui.Param{Key: "Feed", Value: "ws://" + srv.Addr().String() + simulator.FeedPath})

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	p.PrintSuccess("Simulator Stopped")
	return nil
}

// announceTarget is the broadcast group and port. Without a group the
// listener binds plain UDP, so announcements go to loopback.
func announceTarget(s *config.Settings) string {
	host := s.Broadcast.Group
	if host == "" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, strconv.Itoa(s.Broadcast.Port))
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ledbench-sim %s\n", version.Full())
	},
}
