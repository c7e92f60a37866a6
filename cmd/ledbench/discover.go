package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/ledbench/internal/deviceapi"
	"github.com/muurk/ledbench/internal/discovery"
	"github.com/muurk/ledbench/internal/session"
	"github.com/muurk/ledbench/internal/ui"
)

// Discovery command flags
var (
	scanMDNS       bool
	listenDuration time.Duration
)

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(listenCmd)
}

// scanCmd sweeps the local subnet for controllers
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the local subnet for controllers",
	Long: `Sweep a range of the local /24 for LED controllers.

Each candidate address is pinged; hosts that answer are asked for /api/info
and listed with the identity they report. Hosts that answer the ping but not
the info request are listed as generic devices.

With --mdns the _http._tcp service is browsed as well and the results are
merged into the list.`,
	Example: `  # Sweep the configured host range
  ledbench scan

  # Also browse mDNS
  ledbench scan --mdns`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&scanMDNS, "mdns", false, "Also browse mDNS for HTTP services")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	p := ui.NewPrinter(os.Stdout)
	useMDNS := scanMDNS || settings.Discovery.MDNS

	p.PrintHeader("Network Scan", commandLine(cmd, args),
		ui.Param{Key: "Hosts", Value: fmt.Sprintf(".%d - .%d", settings.Discovery.FirstHost, settings.Discovery.LastHost)},
		ui.Param{Key: "Port", Value: fmt.Sprintf("%d", settings.Device.Port)},
		ui.Param{Key: "mDNS", Value: onOff(useMDNS)})

	report, err := settings.Scanner().Sweep(ctx)
	if report == nil {
		p.PrintFailure("Scan Failed", err)
		return err
	}

	devices := report.Devices
	if useMDNS && !report.Cancelled {
		devices = mergeMDNS(ctx, p, devices)
	}

	p.Println(ui.RenderDevices(devices))
	p.Newline()

	identified := 0
	for _, d := range devices {
		if d.Identified() {
			identified++
		}
	}

	details := []ui.Param{
		{Key: "Local", Value: report.Local.String()},
		{Key: "Probed", Value: fmt.Sprintf("%d", len(report.Hosts))},
		{Key: "Reachable", Value: fmt.Sprintf("%d", len(devices))},
		{Key: "Identified", Value: fmt.Sprintf("%d", identified)},
		{Key: "Elapsed", Value: report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond).String()},
	}
	if report.Cancelled {
		p.PrintWarning("Scan Cancelled", details...)
		return nil
	}
	p.PrintSuccess("Scan Complete", details...)

	if identified == 0 {
		fmt.Println("Troubleshooting:")
		fmt.Println("  - Ensure the controller is powered and joined to this network")
		fmt.Println("  - Widen discovery.first_host / last_host in the settings file")
		fmt.Println("  - ICMP may need privileges; unprivileged sweeps fall back to a TCP probe")
		fmt.Println("  - Use --device to specify the controller IP directly")
	}
	return nil
}

// mergeMDNS browses mDNS and appends services not already found by the sweep
func mergeMDNS(ctx context.Context, p *ui.Printer, devices []*discovery.Device) []*discovery.Device {
	browser := discovery.NewMDNSBrowser(settings.Device.Port)
	browser.Timeout = settings.Discovery.MDNSTimeout

	found, err := browser.Browse(ctx)
	if err != nil {
		p.PrintWarning("mDNS Browse Failed", ui.Param{Key: "Error", Value: deviceapi.GetShortErrorMessage(err)})
		return devices
	}

	seen := make(map[string]bool, len(devices))
	for _, d := range devices {
		seen[d.IP] = true
	}
	for _, d := range found {
		if !seen[d.IP] {
			seen[d.IP] = true
			devices = append(devices, d)
		}
	}
	return devices
}

// listenCmd prints UDP announcements as they arrive
var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Listen for controller UDP announcements",
	Long: `Bind the broadcast port and print every datagram received.

Valid JSON announcements also register the sender as a discovered
controller. Runs until interrupted, or for --duration.`,
	Example: `  # Listen until Ctrl+C
  ledbench listen

  # Listen for 30 seconds
  ledbench listen --duration 30s`,
	Args: cobra.NoArgs,
	RunE: runListen,
}

func init() {
	listenCmd.Flags().DurationVar(&listenDuration, "duration", 0, "Stop after this long (0 = until interrupted)")
}

func runListen(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if listenDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, listenDuration)
		defer cancel()
	}

	p := ui.NewPrinter(os.Stdout)
	group := settings.Broadcast.Group
	if group == "" {
		group = "(broadcast only)"
	}
	duration := "until interrupted"
	if listenDuration > 0 {
		duration = listenDuration.String()
	}
	p.PrintHeader("Broadcast Listener", commandLine(cmd, args),
		ui.Param{Key: "Group", Value: group},
		ui.Param{Key: "Port", Value: fmt.Sprintf("%d", settings.Broadcast.Port)},
		ui.Param{Key: "Duration", Value: duration})

	sess := newSession()
	defer sess.Close()

	if err := sess.StartListening(ctx); err != nil {
		p.PrintFailure("Listener Failed", err)
		return err
	}
	p.Println(fmt.Sprintf("Listening on %s (Ctrl+C to stop)", sess.ListenerAddr()))
	p.Newline()

	messages := 0
	for {
		select {
		case <-ctx.Done():
			sess.StopListening()
			// announcements still queued count towards the summary
			sess.Drain()
			p.Newline()
			p.PrintSuccess("Listener Stopped",
				ui.Param{Key: "Messages", Value: fmt.Sprintf("%d", messages)},
				ui.Param{Key: "Controllers", Value: fmt.Sprintf("%d", len(sess.Devices()))})
			return nil

		case ev := <-sess.Events():
			sess.Apply(ev)
			switch e := ev.(type) {
			case session.BroadcastMessage:
				messages++
				p.Println(fmt.Sprintf("%s  %-15s  %s", e.At.Format("15:04:05"), e.From, e.Text))
			case session.DeviceDiscovered:
				p.Println(ui.StepCompleteStyle.Render("  ✓ announced: ") + e.Device.String())
			case session.ListenerError:
				p.PrintFailure("Listener Failed", e.Err)
				return e.Err
			}
		}
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
