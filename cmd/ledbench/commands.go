package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/ledbench/internal/color"
	"github.com/muurk/ledbench/internal/deviceapi"
	"github.com/muurk/ledbench/internal/discovery"
	"github.com/muurk/ledbench/internal/picker"
	"github.com/muurk/ledbench/internal/session"
	"github.com/muurk/ledbench/internal/ui"
)

// Control command flags
var (
	hsvBrightness int
	pickValue     int
	pickStrip     bool
)

func init() {
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(powerCmd)
	rootCmd.AddCommand(colorCmd)
	rootCmd.AddCommand(brightnessCmd)
	rootCmd.AddCommand(hsvCmd)
	rootCmd.AddCommand(pickCmd)
	rootCmd.AddCommand(broadcastCmd)
}

// infoCmd shows the controller's info document
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show controller information",
	Long: `Fetch /api/info from a controller and display every field it reports.

Without --device the local subnet is swept and the single identified
controller is used.`,
	Example: `  # Info for a specific controller
  ledbench info --device 192.168.1.23

  # Auto-discover the controller
  ledbench info`,
	Args: cobra.NoArgs,
	RunE: runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	p := ui.NewPrinter(os.Stdout)

	ip, err := resolveDevice(ctx, p)
	if err != nil {
		return err
	}
	p.PrintHeader("Controller Info", commandLine(cmd, args), ui.Param{Key: "Device", Value: ip})

	sess := newSession()
	defer sess.Close()

	if err := sess.Connect(ctx, ip); err != nil {
		p.PrintFailure("Connection Failed", err)
		return err
	}

	conn := sess.Connection()
	p.PrintSuccess("Controller Info", ui.InfoParams(conn.Info)...)
	return nil
}

// powerCmd switches the LEDs on or off
var powerCmd = &cobra.Command{
	Use:       "power <on|off>",
	Short:     "Switch the LEDs on or off",
	Example:   `  ledbench power off --device 192.168.1.23`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := parseSwitch(args[0], "on", "off")
		if err != nil {
			return err
		}
		return runAction(cmd, args, "Power", session.Power(on))
	},
}

// colorCmd selects a preset
var colorCmd = &cobra.Command{
	Use:   "color <0-7|#rrggbb>",
	Short: "Select a preset colour",
	Long: `Select one of the controller's preset colours.

  0  rainbow animation
  1  red        2  orange     3  yellow     4  green
  5  cyan       6  blue       7  purple

A #rrggbb hex colour is converted to HSV and sent instead.`,
	Example: `  # Blue
  ledbench color 6 --device 192.168.1.23

  # Back to the rainbow
  ledbench color 0

  # Any colour by hex
  ledbench color '#ff8800'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.HasPrefix(args[0], "#") {
			return runHex(cmd, args)
		}

		index, err := parseInt("preset", args[0])
		if err != nil {
			return err
		}
		if err := deviceapi.ValidatePreset(index); err != nil {
			return err
		}

		params := []ui.Param{}
		if preset, ok := color.Preset(index); ok {
			name := preset.Name
			if index != color.RainbowPreset {
				name += " " + ui.Swatch(preset.Output, 4)
			}
			params = append(params, ui.Param{Key: "Preset", Value: name})
		}
		return runAction(cmd, args, "Preset", session.Preset(index), params...)
	},
}

func runHex(cmd *cobra.Command, args []string) error {
	rgb, err := color.ParseHex(args[0])
	if err != nil {
		return deviceapi.NewValidationError(err.Error())
	}
	c := rgb.HSV()
	return runAction(cmd, args, "Hex Colour", session.HSV(c, nil),
		ui.Param{Key: "Colour", Value: rgb.Hex() + " " + c.String() + " " + ui.Swatch(rgb, 4)})
}

// brightnessCmd sets global brightness
var brightnessCmd = &cobra.Command{
	Use:     "brightness <0-100>",
	Short:   "Set global brightness",
	Example: `  ledbench brightness 40 --device 192.168.1.23`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := parseInt("brightness", args[0])
		if err != nil {
			return err
		}
		if err := deviceapi.ValidatePercent("brightness", b); err != nil {
			return err
		}
		return runAction(cmd, args, "Brightness", session.Brightness(b))
	},
}

// hsvCmd sends a colour as hue, saturation and value
var hsvCmd = &cobra.Command{
	Use:   "hsv <hue> <saturation> <value>",
	Short: "Send a colour as HSV",
	Long: `Send a colour as hue (0-360), saturation (0-100) and value (0-100).

--brightness sends global brightness in the same request.`,
	Example: `  # Pure red
  ledbench hsv 0 100 100

  # Dim teal
  ledbench hsv 180 60 100 --brightness 20`,
	Args: cobra.ExactArgs(3),
	RunE: runHSV,
}

func init() {
	hsvCmd.Flags().IntVar(&hsvBrightness, "brightness", -1, "Also set brightness (0-100)")
}

func runHSV(cmd *cobra.Command, args []string) error {
	h, err := parseInt("hue", args[0])
	if err != nil {
		return err
	}
	s, err := parseInt("saturation", args[1])
	if err != nil {
		return err
	}
	v, err := parseInt("value", args[2])
	if err != nil {
		return err
	}
	if err := deviceapi.ValidateHue(h); err != nil {
		return err
	}
	if err := deviceapi.ValidatePercent("saturation", s); err != nil {
		return err
	}
	if err := deviceapi.ValidatePercent("value", v); err != nil {
		return err
	}
	brightness, err := brightnessFlag(cmd, hsvBrightness)
	if err != nil {
		return err
	}

	c := color.HSV{Hue: float64(h), Saturation: float64(s), Value: float64(v)}
	return runAction(cmd, args, "HSV Colour", session.HSV(c, brightness),
		ui.Param{Key: "Colour", Value: c.String() + " " + ui.Swatch(c.RGB(), 4)})
}

// pickCmd sends the colour under a point of the picker wheel
var pickCmd = &cobra.Command{
	Use:   "pick <x> <y>",
	Short: "Send the colour at a point of the colour wheel",
	Long: `Map a point of the colour wheel to hue and saturation and send it.

Coordinates are in picker pixels with y growing downward; the wheel geometry
comes from the picker section of the settings file. Points outside the wheel
are rejected.

--strip picks from the 250x80 hue strip instead: hue runs across it and
value falls from 100 at the top to 50 at the bottom. --value is ignored.`,
	Example: `  # Centre of the default wheel is white
  ledbench pick 200 200

  # Fully saturated red on the right rim, at half value
  ledbench pick 380 200 --value 50

  # Cyan at three-quarter value from the strip
  ledbench pick 125 40 --strip`,
	Args: cobra.ExactArgs(2),
	RunE: runPick,
}

func init() {
	pickCmd.Flags().IntVar(&pickValue, "value", 100, "HSV value (0-100)")
	pickCmd.Flags().BoolVar(&pickStrip, "strip", false, "Pick from the hue strip instead of the wheel")
	pickCmd.Flags().IntVar(&hsvBrightness, "brightness", -1, "Also set brightness (0-100)")
}

func runPick(cmd *cobra.Command, args []string) error {
	x, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return deviceapi.NewValidationError(fmt.Sprintf("x must be a number, got %q", args[0]))
	}
	y, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return deviceapi.NewValidationError(fmt.Sprintf("y must be a number, got %q", args[1]))
	}
	if err := deviceapi.ValidatePercent("value", pickValue); err != nil {
		return err
	}
	brightness, err := brightnessFlag(cmd, hsvBrightness)
	if err != nil {
		return err
	}

	if pickStrip {
		strip := picker.DefaultStrip()
		if !strip.Contains(x, y) {
			return deviceapi.NewValidationError(fmt.Sprintf("point (%g,%g) is outside the %gx%g strip", x, y, strip.Width, strip.Height))
		}
		return runAction(cmd, args, "Strip Pick", session.StripPick(strip, x, y, brightness))
	}

	wheel := settings.Circle()
	if !wheel.Contains(x, y) {
		return deviceapi.NewValidationError(fmt.Sprintf("point (%g,%g) is outside the colour wheel", x, y))
	}

	action := session.Pick(wheel, x, y, float64(pickValue), brightness)
	return runAction(cmd, args, "Wheel Pick", action)
}

// broadcastCmd toggles the controller's UDP announcements
var broadcastCmd = &cobra.Command{
	Use:       "broadcast <enable|disable>",
	Short:     "Enable or disable UDP announcements",
	Example:   `  ledbench broadcast enable --device 192.168.1.23`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"enable", "disable"},
	RunE: func(cmd *cobra.Command, args []string) error {
		enable, err := parseSwitch(args[0], "enable", "disable")
		if err != nil {
			return err
		}
		return runAction(cmd, args, "Broadcast", session.Broadcast(enable))
	},
}

// runAction connects to the target controller, performs a and prints the
// outcome. Extra params are shown in the header.
func runAction(cmd *cobra.Command, args []string, title string, a session.Action, params ...ui.Param) error {
	ctx := cmd.Context()
	p := ui.NewPrinter(os.Stdout)

	ip, err := resolveDevice(ctx, p)
	if err != nil {
		return err
	}

	header := append([]ui.Param{{Key: "Device", Value: ip}, {Key: "Action", Value: a.String()}}, params...)
	p.PrintHeader(title, commandLine(cmd, args), header...)

	sess := newSession()
	defer sess.Close()

	if err := sess.Connect(ctx, ip); err != nil {
		p.PrintFailure("Connection Failed", err)
		return err
	}
	if err := sess.Do(ctx, a); err != nil {
		p.PrintFailure(title+" Failed", err)
		return err
	}

	details := []ui.Param{}
	if r, ok := sess.Results().Last(); ok {
		details = append(details, ui.Param{Key: "Result", Value: r.Outcome})
	}
	if conn := sess.Connection(); conn != nil && conn.Info != nil {
		details = append(details, ui.Param{Key: "Device", Value: conn.Info.Summary()})
	}
	p.PrintSuccess(title+" Applied", details...)
	return nil
}

// newSession builds a session from the loaded settings
func newSession() *session.Session {
	return session.New(session.Options{
		Port:           settings.Device.Port,
		ControlTimeout: settings.Device.ControlTimeout,
		Broadcast:      settings.BroadcastConfig(),
	})
}

// resolveDevice returns the controller to talk to: --device, then the
// settings file, then a subnet sweep that must identify exactly one
// controller.
func resolveDevice(ctx context.Context, p *ui.Printer) (string, error) {
	if deviceIP != "" {
		if err := deviceapi.ValidateIP(deviceIP); err != nil {
			return "", err
		}
		return deviceIP, nil
	}
	if settings.Device.Address != "" {
		return settings.Device.Address, nil
	}

	p.Println(ui.StepNoteStyle.Render("No device specified, sweeping the local subnet..."))
	report, err := settings.Scanner().Sweep(ctx)
	if err != nil {
		return "", fmt.Errorf("discovery failed: %w", err)
	}

	var found []*discovery.Device
	for _, d := range report.Devices {
		if d.Identified() {
			found = append(found, d)
		}
	}

	switch len(found) {
	case 0:
		return "", fmt.Errorf("no controllers found on %s; use --device to specify one", report.Prefix)
	case 1:
		p.Println(fmt.Sprintf("Found controller: %s", found[0]))
		p.Newline()
		return found[0].IP, nil
	default:
		p.Println(ui.RenderDevices(found))
		return "", fmt.Errorf("found %d controllers; use --device to specify which one", len(found))
	}
}

// brightnessFlag returns the brightness flag value, or nil when unset
func brightnessFlag(cmd *cobra.Command, value int) (*int, error) {
	if !cmd.Flags().Changed("brightness") {
		return nil, nil
	}
	if err := deviceapi.ValidatePercent("brightness", value); err != nil {
		return nil, err
	}
	return &value, nil
}

func parseInt(name, s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, deviceapi.NewValidationError(fmt.Sprintf("%s must be an integer, got %q", name, s))
	}
	return v, nil
}

func parseSwitch(s, on, off string) (bool, error) {
	switch strings.ToLower(s) {
	case on:
		return true, nil
	case off:
		return false, nil
	}
	return false, deviceapi.NewValidationError(fmt.Sprintf("expected %s or %s, got %q", on, off, s))
}

func commandLine(cmd *cobra.Command, args []string) string {
	return strings.TrimSpace(cmd.CommandPath() + " " + strings.Join(args, " "))
}
