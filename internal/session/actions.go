package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/ledbench/internal/color"
	"github.com/muurk/ledbench/internal/deviceapi"
	"github.com/muurk/ledbench/internal/picker"
)

// Action is one device operation. Exactly one of Params or Broadcast is
// meaningful: a non-nil Broadcast targets the broadcast endpoint.
type Action struct {
	Label     string
	Params    deviceapi.ControlParams
	Broadcast *bool
}

// String returns the label used in the result log
func (a Action) String() string {
	if a.Label != "" {
		return a.Label
	}
	if a.Broadcast != nil {
		if *a.Broadcast {
			return "broadcast ENABLE"
		}
		return "broadcast DISABLE"
	}
	return a.Params.Describe()
}

// Power switches the LEDs on or off
func Power(on bool) Action {
	return Action{Params: deviceapi.PowerParams(on)}
}

// Preset selects a preset colour, 0 being rainbow
func Preset(index int) Action {
	return Action{Params: deviceapi.PresetParams(index)}
}

// Brightness sets global brightness
func Brightness(brightness int) Action {
	return Action{Params: deviceapi.BrightnessParams(brightness)}
}

// HSV sends a colour, with brightness when non-nil
func HSV(c color.HSV, brightness *int) Action {
	return Action{Params: deviceapi.HSVParams(c, brightness)}
}

// Broadcast enables or disables the controller's UDP announcements
func Broadcast(enable bool) Action {
	return Action{Broadcast: &enable}
}

// Pick maps a point on the colour wheel to hue and saturation and sends it
// at the given value.
func Pick(wheel picker.Circle, x, y, value float64, brightness *int) Action {
	hue, sat := wheel.PointToHueSat(x, y)
	c := color.HSV{Hue: hue, Saturation: sat, Value: value}.Normalize()
	a := HSV(c, brightness)
	a.Label = fmt.Sprintf("pick (%.0f,%.0f) %s", x, y, c)
	return a
}

// StripPick sends the colour under a point of the hue strip
func StripPick(strip picker.Strip, x, y float64, brightness *int) Action {
	hue, sat, val := strip.PointToHSV(x, y)
	c := color.HSV{Hue: hue, Saturation: sat, Value: val}.Normalize()
	a := HSV(c, brightness)
	a.Label = fmt.Sprintf("strip (%.0f,%.0f) %s", x, y, c)
	return a
}

// Performer runs actions against a device
type Performer interface {
	Perform(ctx context.Context, a Action) ResultLogged
}

// Target is an immutable view of the connection, safe to hand to workers
type Target struct {
	IP     string
	Client *deviceapi.Client

	logger *zap.Logger
}

// Perform issues a single request for a and reports the outcome as an
// event. After a successful call the device info is refreshed; a failed
// refresh is only logged.
func (t Target) Perform(ctx context.Context, a Action) ResultLogged {
	label := a.String()

	var (
		resp *deviceapi.ControlResponse
		err  error
	)
	if a.Broadcast != nil {
		resp, err = t.Client.SetBroadcast(ctx, *a.Broadcast)
	} else {
		resp, err = t.Client.Control(ctx, a.Params)
	}
	if err != nil {
		return ResultLogged{Result: Failure(label, err), Err: err, IP: t.IP}
	}

	ev := ResultLogged{Result: Success(label, ""), IP: t.IP}

	info, err := t.Client.Info(ctx)
	if err != nil {
		if t.logger != nil {
			t.logger.Debug("Info refresh failed",
				zap.String("ip", t.IP),
				zap.Duration("action_elapsed", resp.Elapsed),
				zap.Error(err),
			)
		}
		return ev
	}
	ev.Info = info
	return ev
}
