package simulator

import (
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/muurk/ledbench/internal/color"
	"github.com/muurk/ledbench/internal/deviceapi"
)

// Mode is what the simulated strip is showing
type Mode string

const (
	ModeRainbow Mode = "rainbow"
	ModePreset  Mode = "preset"
	ModeHSV     Mode = "hsv"
)

// DefaultBrightness matches the firmware's power-on brightness
const DefaultBrightness = 50

// State is a snapshot of the simulated controller. It is also the
// /api/info document and the websocket feed payload.
type State struct {
	DeviceID   string  `json:"device_id"`
	DeviceName string  `json:"device_name"`
	Power      string  `json:"power"`
	Mode       Mode    `json:"mode"`
	Color      int     `json:"color"`
	Brightness int     `json:"brightness"`
	Hue        int     `json:"hue"`
	Saturation int     `json:"saturation"`
	Value      int     `json:"value"`
	Broadcast  bool    `json:"broadcast"`
	RGB        [3]int  `json:"rgb"`
	Uptime     float64 `json:"uptime"`
}

// Output returns the driven colour as an RGB
func (s State) Output() color.RGB {
	return color.RGB{R: s.RGB[0], G: s.RGB[1], B: s.RGB[2]}
}

// LED models one RGB pixel driven by the controller firmware. It is safe
// for concurrent use; every change is published to subscribers.
type LED struct {
	mu sync.Mutex

	id, name   string
	started    time.Time
	power      bool
	mode       Mode
	preset     int
	hsv        color.HSV
	brightness int
	broadcast  bool
	wheelPos   byte

	subs   map[int]chan State
	nextID int
}

// NewLED creates a powered-on LED running the rainbow animation
func NewLED(id, name string) *LED {
	return &LED{
		id:         id,
		name:       name,
		started:    time.Now(),
		power:      true,
		mode:       ModeRainbow,
		hsv:        color.HSV{Hue: 0, Saturation: 100, Value: 100},
		brightness: DefaultBrightness,
		subs:       make(map[int]chan State),
	}
}

// Snapshot returns the current state
func (l *LED) Snapshot() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *LED) snapshotLocked() State {
	h, s, v := l.hsv.Rounded()
	out := l.outputLocked()

	st := State{
		DeviceID:   l.id,
		DeviceName: l.name,
		Power:      "off",
		Mode:       l.mode,
		Color:      l.preset,
		Brightness: l.brightness,
		Hue:        h,
		Saturation: s,
		Value:      v,
		Broadcast:  l.broadcast,
		RGB:        [3]int{out.R, out.G, out.B},
		Uptime:     time.Since(l.started).Round(time.Millisecond).Seconds(),
	}
	if l.power {
		st.Power = "on"
	}
	return st
}

func (l *LED) outputLocked() color.RGB {
	if !l.power {
		return color.RGB{}
	}
	var base color.RGB
	switch l.mode {
	case ModeRainbow:
		base = color.Wheel(l.wheelPos)
	case ModePreset:
		p, _ := color.Preset(l.preset)
		base = p.Output
	case ModeHSV:
		base = l.hsv.RGB()
	}
	return base.Scale(l.brightness)
}

// controlUpdate is a validated /api/control request
type controlUpdate struct {
	power      *bool
	preset     *int
	hue        *int
	saturation *int
	value      *int
	brightness *int
}

// parseControl validates every parameter before anything changes, so a bad
// request leaves the LED untouched
func parseControl(q url.Values) (controlUpdate, error) {
	var u controlUpdate

	if v := q.Get("power"); v != "" {
		switch v {
		case "on":
			on := true
			u.power = &on
		case "off":
			off := false
			u.power = &off
		default:
			return u, deviceapi.NewValidationError(fmt.Sprintf("power must be on or off, got %q", v))
		}
	}

	ints := []struct {
		name  string
		dst   **int
		check func(int) error
	}{
		{"color", &u.preset, deviceapi.ValidatePreset},
		{"hue", &u.hue, deviceapi.ValidateHue},
		{"saturation", &u.saturation, func(v int) error { return deviceapi.ValidatePercent("saturation", v) }},
		{"value", &u.value, func(v int) error { return deviceapi.ValidatePercent("value", v) }},
		{"brightness", &u.brightness, func(v int) error { return deviceapi.ValidatePercent("brightness", v) }},
	}
	for _, p := range ints {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return u, deviceapi.NewValidationError(fmt.Sprintf("%s must be an integer, got %q", p.name, raw))
		}
		if err := p.check(n); err != nil {
			return u, err
		}
		*p.dst = &n
	}

	if u == (controlUpdate{}) {
		return u, deviceapi.NewValidationError("no control parameter set")
	}
	return u, nil
}

// Control applies a /api/control query. Invalid queries change nothing.
func (l *LED) Control(q url.Values) (State, error) {
	u, err := parseControl(q)
	if err != nil {
		return State{}, err
	}

	l.mu.Lock()
	if u.power != nil {
		l.power = *u.power
	}
	if u.preset != nil {
		l.preset = *u.preset
		if l.preset == color.RainbowPreset {
			l.mode = ModeRainbow
		} else {
			l.mode = ModePreset
		}
	}
	if u.hue != nil || u.saturation != nil || u.value != nil {
		if u.hue != nil {
			l.hsv.Hue = float64(*u.hue)
		}
		if u.saturation != nil {
			l.hsv.Saturation = float64(*u.saturation)
		}
		if u.value != nil {
			l.hsv.Value = float64(*u.value)
		}
		l.hsv = l.hsv.Normalize()
		l.mode = ModeHSV
	}
	if u.brightness != nil {
		l.brightness = *u.brightness
	}
	st := l.snapshotLocked()
	l.publishLocked(st)
	l.mu.Unlock()

	return st, nil
}

// SetBroadcast turns announcements on or off
func (l *LED) SetBroadcast(enable bool) State {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.broadcast = enable
	st := l.snapshotLocked()
	l.publishLocked(st)
	return st
}

// Broadcasting reports whether announcements are enabled
func (l *LED) Broadcasting() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.broadcast
}

// Step advances the rainbow animation by one wheel position. It is a no-op
// unless the LED is on and in rainbow mode.
func (l *LED) Step() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.power || l.mode != ModeRainbow {
		return
	}
	l.wheelPos++
	l.publishLocked(l.snapshotLocked())
}

// Subscribe returns a channel of state changes and a function that ends the
// subscription. Slow subscribers only see the latest state.
func (l *LED) Subscribe() (<-chan State, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch := make(chan State, 1)
	id := l.nextID
	l.nextID++
	l.subs[id] = ch
	ch <- l.snapshotLocked()

	return ch, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if _, ok := l.subs[id]; ok {
			delete(l.subs, id)
			close(ch)
		}
	}
}

func (l *LED) publishLocked(st State) {
	for _, ch := range l.subs {
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}
