package simulator

import (
	"net/url"
	"testing"

	"github.com/muurk/ledbench/internal/color"
	"github.com/muurk/ledbench/internal/deviceapi"
)

func query(kv ...string) url.Values {
	q := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		q.Set(kv[i], kv[i+1])
	}
	return q
}

func TestControl(t *testing.T) {
	tests := []struct {
		name     string
		query    url.Values
		wantMode Mode
		wantRGB  [3]int
	}{
		{"preset red at full", query("color", "1", "brightness", "100"), ModePreset, [3]int{255, 0, 0}},
		{"preset cyan", query("color", "5", "brightness", "100"), ModePreset, [3]int{0, 128, 128}},
		{"hsv green", query("hue", "120", "saturation", "100", "value", "100", "brightness", "100"), ModeHSV, [3]int{0, 255, 0}},
		{"half brightness", query("color", "6", "brightness", "50"), ModePreset, [3]int{0, 0, 127}},
		{"power off", query("color", "1", "power", "off"), ModePreset, [3]int{0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			led := NewLED("id", "name")
			st, err := led.Control(tt.query)
			if err != nil {
				t.Fatalf("Control() error = %v", err)
			}
			if st.Mode != tt.wantMode {
				t.Errorf("Mode = %s, want %s", st.Mode, tt.wantMode)
			}
			if st.RGB != tt.wantRGB {
				t.Errorf("RGB = %v, want %v", st.RGB, tt.wantRGB)
			}
		})
	}
}

func TestControlRejectsWithoutChange(t *testing.T) {
	tests := []struct {
		name  string
		query url.Values
	}{
		{"empty", query()},
		{"preset out of range", query("color", "8")},
		{"hue out of range", query("hue", "361")},
		{"brightness not a number", query("brightness", "bright")},
		{"bad power", query("power", "maybe")},
		{"one bad among good", query("color", "2", "saturation", "101")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			led := NewLED("id", "name")
			before := led.Snapshot()

			_, err := led.Control(tt.query)
			if !deviceapi.IsValidationError(err) {
				t.Fatalf("Control() error = %v, want validation error", err)
			}
			after := led.Snapshot()
			after.Uptime = before.Uptime
			if after != before {
				t.Errorf("state changed on rejected request: %+v -> %+v", before, after)
			}
		})
	}
}

func TestHSVKeepsUnsetComponents(t *testing.T) {
	led := NewLED("id", "name")
	if _, err := led.Control(query("hue", "200", "saturation", "40", "value", "60")); err != nil {
		t.Fatal(err)
	}
	st, err := led.Control(query("hue", "10"))
	if err != nil {
		t.Fatal(err)
	}
	if st.Hue != 10 || st.Saturation != 40 || st.Value != 60 {
		t.Errorf("HSV = %d/%d/%d, want 10/40/60", st.Hue, st.Saturation, st.Value)
	}
}

func TestRainbowStep(t *testing.T) {
	led := NewLED("id", "name")
	if _, err := led.Control(query("brightness", "100")); err != nil {
		t.Fatal(err)
	}

	first := led.Snapshot().Output()
	if first != color.Wheel(0) {
		t.Errorf("output = %v, want Wheel(0) %v", first, color.Wheel(0))
	}
	led.Step()
	if got := led.Snapshot().Output(); got != color.Wheel(1) {
		t.Errorf("output after step = %v, want %v", got, color.Wheel(1))
	}

	if _, err := led.Control(query("color", "1")); err != nil {
		t.Fatal(err)
	}
	before := led.Snapshot().RGB
	led.Step()
	if got := led.Snapshot().RGB; got != before {
		t.Errorf("Step changed a fixed preset: %v -> %v", before, got)
	}
}

func TestSubscribe(t *testing.T) {
	led := NewLED("id", "name")
	states, unsubscribe := led.Subscribe()

	initial := <-states
	if initial.Mode != ModeRainbow {
		t.Errorf("initial mode = %s, want %s", initial.Mode, ModeRainbow)
	}

	// two changes coalesce into the latest
	_, _ = led.Control(query("color", "2"))
	_, _ = led.Control(query("color", "3"))
	if got := <-states; got.Color != 3 {
		t.Errorf("Color = %d, want 3", got.Color)
	}

	unsubscribe()
	unsubscribe()
	if _, ok := <-states; ok {
		t.Error("channel still open after unsubscribe")
	}
}

func TestBroadcastToggle(t *testing.T) {
	led := NewLED("id", "name")
	if led.Broadcasting() {
		t.Fatal("broadcast on by default")
	}
	if st := led.SetBroadcast(true); !st.Broadcast {
		t.Error("SetBroadcast(true) not reflected in state")
	}
	if !led.Broadcasting() {
		t.Error("Broadcasting() = false after enable")
	}
}
