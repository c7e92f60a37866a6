package color

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// HSV is a colour in hue/saturation/value form.
// Hue is in degrees, saturation and value are percentages.
type HSV struct {
	Hue        float64
	Saturation float64
	Value      float64
}

// RGB is a colour with 8-bit channels.
type RGB struct {
	R int
	G int
	B int
}

// NormalizeHue wraps h into [0,360).
func NormalizeHue(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	// tiny negative inputs round up to exactly 360
	if h >= 360 {
		h = 0
	}
	return h
}

// ClampPercent clamps p into [0,100].
func ClampPercent(p float64) float64 {
	return math.Max(0, math.Min(100, p))
}

// Normalize returns a copy with hue wrapped and saturation/value clamped.
func (c HSV) Normalize() HSV {
	return HSV{
		Hue:        NormalizeHue(c.Hue),
		Saturation: ClampPercent(c.Saturation),
		Value:      ClampPercent(c.Value),
	}
}

// Rounded returns the normalized triple rounded to whole units, the form
// the device control API accepts.
func (c HSV) Rounded() (h, s, v int) {
	n := c.Normalize()
	h = int(math.Round(n.Hue))
	if h == 360 {
		h = 0
	}
	return h, int(math.Round(n.Saturation)), int(math.Round(n.Value))
}

// RGB converts c with HSVToRGB.
func (c HSV) RGB() RGB {
	return HSVToRGB(c.Hue, c.Saturation, c.Value)
}

func (c HSV) String() string {
	h, s, v := c.Rounded()
	return fmt.Sprintf("H%d° S%d%% V%d%%", h, s, v)
}

// HSVToRGB converts a hue/saturation/value triple to 8-bit RGB using the
// six-sector model. Out-of-range inputs are normalized first and channels
// are truncated, not rounded.
func HSVToRGB(h, s, v float64) RGB {
	h = NormalizeHue(h)
	s = ClampPercent(s) / 100
	v = ClampPercent(v) / 100

	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c

	var r, g, b float64
	switch int(h / 60) {
	case 0:
		r, g, b = c, x, 0
	case 1:
		r, g, b = x, c, 0
	case 2:
		r, g, b = 0, c, x
	case 3:
		r, g, b = 0, x, c
	case 4:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}

	return RGB{
		R: int((r + m) * 255),
		G: int((g + m) * 255),
		B: int((b + m) * 255),
	}
}

// RGBToHSV is the inverse of HSVToRGB. A grey input (r == g == b) has hue 0
// and black has saturation 0.
func RGBToHSV(r, g, b int) HSV {
	rf := float64(clampChannel(r)) / 255
	gf := float64(clampChannel(g)) / 255
	bf := float64(clampChannel(b)) / 255

	maxC := math.Max(rf, math.Max(gf, bf))
	minC := math.Min(rf, math.Min(gf, bf))
	delta := maxC - minC

	var h float64
	switch {
	case delta == 0:
		h = 0
	case maxC == rf:
		h = 60 * math.Mod((gf-bf)/delta, 6)
	case maxC == gf:
		h = 60 * ((bf-rf)/delta + 2)
	default:
		h = 60 * ((rf-gf)/delta + 4)
	}

	var s float64
	if maxC != 0 {
		s = delta / maxC
	}

	return HSV{Hue: NormalizeHue(h), Saturation: s * 100, Value: maxC * 100}
}

// HSV converts c with RGBToHSV.
func (c RGB) HSV() HSV {
	return RGBToHSV(c.R, c.G, c.B)
}

// Scale applies a 0-100 brightness the way the controller firmware does,
// with integer arithmetic.
func (c RGB) Scale(brightness int) RGB {
	if brightness < 0 {
		brightness = 0
	}
	if brightness > 100 {
		brightness = 100
	}
	scaled := brightness * 255 / 100
	return RGB{
		R: clampChannel(c.R) * scaled / 255,
		G: clampChannel(c.G) * scaled / 255,
		B: clampChannel(c.B) * scaled / 255,
	}
}

// Hex returns the colour as "#rrggbb".
func (c RGB) Hex() string {
	return c.Colorful().Hex()
}

// Colorful returns c as a go-colorful colour.
func (c RGB) Colorful() colorful.Color {
	return colorful.Color{
		R: float64(clampChannel(c.R)) / 255,
		G: float64(clampChannel(c.G)) / 255,
		B: float64(clampChannel(c.B)) / 255,
	}
}

func (c RGB) String() string {
	return fmt.Sprintf("RGB(%d,%d,%d)", c.R, c.G, c.B)
}

// ParseHex parses "#rrggbb" into an RGB.
func ParseHex(s string) (RGB, error) {
	cf, err := colorful.Hex(s)
	if err != nil {
		return RGB{}, fmt.Errorf("invalid hex colour %q: %w", s, err)
	}
	r, g, b := cf.RGB255()
	return RGB{R: int(r), G: int(g), B: int(b)}, nil
}

func clampChannel(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
