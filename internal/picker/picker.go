// Package picker maps pointer positions on colour-picker widgets to colour
// coordinates and back. It knows nothing about colour conversion or
// rendering; callers feed the results to the color package.
package picker

import "math"

// Default geometry of the circular picker, in pixels.
const (
	DefaultCenterX     = 200
	DefaultCenterY     = 200
	DefaultOuterRadius = 180
	DefaultInnerRadius = 50
)

// Circle is a hue/saturation disc. Hue is the angle around the center with
// 0° pointing along +x and increasing counter-clockwise as seen on screen.
// Saturation grows from 0 at InnerRadius to 100 at OuterRadius.
type Circle struct {
	CenterX     float64
	CenterY     float64
	InnerRadius float64
	OuterRadius float64
}

// DefaultCircle returns the standard picker geometry.
func DefaultCircle() Circle {
	return Circle{
		CenterX:     DefaultCenterX,
		CenterY:     DefaultCenterY,
		InnerRadius: DefaultInnerRadius,
		OuterRadius: DefaultOuterRadius,
	}
}

// PointToHueSat maps a screen point (y grows downward) to hue and saturation.
func (c Circle) PointToHueSat(x, y float64) (hue, sat float64) {
	dx := x - c.CenterX
	dy := -(y - c.CenterY)

	hue = math.Atan2(dy, dx) * 180 / math.Pi
	if hue < 0 {
		hue += 360
	}
	if hue >= 360 {
		hue = 0
	}

	span := c.OuterRadius - c.InnerRadius
	if span <= 0 {
		return hue, 100
	}

	d := math.Hypot(dx, dy)
	d = math.Max(c.InnerRadius, math.Min(c.OuterRadius, d))

	sat = (d - c.InnerRadius) / span * 100
	return hue, math.Max(0, math.Min(100, sat))
}

// HueSatToPoint is the inverse of PointToHueSat.
func (c Circle) HueSatToPoint(hue, sat float64) (x, y float64) {
	sat = math.Max(0, math.Min(100, sat))
	d := c.InnerRadius + sat/100*(c.OuterRadius-c.InnerRadius)
	rad := hue * math.Pi / 180

	return c.CenterX + math.Cos(rad)*d, c.CenterY - math.Sin(rad)*d
}

// Contains reports whether (x, y) lies on the disc.
func (c Circle) Contains(x, y float64) bool {
	return math.Hypot(x-c.CenterX, y-c.CenterY) <= c.OuterRadius
}

// Strip is a rectangular picker: hue runs left to right across the full
// circle and value falls from 100 at the top edge to 50 at the bottom.
// Saturation is always 100.
type Strip struct {
	Width  float64
	Height float64
}

// DefaultStrip returns the standard 250x80 strip.
func DefaultStrip() Strip {
	return Strip{Width: 250, Height: 80}
}

// PointToHSV maps a point on the strip to hue, saturation and value.
// Points outside the strip are clamped onto its edge.
func (s Strip) PointToHSV(x, y float64) (hue, sat, val float64) {
	if s.Width <= 0 || s.Height <= 0 {
		return 0, 100, 100
	}
	x = math.Max(0, math.Min(s.Width, x))
	y = math.Max(0, math.Min(s.Height, y))

	hue = x / s.Width * 360
	if hue >= 360 {
		hue = 0
	}
	return hue, 100, 100 - y/s.Height*50
}

// Contains reports whether (x, y) lies on the strip.
func (s Strip) Contains(x, y float64) bool {
	return x >= 0 && x <= s.Width && y >= 0 && y <= s.Height
}

// HSVToPoint is the inverse of PointToHSV; saturation is ignored.
func (s Strip) HSVToPoint(hue, val float64) (x, y float64) {
	hue = math.Mod(hue, 360)
	if hue < 0 {
		hue += 360
	}
	val = math.Max(50, math.Min(100, val))
	return hue / 360 * s.Width, (100 - val) / 50 * s.Height
}
