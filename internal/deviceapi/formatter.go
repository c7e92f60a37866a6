package deviceapi

import (
	"fmt"
	"strings"
	"time"
)

// Summary returns a one-line summary of the controller identity
func (d *DeviceInfo) Summary() string {
	name := d.DeviceName
	if name == "" {
		name = "unnamed controller"
	}
	return fmt.Sprintf("%s (%s)", name, d.DeviceID)
}

// FormatDetailed returns every info field, one per line, under a timestamped
// heading
func (d *DeviceInfo) FormatDetailed(fetched time.Time) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Device info - %s\n", fetched.Format("2006-01-02 15:04:05")))
	b.WriteString(strings.Repeat("=", 50))
	b.WriteString("\n")

	fields := d.Fields()
	width := 0
	for _, f := range fields {
		if len(f.Key) > width {
			width = len(f.Key)
		}
	}
	for _, f := range fields {
		b.WriteString(fmt.Sprintf("%-*s  %s\n", width+1, f.Key+":", f.Value))
	}

	return b.String()
}

// Describe returns a short human-readable label for control params, e.g.
// "power ON" or "HSV H120° S100% V100% B50%"
func (p ControlParams) Describe() string {
	var parts []string

	if p.Power != nil {
		if *p.Power {
			parts = append(parts, "power ON")
		} else {
			parts = append(parts, "power OFF")
		}
	}
	if p.Color != nil {
		parts = append(parts, fmt.Sprintf("color %d", *p.Color))
	}
	if p.Hue != nil || p.Saturation != nil || p.Value != nil {
		var hsv []string
		if p.Hue != nil {
			hsv = append(hsv, fmt.Sprintf("H%d°", *p.Hue))
		}
		if p.Saturation != nil {
			hsv = append(hsv, fmt.Sprintf("S%d%%", *p.Saturation))
		}
		if p.Value != nil {
			hsv = append(hsv, fmt.Sprintf("V%d%%", *p.Value))
		}
		if p.Brightness != nil {
			hsv = append(hsv, fmt.Sprintf("B%d%%", *p.Brightness))
		}
		parts = append(parts, "HSV "+strings.Join(hsv, " "))
	} else if p.Brightness != nil {
		parts = append(parts, fmt.Sprintf("brightness %d%%", *p.Brightness))
	}

	if len(parts) == 0 {
		return "no-op"
	}
	return strings.Join(parts, ", ")
}
