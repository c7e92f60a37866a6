package deviceapi

import (
	"fmt"
	"net"

	"github.com/muurk/ledbench/internal/color"
)

// ValidatePreset validates a preset colour index (0 is rainbow, 1-7 fixed colours).
func ValidatePreset(index int) error {
	if index < 0 || index > color.MaxPreset {
		return NewValidationError(fmt.Sprintf("preset colour must be 0-%d, got %d", color.MaxPreset, index))
	}
	return nil
}

// ValidatePercent validates a 0-100 parameter such as brightness.
func ValidatePercent(name string, value int) error {
	if value < 0 || value > 100 {
		return NewValidationError(fmt.Sprintf("%s must be 0-100, got %d", name, value))
	}
	return nil
}

// ValidateHue validates a hue in degrees. 360 is accepted and means the
// same as 0.
func ValidateHue(hue int) error {
	if hue < 0 || hue > 360 {
		return NewValidationError(fmt.Sprintf("hue must be 0-360, got %d", hue))
	}
	return nil
}

// ValidateParams validates every set field of p.
// Returns a slice of validation errors (empty if valid).
func ValidateParams(p ControlParams) []error {
	var errs []error

	if p.Empty() {
		errs = append(errs, NewValidationError("no control parameter set"))
	}
	if p.Color != nil {
		if err := ValidatePreset(*p.Color); err != nil {
			errs = append(errs, err)
		}
	}
	if p.Brightness != nil {
		if err := ValidatePercent("brightness", *p.Brightness); err != nil {
			errs = append(errs, err)
		}
	}
	if p.Hue != nil {
		if err := ValidateHue(*p.Hue); err != nil {
			errs = append(errs, err)
		}
	}
	if p.Saturation != nil {
		if err := ValidatePercent("saturation", *p.Saturation); err != nil {
			errs = append(errs, err)
		}
	}
	if p.Value != nil {
		if err := ValidatePercent("value", *p.Value); err != nil {
			errs = append(errs, err)
		}
	}

	return errs
}

// ValidateIP validates a controller address. Only IPv4 literals are accepted.
func ValidateIP(ip string) error {
	if ip == "" {
		return NewValidationError("IP address cannot be empty")
	}
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.To4() == nil {
		return NewValidationError(fmt.Sprintf("invalid IPv4 address: %q", ip))
	}
	return nil
}
