package deviceapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/muurk/ledbench/internal/color"
)

// Endpoint paths exposed by the controller firmware.
const (
	InfoPath      = "/api/info"
	ControlPath   = "/api/control"
	BroadcastPath = "/api/broadcast"
)

// DeviceInfo is the identity document returned by GET /api/info.
//
// Only device_id and device_name are required. Anything else the firmware
// reports (power state, colour, uptime...) is kept in Extra for display.
type DeviceInfo struct {
	DeviceID   string         `json:"device_id"`
	DeviceName string         `json:"device_name"`
	Extra      map[string]any `json:"-"`
}

// ParseDeviceInfo decodes an info body. A body that is not a JSON object, or
// that has no device_id, is a malformed-body protocol error.
func ParseDeviceInfo(body []byte) (*DeviceInfo, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, NewMalformedBodyError("empty info response", nil)
	}

	var raw map[string]any
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, NewMalformedBodyError("failed to parse info response", err)
	}

	id, ok := raw["device_id"]
	if !ok {
		return nil, NewMalformedBodyError("info response has no device_id", nil)
	}

	info := &DeviceInfo{
		DeviceID: fmt.Sprint(id),
		Extra:    make(map[string]any),
	}
	if name, ok := raw["device_name"]; ok {
		info.DeviceName = fmt.Sprint(name)
	}

	for k, v := range raw {
		if k == "device_id" || k == "device_name" {
			continue
		}
		info.Extra[k] = v
	}

	return info, nil
}

// Field is one key/value pair of a DeviceInfo, formatted for display.
type Field struct {
	Key   string
	Value string
}

// Fields returns every field of the info document, identity first and the
// rest sorted by key.
func (d *DeviceInfo) Fields() []Field {
	fields := []Field{
		{Key: "device_id", Value: d.DeviceID},
		{Key: "device_name", Value: d.DeviceName},
	}

	keys := make([]string, 0, len(d.Extra))
	for k := range d.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fields = append(fields, Field{Key: k, Value: formatValue(d.Extra[k])})
	}
	return fields
}

func formatValue(v any) string {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case string:
		return t
	case nil:
		return "null"
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// ControlParams is the set of independently settable control parameters.
// Nil fields are left out of the request.
type ControlParams struct {
	Power      *bool
	Color      *int
	Brightness *int
	Hue        *int
	Saturation *int
	Value      *int
}

// PowerParams switches the LEDs on or off.
func PowerParams(on bool) ControlParams {
	return ControlParams{Power: &on}
}

// PresetParams selects a preset colour (0 is rainbow).
func PresetParams(index int) ControlParams {
	return ControlParams{Color: &index}
}

// BrightnessParams sets the global brightness.
func BrightnessParams(brightness int) ControlParams {
	return ControlParams{Brightness: &brightness}
}

// HSVParams sets hue, saturation and value, and brightness when given.
// The colour is normalized and rounded to whole units first.
func HSVParams(c color.HSV, brightness *int) ControlParams {
	h, s, v := c.Rounded()
	p := ControlParams{Hue: &h, Saturation: &s, Value: &v}
	if brightness != nil {
		b := *brightness
		p.Brightness = &b
	}
	return p
}

// Empty reports whether no parameter is set.
func (p ControlParams) Empty() bool {
	return p.Power == nil && p.Color == nil && p.Brightness == nil &&
		p.Hue == nil && p.Saturation == nil && p.Value == nil
}

// ToQuery converts the params to the query string the firmware expects.
func (p ControlParams) ToQuery() url.Values {
	q := url.Values{}

	if p.Power != nil {
		if *p.Power {
			q.Set("power", "on")
		} else {
			q.Set("power", "off")
		}
	}
	if p.Color != nil {
		q.Set("color", strconv.Itoa(*p.Color))
	}
	if p.Hue != nil {
		q.Set("hue", strconv.Itoa(*p.Hue))
	}
	if p.Saturation != nil {
		q.Set("saturation", strconv.Itoa(*p.Saturation))
	}
	if p.Value != nil {
		q.Set("value", strconv.Itoa(*p.Value))
	}
	if p.Brightness != nil {
		q.Set("brightness", strconv.Itoa(*p.Brightness))
	}

	return q
}

// ControlResponse describes a successful control call. The body is kept
// verbatim; the firmware's wording is not part of the contract.
type ControlResponse struct {
	StatusCode int
	Body       string
	Elapsed    time.Duration
}
