// Package deviceapi provides an HTTP client for the LED controller's local API.
//
// The controller exposes three GET endpoints:
//   - /api/info: JSON identity document (device_id, device_name, state)
//   - /api/control: power, color (preset 0-7), brightness, hue, saturation, value
//   - /api/broadcast: action=enable|disable for UDP announcements
//
// # Usage Example
//
//	client := deviceapi.NewClient("192.168.1.23", 80)
//
//	info, err := client.Info(ctx)
//	if err != nil {
//	    log.Fatal(deviceapi.GetShortErrorMessage(err))
//	}
//
//	if _, err := client.SetPreset(ctx, 1); err != nil {
//	    log.Printf("set colour failed: %v", err)
//	}
//
// # One Attempt per Call
//
// The client never retries and never keeps connections alive. Each call is
// bounded by the client's timeout (ControlTimeout by default; discovery uses
// WithTimeout(ProbeTimeout)) and by the context. Pacing and repetition are
// the caller's business.
//
// # Error Handling
//
// Every failure is a *DeviceError with one of these types:
//   - ErrTypeTransport: timeout, refused, unreachable, DNS
//   - ErrTypeProtocol: non-200 status or malformed body
//   - ErrTypeConfiguration: no device connected, unusable network setup
//   - ErrTypeValidation: argument out of range (no request is made)
//   - ErrTypeConcurrency: duplicate start, reported as a warning
//
// Use the Is* predicates rather than comparing types; they see through
// fmt.Errorf wrapping.
package deviceapi
