package deviceapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeTransport indicates the request never got an answer (timeout,
	// connection refused, unreachable host)
	ErrTypeTransport ErrorType = iota
	// ErrTypeProtocol indicates the device answered, but not with what was
	// expected (non-200 status, malformed JSON)
	ErrTypeProtocol
	// ErrTypeConfiguration indicates the harness is not set up for the
	// requested operation (no device connected, no usable subnet)
	ErrTypeConfiguration
	// ErrTypeValidation indicates an argument out of the API's range
	ErrTypeValidation
	// ErrTypeConcurrency indicates a duplicate start of something already
	// running. It is a warning, not a failure.
	ErrTypeConcurrency
)

// TransportSubtype provides more specific transport error classification
type TransportSubtype int

const (
	TransportGeneral TransportSubtype = iota
	TransportTimeout
	TransportConnectionRefused
	TransportDNS
	TransportHostUnreachable
	TransportNetworkUnreachable
)

// ProtocolSubtype separates bad status codes from bad bodies
type ProtocolSubtype int

const (
	ProtocolStatus ProtocolSubtype = iota
	ProtocolMalformedBody
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeTransport:
		return "Transport Error"
	case ErrTypeProtocol:
		return "Protocol Error"
	case ErrTypeConfiguration:
		return "Configuration Error"
	case ErrTypeValidation:
		return "Validation Error"
	case ErrTypeConcurrency:
		return "Warning"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

func (s TransportSubtype) String() string {
	switch s {
	case TransportTimeout:
		return "timeout"
	case TransportConnectionRefused:
		return "connection refused"
	case TransportDNS:
		return "dns"
	case TransportHostUnreachable:
		return "host unreachable"
	case TransportNetworkUnreachable:
		return "network unreachable"
	default:
		return "general"
	}
}

// DeviceError represents an error that occurred while talking to, or
// preparing to talk to, a controller
type DeviceError struct {
	Type       ErrorType        // Category of error
	Message    string           // Human-readable error message
	StatusCode int              // HTTP status code (protocol errors)
	Err        error            // Underlying error (if any)
	Transport  TransportSubtype // Transport detail
	Protocol   ProtocolSubtype  // Protocol detail
	DeviceIP   string           // Device address, for hints
}

// Error implements the error interface
func (e *DeviceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError turns a transport-level failure into a DeviceError
// with the most specific subtype it can find.
func ClassifyNetworkError(err error, deviceIP string) *DeviceError {
	if err == nil {
		return nil
	}

	transport := func(sub TransportSubtype, msg string) *DeviceError {
		return &DeviceError{
			Type:      ErrTypeTransport,
			Message:   msg,
			Err:       err,
			Transport: sub,
			DeviceIP:  deviceIP,
		}
	}

	if os.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return transport(TransportTimeout, "request timed out")
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return transport(TransportTimeout, "request timed out")
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return transport(TransportDNS, fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name))
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return transport(TransportConnectionRefused, "device refused connection")
	case errors.Is(err, syscall.EHOSTUNREACH):
		return transport(TransportHostUnreachable, "host unreachable")
	case errors.Is(err, syscall.ENETUNREACH):
		return transport(TransportNetworkUnreachable, "network unreachable")
	}

	return transport(TransportGeneral, "network error occurred")
}

// NewTransportError creates a transport error with automatic classification
func NewTransportError(message string, deviceIP string, err error) *DeviceError {
	classified := ClassifyNetworkError(err, deviceIP)
	if classified == nil {
		return &DeviceError{Type: ErrTypeTransport, Message: message, DeviceIP: deviceIP}
	}
	classified.Message = message + ": " + classified.Message
	return classified
}

// NewStatusError creates a protocol error for a non-OK status code
func NewStatusError(statusCode int, message string) *DeviceError {
	return &DeviceError{
		Type:       ErrTypeProtocol,
		Protocol:   ProtocolStatus,
		Message:    message,
		StatusCode: statusCode,
	}
}

// NewMalformedBodyError creates a protocol error for a body that could not
// be decoded
func NewMalformedBodyError(message string, err error) *DeviceError {
	return &DeviceError{
		Type:     ErrTypeProtocol,
		Protocol: ProtocolMalformedBody,
		Message:  message,
		Err:      err,
	}
}

// NewConfigurationError creates a configuration error
func NewConfigurationError(message string, err error) *DeviceError {
	return &DeviceError{
		Type:    ErrTypeConfiguration,
		Message: message,
		Err:     err,
	}
}

// NewValidationError creates a validation error
func NewValidationError(message string) *DeviceError {
	return &DeviceError{
		Type:    ErrTypeValidation,
		Message: message,
	}
}

// NewConcurrencyWarning creates a warning for a duplicate start
func NewConcurrencyWarning(message string) *DeviceError {
	return &DeviceError{
		Type:    ErrTypeConcurrency,
		Message: message,
	}
}

// ErrNotConnected is returned by any action that needs a device when none
// is connected.
var ErrNotConnected = NewConfigurationError("no device connected", nil)

func asDeviceError(err error) (*DeviceError, bool) {
	var devErr *DeviceError
	if errors.As(err, &devErr) {
		return devErr, true
	}
	return nil, false
}

func isType(err error, t ErrorType) bool {
	devErr, ok := asDeviceError(err)
	return ok && devErr.Type == t
}

// IsTransportError checks if an error is a transport error
func IsTransportError(err error) bool {
	return isType(err, ErrTypeTransport)
}

// IsTimeout checks if an error is a transport timeout
func IsTimeout(err error) bool {
	devErr, ok := asDeviceError(err)
	return ok && devErr.Type == ErrTypeTransport && devErr.Transport == TransportTimeout
}

// IsConnectionRefused checks if the device actively refused the connection
func IsConnectionRefused(err error) bool {
	devErr, ok := asDeviceError(err)
	return ok && devErr.Type == ErrTypeTransport && devErr.Transport == TransportConnectionRefused
}

// IsProtocolError checks if an error is a protocol error
func IsProtocolError(err error) bool {
	return isType(err, ErrTypeProtocol)
}

// IsStatusError checks if the device answered with a non-OK status
func IsStatusError(err error) bool {
	devErr, ok := asDeviceError(err)
	return ok && devErr.Type == ErrTypeProtocol && devErr.Protocol == ProtocolStatus
}

// IsMalformedBody checks if the device answered with an undecodable body
func IsMalformedBody(err error) bool {
	devErr, ok := asDeviceError(err)
	return ok && devErr.Type == ErrTypeProtocol && devErr.Protocol == ProtocolMalformedBody
}

// IsConfigurationError checks if an error is a configuration error
func IsConfigurationError(err error) bool {
	return isType(err, ErrTypeConfiguration)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return isType(err, ErrTypeValidation)
}

// IsConcurrencyWarning checks if an error is only a duplicate-start warning
func IsConcurrencyWarning(err error) bool {
	return isType(err, ErrTypeConcurrency)
}

// GetTroubleshootingHint returns user-friendly troubleshooting advice for an error
func GetTroubleshootingHint(err error) string {
	devErr, ok := asDeviceError(err)
	if !ok {
		return "An unexpected error occurred. Please try again."
	}

	switch devErr.Type {
	case ErrTypeTransport:
		switch devErr.Transport {
		case TransportTimeout:
			return strings.Join([]string{
				"The controller did not respond in time.",
				"Troubleshooting:",
				"  • Check that the controller is powered on",
				"  • Verify the controller joined the same WiFi network",
				"  • Move the controller closer to the access point",
			}, "\n")
		case TransportConnectionRefused:
			return strings.Join([]string{
				"The host refused the connection.",
				"Troubleshooting:",
				"  • The address may belong to another machine",
				"  • The controller's web server may still be starting - wait and retry",
				"  • Verify the port number (default is 80)",
			}, "\n")
		case TransportHostUnreachable:
			return strings.Join([]string{
				"The controller is not reachable on the network.",
				"Troubleshooting:",
				"  • Verify the controller IP address is correct",
				"  • Run 'ledbench scan' to find it",
				"  • Try pinging the controller: ping " + devErr.DeviceIP,
			}, "\n")
		case TransportNetworkUnreachable:
			return strings.Join([]string{
				"Your computer has no route to the controller's network.",
				"Troubleshooting:",
				"  • Check your network adapter settings",
				"  • Verify WiFi is enabled on your computer",
			}, "\n")
		case TransportDNS:
			return "Could not resolve the controller hostname. Use its IP address instead."
		default:
			return strings.Join([]string{
				"Network communication failed.",
				"Troubleshooting:",
				"  • Check your network connection",
				"  • Verify the controller is powered on",
			}, "\n")
		}

	case ErrTypeProtocol:
		if devErr.Protocol == ProtocolMalformedBody {
			return strings.Join([]string{
				"The controller answered with a body that could not be decoded.",
				"This may indicate a firmware issue or that the address is not a controller.",
			}, "\n")
		}
		if devErr.StatusCode >= 500 {
			return fmt.Sprintf("The controller returned an error (HTTP %d). Try rebooting it.", devErr.StatusCode)
		}
		return fmt.Sprintf("The controller returned HTTP %d. Check the request parameters.", devErr.StatusCode)

	case ErrTypeConfiguration:
		if errors.Is(err, ErrNotConnected) {
			return "Connect to a controller first (ledbench --device <ip>, or select one in the TUI)."
		}
		return "Check your network configuration and settings file."

	case ErrTypeValidation:
		return "The parameter values are invalid. Check the error message for details."

	case ErrTypeConcurrency:
		return "The operation is already running."

	default:
		return "An error occurred. Please check the error message for details."
	}
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	devErr, ok := asDeviceError(err)
	if !ok {
		return err.Error()
	}

	switch devErr.Type {
	case ErrTypeTransport:
		switch devErr.Transport {
		case TransportTimeout:
			return "Controller not responding (timeout)"
		case TransportConnectionRefused:
			return "Connection refused"
		case TransportHostUnreachable:
			return "Controller unreachable"
		case TransportNetworkUnreachable:
			return "Network unreachable"
		case TransportDNS:
			return "Cannot resolve controller hostname"
		default:
			return "Network error"
		}
	case ErrTypeProtocol:
		if devErr.Protocol == ProtocolMalformedBody {
			return "Malformed controller response"
		}
		return fmt.Sprintf("Controller error (HTTP %d)", devErr.StatusCode)
	default:
		return devErr.Message
	}
}
