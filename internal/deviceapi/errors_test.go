package deviceapi

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
	"testing"
)

func TestClassifyNetworkError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantSub TransportSubtype
	}{
		{
			name: "timeout via url.Error",
			err: &url.Error{
				Op:  "Get",
				URL: "http://192.168.1.23/api/info",
				Err: &timeoutError{},
			},
			wantSub: TransportTimeout,
		},
		{
			name: "connection refused",
			err: &url.Error{
				Op:  "Get",
				URL: "http://192.168.1.23/api/info",
				Err: &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED},
			},
			wantSub: TransportConnectionRefused,
		},
		{
			name:    "host unreachable",
			err:     &net.OpError{Op: "dial", Net: "tcp", Err: syscall.EHOSTUNREACH},
			wantSub: TransportHostUnreachable,
		},
		{
			name:    "network unreachable",
			err:     &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ENETUNREACH},
			wantSub: TransportNetworkUnreachable,
		},
		{
			name:    "dns",
			err:     &net.DNSError{Name: "led.local", Err: "no such host"},
			wantSub: TransportDNS,
		},
		{
			name:    "generic",
			err:     errors.New("something broke"),
			wantSub: TransportGeneral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			devErr := ClassifyNetworkError(tt.err, "192.168.1.23")
			if devErr == nil {
				t.Fatal("ClassifyNetworkError() returned nil")
			}
			if devErr.Type != ErrTypeTransport {
				t.Errorf("Type = %v, want %v", devErr.Type, ErrTypeTransport)
			}
			if devErr.Transport != tt.wantSub {
				t.Errorf("Transport = %v, want %v", devErr.Transport, tt.wantSub)
			}
			if devErr.DeviceIP != "192.168.1.23" {
				t.Errorf("DeviceIP = %s, want 192.168.1.23", devErr.DeviceIP)
			}
			if !errors.Is(devErr, tt.err) {
				t.Error("classified error should wrap the original")
			}
		})
	}

	if ClassifyNetworkError(nil, "") != nil {
		t.Error("ClassifyNetworkError(nil) should return nil")
	}
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("set color 1: %w", NewStatusError(500, "boom"))

	if !IsProtocolError(wrapped) || !IsStatusError(wrapped) {
		t.Error("wrapped status error not recognised")
	}
	if IsMalformedBody(wrapped) || IsTransportError(wrapped) || IsConfigurationError(wrapped) {
		t.Error("wrapped status error matched the wrong predicate")
	}

	notConnected := fmt.Errorf("power: %w", ErrNotConnected)
	if !IsConfigurationError(notConnected) {
		t.Error("ErrNotConnected should be a configuration error")
	}
	if !errors.Is(notConnected, ErrNotConnected) {
		t.Error("errors.Is should find ErrNotConnected")
	}

	if !IsConcurrencyWarning(NewConcurrencyWarning("already listening")) {
		t.Error("IsConcurrencyWarning() = false")
	}
	if IsTransportError(errors.New("plain")) {
		t.Error("plain errors are not device errors")
	}
}

func TestDeviceErrorMessage(t *testing.T) {
	err := NewTransportError("GET /api/info failed", "10.0.0.9", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED})

	msg := err.Error()
	if !strings.HasPrefix(msg, "Transport Error: GET /api/info failed: device refused connection") {
		t.Errorf("Error() = %q", msg)
	}
}

func TestHintsAndShortMessages(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantHint  string
		wantShort string
	}{
		{"timeout", &DeviceError{Type: ErrTypeTransport, Transport: TransportTimeout}, "did not respond in time", "timeout"},
		{"refused", &DeviceError{Type: ErrTypeTransport, Transport: TransportConnectionRefused}, "refused", "refused"},
		{"unreachable", &DeviceError{Type: ErrTypeTransport, Transport: TransportHostUnreachable, DeviceIP: "10.0.0.9"}, "ping 10.0.0.9", "unreachable"},
		{"status", NewStatusError(503, "x"), "HTTP 503", "HTTP 503"},
		{"malformed", NewMalformedBodyError("x", nil), "could not be decoded", "Malformed"},
		{"not connected", ErrNotConnected, "Connect to a controller first", "no device connected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if hint := GetTroubleshootingHint(tt.err); !strings.Contains(hint, tt.wantHint) {
				t.Errorf("GetTroubleshootingHint() = %q, want it to contain %q", hint, tt.wantHint)
			}
			if short := GetShortErrorMessage(tt.err); !strings.Contains(short, tt.wantShort) {
				t.Errorf("GetShortErrorMessage() = %q, want it to contain %q", short, tt.wantShort)
			}
		})
	}
}

// timeoutError is a mock error that implements timeout behavior
type timeoutError struct{}

func (e *timeoutError) Error() string   { return "i/o timeout" }
func (e *timeoutError) Timeout() bool   { return true }
func (e *timeoutError) Temporary() bool { return true }
