package discovery

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/ledbench/internal/deviceapi"
	"github.com/muurk/ledbench/internal/logging"
)

const (
	// ServiceType is the mDNS service type controllers advertise their HTTP
	// API under
	ServiceType = "_http._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultBrowseTimeout is the default mDNS browse window
	DefaultBrowseTimeout = 5 * time.Second
)

// MDNSBrowser finds HTTP services over multicast DNS. When Identifier is
// set each IPv4 service is asked for /api/info; hosts that answer become
// named devices and the rest are kept as generic ones.
type MDNSBrowser struct {
	// Timeout is the browse window
	Timeout time.Duration

	// Identifier is optional
	Identifier Identifier

	logger *zap.Logger
}

// NewMDNSBrowser creates a browser with the default window and HTTP identity
// probe on port
func NewMDNSBrowser(port int) *MDNSBrowser {
	return &MDNSBrowser{
		Timeout:    DefaultBrowseTimeout,
		Identifier: NewHTTPIdentifier(port),
		logger:     logging.Named("mdns"),
	}
}

// Browse collects service entries until the timeout elapses or ctx is
// cancelled, then returns the devices in the order they were seen.
func (b *MDNSBrowser) Browse(ctx context.Context) ([]*Device, error) {
	timeout := b.Timeout
	if timeout <= 0 {
		timeout = DefaultBrowseTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, deviceapi.NewConfigurationError("failed to create mDNS resolver", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	done := make(chan []*Device)

	go func() {
		var found []*Device
		seen := make(map[string]bool)
		for entry := range entries {
			device := deviceFromEntry(entry)
			if device == nil || seen[device.IP] {
				continue
			}
			seen[device.IP] = true
			found = append(found, device)
		}
		done <- found
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, deviceapi.NewTransportError("failed to browse for mDNS services", "", err)
	}

	// zeroconf closes entries once ctx is done
	<-ctx.Done()
	devices := <-done

	if b.Identifier != nil {
		for i, device := range devices {
			devices[i] = b.identify(device)
		}
	}

	if b.logger != nil {
		b.logger.Info("mDNS browse finished", zap.Int("services", len(devices)))
	}
	return devices, nil
}

func (b *MDNSBrowser) identify(device *Device) *Device {
	ctx, cancel := context.WithTimeout(context.Background(), deviceapi.ProbeTimeout)
	defer cancel()

	info, err := b.Identifier.Identify(ctx, net.ParseIP(device.IP))
	if err != nil {
		return device
	}

	named := NewNamedDevice(device.IP, info, SourceMDNS)
	named.Port = device.Port
	named.Hostname = device.Hostname
	named.Metadata = device.Metadata
	return named
}

// deviceFromEntry converts a zeroconf service entry to a generic Device.
// Entries without an IPv4 address are ignored.
func deviceFromEntry(entry *zeroconf.ServiceEntry) *Device {
	if entry == nil || len(entry.AddrIPv4) == 0 {
		return nil
	}

	device := NewGenericDevice(entry.AddrIPv4[0].String(), SourceMDNS)
	device.Hostname = entry.HostName
	if entry.Port != 0 {
		device.Port = entry.Port
	}

	if len(entry.Text) > 0 {
		device.Metadata = make(map[string]string, len(entry.Text))
		for _, txt := range entry.Text {
			// TXT records are in "key=value" format
			key, value, _ := strings.Cut(txt, "=")
			device.Metadata[key] = value
		}
	}
	if entry.Instance != "" && device.Metadata["instance"] == "" {
		if device.Metadata == nil {
			device.Metadata = make(map[string]string)
		}
		device.Metadata["instance"] = entry.Instance
	}
	return device
}

