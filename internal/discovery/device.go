package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/muurk/ledbench/internal/deviceapi"
)

const (
	// StatusOnline is the only status a discovered device ever has; devices
	// are listed once confirmed reachable and never expire on their own
	StatusOnline = "online"

	// UnknownID and GenericName label reachable hosts that did not answer
	// the identity probe
	UnknownID   = "unknown"
	GenericName = "network device"
)

// Source records how a device was found
type Source string

const (
	SourceSweep     Source = "sweep"
	SourceBroadcast Source = "broadcast"
	SourceMDNS      Source = "mdns"
	SourceManual    Source = "manual"
)

// Device represents a host found on the local network. IP is the unique key.
type Device struct {
	// IP is the IPv4 address (e.g., "192.168.1.23")
	IP string

	// Port is the HTTP port (typically 80)
	Port int

	// DeviceID is the controller's device_id, or UnknownID
	DeviceID string

	// Name is the controller's device_name, or GenericName
	Name string

	// Status is always StatusOnline
	Status string

	// Source records how the device was found
	Source Source

	// Hostname is the mDNS hostname, when known
	Hostname string

	// Metadata holds mDNS TXT records or extra announcement fields
	Metadata map[string]string

	// DiscoveredAt is when the device was discovered
	DiscoveredAt time.Time
}

// NewNamedDevice builds a device from a successful identity probe or a
// valid broadcast announcement.
func NewNamedDevice(ip string, info *deviceapi.DeviceInfo, source Source) *Device {
	name := info.DeviceName
	if name == "" {
		name = "unnamed controller"
	}
	return &Device{
		IP:           ip,
		Port:         deviceapi.DefaultPort,
		DeviceID:     info.DeviceID,
		Name:         name,
		Status:       StatusOnline,
		Source:       source,
		DiscoveredAt: time.Now(),
	}
}

// NewGenericDevice builds a device for a host that is reachable but did not
// identify itself as a controller.
func NewGenericDevice(ip string, source Source) *Device {
	return &Device{
		IP:           ip,
		Port:         deviceapi.DefaultPort,
		DeviceID:     UnknownID,
		Name:         GenericName,
		Status:       StatusOnline,
		Source:       source,
		DiscoveredAt: time.Now(),
	}
}

// Identified reports whether the host answered as a controller
func (d *Device) Identified() bool {
	return d.DeviceID != "" && d.DeviceID != UnknownID
}

// String returns a human-readable string representation of the device
func (d *Device) String() string {
	return fmt.Sprintf("%s (%s) at %s [%s]", d.Name, d.DeviceID, d.IP, d.Status)
}

// BaseURL returns the HTTP base URL for the device
func (d *Device) BaseURL() string {
	port := d.Port
	if port == 0 {
		port = deviceapi.DefaultPort
	}
	return "http://" + net.JoinHostPort(d.IP, strconv.Itoa(port))
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (d *Device) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}
