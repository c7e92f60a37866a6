package config

import (
	"fmt"
	"net"
	"time"

	"github.com/muurk/ledbench/internal/broadcast"
	"github.com/muurk/ledbench/internal/deviceapi"
	"github.com/muurk/ledbench/internal/discovery"
	"github.com/muurk/ledbench/internal/picker"
)

// CurrentVersion is the settings file format version
const CurrentVersion = 1

// Settings is the whole settings file. Every field has a default, so a
// partial file only overrides what it names.
type Settings struct {
	Version   int               `yaml:"version"`
	Device    DeviceSettings    `yaml:"device"`
	Discovery DiscoverySettings `yaml:"discovery"`
	Broadcast BroadcastSettings `yaml:"broadcast"`
	Picker    PickerSettings    `yaml:"picker"`
	Report    ReportSettings    `yaml:"report"`
	Simulator SimulatorSettings `yaml:"simulator"`
}

// DeviceSettings controls how controllers are addressed
type DeviceSettings struct {
	Address        string        `yaml:"address,omitempty"` // Used when --device is not given
	Port           int           `yaml:"port"`
	ControlTimeout time.Duration `yaml:"control_timeout"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout"`
}

// DiscoverySettings controls the subnet sweep
type DiscoverySettings struct {
	FirstHost   int           `yaml:"first_host"`
	LastHost    int           `yaml:"last_host"`
	PingTimeout time.Duration `yaml:"ping_timeout"`
	MDNS        bool          `yaml:"mdns"`         // Also browse mDNS during scan
	MDNSTimeout time.Duration `yaml:"mdns_timeout"` // mDNS browse window
}

// BroadcastSettings controls the UDP announcement listener
type BroadcastSettings struct {
	Group       string        `yaml:"group"`
	Port        int           `yaml:"port"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
	BufferSize  int           `yaml:"buffer_size"`
}

// PickerSettings is the colour wheel geometry, in picker units
type PickerSettings struct {
	CenterX     float64 `yaml:"center_x"`
	CenterY     float64 `yaml:"center_y"`
	InnerRadius float64 `yaml:"inner_radius"`
	OuterRadius float64 `yaml:"outer_radius"`
}

// ReportSettings controls report export
type ReportSettings struct {
	Dir string `yaml:"dir"`
}

// SimulatorSettings configures ledbench-sim
type SimulatorSettings struct {
	Listen           string        `yaml:"listen"`
	DeviceID         string        `yaml:"device_id"`
	DeviceName       string        `yaml:"device_name"`
	AnnounceInterval time.Duration `yaml:"announce_interval"`
}

// Default returns the built-in settings
func Default() *Settings {
	circle := picker.DefaultCircle()
	bc := broadcast.DefaultConfig()

	return &Settings{
		Version: CurrentVersion,
		Device: DeviceSettings{
			Port:           deviceapi.DefaultPort,
			ControlTimeout: deviceapi.ControlTimeout,
			ProbeTimeout:   deviceapi.ProbeTimeout,
		},
		Discovery: DiscoverySettings{
			FirstHost:   discovery.DefaultFirstHost,
			LastHost:    discovery.DefaultLastHost,
			PingTimeout: discovery.DefaultPingTimeout,
			MDNSTimeout: discovery.DefaultBrowseTimeout,
		},
		Broadcast: BroadcastSettings{
			Group:       bc.Group,
			Port:        bc.Port,
			ReadTimeout: bc.ReadTimeout,
			BufferSize:  bc.BufferSize,
		},
		Picker: PickerSettings{
			CenterX:     circle.CenterX,
			CenterY:     circle.CenterY,
			InnerRadius: circle.InnerRadius,
			OuterRadius: circle.OuterRadius,
		},
		Report: ReportSettings{
			Dir: ".",
		},
		Simulator: SimulatorSettings{
			Listen:           "127.0.0.1:8080",
			DeviceID:         "esp32s3-sim",
			DeviceName:       "ESP32S3 SuperMini (simulated)",
			AnnounceInterval: 2 * time.Second,
		},
	}
}

// Validate checks every section and returns the first problem found
func (s *Settings) Validate() error {
	if s.Version != CurrentVersion {
		return fmt.Errorf("unsupported config version: %d (expected %d)", s.Version, CurrentVersion)
	}

	if s.Device.Address != "" {
		if err := deviceapi.ValidateIP(s.Device.Address); err != nil {
			return fmt.Errorf("device.address: %w", err)
		}
	}
	if err := validPort("device.port", s.Device.Port); err != nil {
		return err
	}
	if s.Device.ControlTimeout <= 0 || s.Device.ProbeTimeout <= 0 {
		return fmt.Errorf("device timeouts must be positive")
	}

	d := s.Discovery
	if d.FirstHost < 1 || d.LastHost > 254 || d.FirstHost > d.LastHost {
		return fmt.Errorf("discovery host range %d-%d must lie within 1-254", d.FirstHost, d.LastHost)
	}
	if d.PingTimeout <= 0 {
		return fmt.Errorf("discovery.ping_timeout must be positive")
	}

	b := s.Broadcast
	if b.Group != "" {
		ip := net.ParseIP(b.Group)
		if ip == nil || ip.To4() == nil || !ip.IsMulticast() {
			return fmt.Errorf("broadcast.group %q is not an IPv4 multicast address", b.Group)
		}
	}
	if err := validPort("broadcast.port", b.Port); err != nil {
		return err
	}
	if b.ReadTimeout <= 0 || b.BufferSize <= 0 {
		return fmt.Errorf("broadcast.read_timeout and broadcast.buffer_size must be positive")
	}

	p := s.Picker
	if p.InnerRadius < 0 || p.OuterRadius <= p.InnerRadius {
		return fmt.Errorf("picker radii must satisfy 0 <= inner (%g) < outer (%g)", p.InnerRadius, p.OuterRadius)
	}

	if s.Simulator.AnnounceInterval <= 0 {
		return fmt.Errorf("simulator.announce_interval must be positive")
	}
	return nil
}

func validPort(name string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s must be 1-65535, got %d", name, port)
	}
	return nil
}

// BroadcastConfig converts the broadcast section for the listener
func (s *Settings) BroadcastConfig() broadcast.Config {
	return broadcast.Config{
		Group:       s.Broadcast.Group,
		Port:        s.Broadcast.Port,
		ReadTimeout: s.Broadcast.ReadTimeout,
		BufferSize:  s.Broadcast.BufferSize,
	}
}

// Circle converts the picker section
func (s *Settings) Circle() picker.Circle {
	return picker.Circle{
		CenterX:     s.Picker.CenterX,
		CenterY:     s.Picker.CenterY,
		InnerRadius: s.Picker.InnerRadius,
		OuterRadius: s.Picker.OuterRadius,
	}
}

// Scanner builds a sweep scanner from the device and discovery sections
func (s *Settings) Scanner() *discovery.Scanner {
	sc := discovery.NewScanner(s.Device.Port)
	sc.FirstHost = s.Discovery.FirstHost
	sc.LastHost = s.Discovery.LastHost
	sc.PingTimeout = s.Discovery.PingTimeout
	sc.ProbeTimeout = s.Device.ProbeTimeout
	return sc
}
