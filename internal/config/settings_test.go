package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "ledbench") {
		t.Errorf("GetConfigDir() = %v, should contain 'ledbench'", configDir)
	}

	if runtime.GOOS == "linux" && os.Getenv("XDG_CONFIG_HOME") == "" {
		if !strings.Contains(configDir, ".config") {
			t.Errorf("Unix config dir should contain '.config', got: %v", configDir)
		}
	}
}

func TestGetConfigDir_XDG(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("XDG_CONFIG_HOME only applies on Linux and other Unix systems")
	}

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	path, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if want := filepath.Join(dir, "ledbench", "config.yaml"); path != want {
		t.Errorf("GetConfigPath() = %v, want %v", path, want)
	}
}

func TestDefault(t *testing.T) {
	s := Default()

	if err := s.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	if s.Device.Port != 80 {
		t.Errorf("Device.Port = %d, want 80", s.Device.Port)
	}
	if s.Device.ControlTimeout != 5*time.Second || s.Device.ProbeTimeout != 2*time.Second {
		t.Errorf("timeouts = %v/%v, want 5s/2s", s.Device.ControlTimeout, s.Device.ProbeTimeout)
	}
	if s.Discovery.FirstHost != 1 || s.Discovery.LastHost != 20 {
		t.Errorf("host range = %d-%d, want 1-20", s.Discovery.FirstHost, s.Discovery.LastHost)
	}
	if s.Broadcast.Group != "224.0.0.1" || s.Broadcast.Port != 8888 {
		t.Errorf("broadcast = %s:%d, want 224.0.0.1:8888", s.Broadcast.Group, s.Broadcast.Port)
	}
	if s.Broadcast.BufferSize != 1024 || s.Broadcast.ReadTimeout != time.Second {
		t.Errorf("broadcast buffer/timeout = %d/%v", s.Broadcast.BufferSize, s.Broadcast.ReadTimeout)
	}
}

func TestLoad_Missing(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Device.Port != Default().Device.Port {
		t.Error("missing file should give defaults")
	}
}

func TestLoad_Partial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `version: 1
device:
  address: 192.168.1.23
  control_timeout: 3s
discovery:
  last_host: 40
broadcast:
  group: ""
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if s.Device.Address != "192.168.1.23" {
		t.Errorf("Device.Address = %q", s.Device.Address)
	}
	if s.Device.ControlTimeout != 3*time.Second {
		t.Errorf("ControlTimeout = %v, want 3s", s.Device.ControlTimeout)
	}
	if s.Device.Port != 80 {
		t.Errorf("unset Port = %d, want default 80", s.Device.Port)
	}
	if s.Discovery.LastHost != 40 || s.Discovery.FirstHost != 1 {
		t.Errorf("host range = %d-%d, want 1-40", s.Discovery.FirstHost, s.Discovery.LastHost)
	}
	if s.Broadcast.Group != "" {
		t.Errorf("Group = %q, want empty", s.Broadcast.Group)
	}
	if s.BroadcastConfig().Port != 8888 {
		t.Errorf("BroadcastConfig().Port = %d", s.BroadcastConfig().Port)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "device: [\n"},
		{"bad version", "version: 9\n"},
		{"bad address", "device:\n  address: nowhere\n"},
		{"bad range", "discovery:\n  first_host: 30\n  last_host: 10\n"},
		{"unicast group", "broadcast:\n  group: 192.168.1.1\n"},
		{"bad radii", "picker:\n  inner_radius: 200\n"},
		{"bad duration", "device:\n  control_timeout: soon\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load() should fail")
			}
		})
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	got, err := WriteDefault(path, false)
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	if got != path {
		t.Errorf("WriteDefault() = %v, want %v", got, path)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() of written defaults error = %v", err)
	}
	if s.Device.ControlTimeout != 5*time.Second {
		t.Errorf("round-tripped ControlTimeout = %v", s.Device.ControlTimeout)
	}

	if _, err := WriteDefault(path, false); err == nil {
		t.Error("WriteDefault() should refuse to overwrite without force")
	}
	if _, err := WriteDefault(path, true); err != nil {
		t.Errorf("WriteDefault(force) error = %v", err)
	}
}

func TestCircle(t *testing.T) {
	c := Default().Circle()
	if c.OuterRadius != 180 || c.InnerRadius != 50 {
		t.Errorf("Circle() = %+v", c)
	}
}
