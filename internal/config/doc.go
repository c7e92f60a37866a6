// Package config loads the ledbench settings file.
//
// The file is YAML and optional; every key has a built-in default. It holds
// tuning only (ports, timeouts, host range, multicast group, picker
// geometry, simulator identity). Session state is never persisted.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/ledbench/config.yaml or $HOME/.config/ledbench/config.yaml
//   - macOS: $HOME/.config/ledbench/config.yaml
//   - Windows: %LOCALAPPDATA%\ledbench\config.yaml
//
// # Usage Example
//
//	settings, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	scanner := settings.Scanner()
package config
