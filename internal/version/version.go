// Package version reports the ledbench build version.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"time"
)

// These variables can be set at build time via ldflags:
//
//	go build -ldflags="-X github.com/muurk/ledbench/internal/version.Version=v1.2.3 \
//	                   -X github.com/muurk/ledbench/internal/version.Commit=abc123"
//
// When unset they are filled from the VCS stamp in the build info, falling
// back to "dev".
var (
	Version = ""
	Commit  = ""
)

// Info describes the running binary
type Info struct {
	Version   string
	Commit    string
	BuiltAt   string
	GoVersion string
	Platform  string
}

var (
	resolved Info
	once     sync.Once
)

// Get returns the resolved build information
func Get() Info {
	once.Do(func() {
		resolved = resolve(Version, Commit, readVCS())
	})
	return resolved
}

type vcsStamp struct {
	revision string
	modified bool
	time     string
}

func readVCS() vcsStamp {
	var stamp vcsStamp
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return stamp
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			stamp.revision = setting.Value
		case "vcs.modified":
			stamp.modified = setting.Value == "true"
		case "vcs.time":
			stamp.time = setting.Value
		}
	}
	return stamp
}

func resolve(version, commit string, stamp vcsStamp) Info {
	info := Info{
		Version:   version,
		Commit:    commit,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	if info.Commit == "" && stamp.revision != "" {
		info.Commit = stamp.revision
		if len(info.Commit) > 7 {
			info.Commit = info.Commit[:7]
		}
		if stamp.modified {
			info.Commit += "-dirty"
		}
	}

	if t, err := time.Parse(time.RFC3339, stamp.time); err == nil {
		info.BuiltAt = t.UTC().Format("2006-01-02")
		if info.Version == "" {
			info.Version = "dev-" + t.Format("20060102")
		}
	}

	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = "unknown"
	}
	return info
}

// Full returns the full version string including commit
func Full() string {
	info := Get()
	return fmt.Sprintf("%s (commit: %s)", info.Version, info.Commit)
}

// UserAgent is sent with every request to a controller
func UserAgent() string {
	return "ledbench/" + Get().Version
}
