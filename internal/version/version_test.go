package version

import (
	"strings"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name        string
		version     string
		commit      string
		stamp       vcsStamp
		wantVersion string
		wantCommit  string
	}{
		{
			name:        "ldflags win",
			version:     "v1.2.3",
			commit:      "abc1234",
			stamp:       vcsStamp{revision: "ffffffffffff"},
			wantVersion: "v1.2.3",
			wantCommit:  "abc1234",
		},
		{
			name:        "vcs stamp",
			stamp:       vcsStamp{revision: "0123456789abcdef", modified: true, time: "2025-03-04T10:20:30Z"},
			wantVersion: "dev-20250304",
			wantCommit:  "0123456-dirty",
		},
		{
			name:        "nothing known",
			wantVersion: "dev",
			wantCommit:  "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := resolve(tt.version, tt.commit, tt.stamp)
			if info.Version != tt.wantVersion {
				t.Errorf("Version = %q, want %q", info.Version, tt.wantVersion)
			}
			if info.Commit != tt.wantCommit {
				t.Errorf("Commit = %q, want %q", info.Commit, tt.wantCommit)
			}
			if info.GoVersion == "" || info.Platform == "" {
				t.Error("runtime fields should be filled")
			}
		})
	}
}

func TestUserAgent(t *testing.T) {
	if ua := UserAgent(); !strings.HasPrefix(ua, "ledbench/") {
		t.Errorf("UserAgent() = %q", ua)
	}
}
