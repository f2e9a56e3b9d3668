package version

import (
	"strings"
	"testing"
)

func TestIsRelease(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	tests := []struct {
		version string
		want    bool
	}{
		{"dev", false},
		{"v0.3.0", true},
		{"1.2.3", true},
		{"v1.2.3-rc.1", true},
		{"", false},
	}
	for _, tt := range tests {
		Version = tt.version
		if got := IsRelease(); got != tt.want {
			t.Errorf("IsRelease() with %q = %v, want %v", tt.version, got, tt.want)
		}
	}
}

func TestInfoAndString(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()
	Version = "v1.0.0"

	info := Info()
	if info["version"] != "v1.0.0" {
		t.Errorf("Info()[version] = %q, want v1.0.0", info["version"])
	}
	for _, key := range []string{"git_commit", "build_date", "go_version", "platform"} {
		if info[key] == "" {
			t.Errorf("Info()[%s] is empty", key)
		}
	}
	if s := String(); !strings.HasPrefix(s, "airwatch v1.0.0") {
		t.Errorf("String() = %q", s)
	}
	if Short() != "v1.0.0" {
		t.Errorf("Short() = %q", Short())
	}
}
