package version

import (
	"strings"
	"testing"
)

func TestVersionIsPopulated(t *testing.T) {
	if Version == "" {
		t.Error("Version should never be empty after init")
	}
	if Commit == "" {
		t.Error("Commit should never be empty after init")
	}
}

func TestFull(t *testing.T) {
	got := Full()
	if !strings.HasPrefix(got, Version+" ") || !strings.Contains(got, "commit: "+Commit) {
		t.Errorf("Full() = %q", got)
	}
}

func TestUserAgent(t *testing.T) {
	if got, want := UserAgent(), "sensornode/"+Version; got != want {
		t.Errorf("UserAgent() = %q, want %q", got, want)
	}
}
