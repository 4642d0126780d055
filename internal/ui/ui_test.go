package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestStateColor(t *testing.T) {
	tests := []struct {
		state string
		want  string
	}{
		{"CONNECTED", string(SuccessColor)},
		{"CONNECTING", string(WarningColor)},
		{"AWAITING_CREDENTIALS", string(ErrorColor)},
		{"DISCONNECTED", string(MutedColor)},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			if got := string(StateColor(tt.state)); got != tt.want {
				t.Errorf("StateColor() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestResultRenderIncludesDetailsInOrder(t *testing.T) {
	r := NewSuccessResult("Credentials sent", map[string]string{
		"SSID":   "Home",
		"Device": "ESP32_A1B2C3",
	})
	r.Width = 80

	out := r.Render()
	if !strings.Contains(out, "Credentials sent") {
		t.Error("rendered result should contain the title")
	}
	device := strings.Index(out, "ESP32_A1B2C3")
	ssid := strings.Index(out, "Home")
	if device < 0 || ssid < 0 || device > ssid {
		t.Errorf("details should render sorted by key:\n%s", out)
	}
}

func TestFailureResultShowsErrorAndHints(t *testing.T) {
	r := NewFailureResult("Pairing failed", errors.New("agent unreachable"), []string{"Check the address"})
	out := r.Render()

	for _, want := range []string{"FAILED", "agent unreachable", "Check the address"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered failure missing %q", want)
		}
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"exact phrase", "CLEAR\n", true},
		{"surrounding space", "  CLEAR  \n", true},
		{"wrong phrase", "yes\n", false},
		{"no newline", "CLEAR", true},
		{"empty input", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got := Confirm(strings.NewReader(tt.input), &out, "Clear credentials", []string{"The device will disconnect"}, "CLEAR")
			if got != tt.want {
				t.Errorf("Confirm() = %v, want %v", got, tt.want)
			}
			if !strings.Contains(out.String(), "Clear credentials") {
				t.Error("Confirm() should print the warning title")
			}
		})
	}
}
