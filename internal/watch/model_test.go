package watch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/sensornode/internal/pairing"
)

type stubFetcher struct {
	status *pairing.DeviceStatus
	err    error
	calls  int
}

func (s *stubFetcher) FetchStatus(ctx context.Context) (*pairing.DeviceStatus, error) {
	s.calls++
	return s.status, s.err
}

func connectedStatus() *pairing.DeviceStatus {
	last := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	return &pairing.DeviceStatus{
		DeviceName:   "ESP32_A1B2C3",
		State:        "CONNECTED",
		Connected:    true,
		SSID:         "Home",
		LastUpload:   &last,
		UploadsOK:    4,
		JoinAttempts: 1,
	}
}

func runeKey(r string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(r)}
}

func TestFetchStatusCommand(t *testing.T) {
	f := &stubFetcher{status: connectedStatus()}

	msg := fetchStatus(f)()
	sm, ok := msg.(statusMsg)
	if !ok {
		t.Fatalf("fetch returned %T, want statusMsg", msg)
	}
	if sm.status.DeviceName != "ESP32_A1B2C3" || sm.err != nil {
		t.Errorf("statusMsg = %+v", sm)
	}
	if f.calls != 1 {
		t.Errorf("FetchStatus called %d times, want 1", f.calls)
	}
}

func TestUpdateStatus(t *testing.T) {
	m := NewModel("http://10.0.0.7:8088", &stubFetcher{}, time.Second)
	m.Fetching = true

	updated, cmd := m.Update(statusMsg{status: connectedStatus(), at: time.Now()})
	m = updated.(Model)

	if m.Fetching {
		t.Error("Fetching should clear when a status arrives")
	}
	if m.Status == nil || m.Status.State != "CONNECTED" {
		t.Errorf("Status = %+v", m.Status)
	}
	if cmd == nil {
		t.Error("a status should schedule the next refresh")
	}

	// A failed refresh keeps the last good status.
	updated, _ = m.Update(statusMsg{err: errors.New("agent unreachable"), at: time.Now()})
	m = updated.(Model)
	if m.Status == nil || m.Err == nil {
		t.Errorf("after failure: Status = %v, Err = %v", m.Status, m.Err)
	}
	if !strings.Contains(m.View(), "agent unreachable") {
		t.Error("View() should show the refresh error")
	}
	if m.Refreshes != 2 {
		t.Errorf("Refreshes = %d, want 2", m.Refreshes)
	}
}

func TestUpdateKeys(t *testing.T) {
	f := &stubFetcher{status: connectedStatus()}
	m := NewModel("agent", f, time.Second)

	updated, cmd := m.Update(runeKey("r"))
	m = updated.(Model)
	if !m.Fetching || cmd == nil {
		t.Fatal("r should start a refresh")
	}
	if _, ok := cmd().(statusMsg); !ok {
		t.Error("refresh command should produce a statusMsg")
	}

	// No overlapping fetches.
	if _, cmd := m.Update(runeKey("r")); cmd != nil {
		t.Error("r during a fetch should be ignored")
	}
	if _, cmd := m.Update(tickMsg(time.Now())); cmd != nil {
		t.Error("tick during a fetch should be ignored")
	}

	_, cmd = m.Update(runeKey("q"))
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should return tea.Quit")
	}
}

func TestView(t *testing.T) {
	m := NewModel("http://10.0.0.7:8088", &stubFetcher{}, 0)
	if m.Interval != DefaultInterval {
		t.Errorf("Interval = %v, want default", m.Interval)
	}

	if out := m.View(); !strings.Contains(out, "Connecting to agent") {
		t.Errorf("View() before first fetch = %q", out)
	}

	m.Status = connectedStatus()
	out := m.View()
	for _, want := range []string{"ESP32_A1B2C3", "CONNECTED", "Home", "4 ok, 0 failed", "(none)", "1 attempts"} {
		if !strings.Contains(out, want) {
			t.Errorf("View() missing %q:\n%s", want, out)
		}
	}
}
