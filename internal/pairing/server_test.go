package pairing

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func testStatus() DeviceStatus {
	return DeviceStatus{
		DeviceName:  "ESP32_A1B2C3",
		State:       "CONNECTED",
		Connected:   true,
		SSID:        "Home",
		Description: "kitchen",
		UploadsOK:   3,
	}
}

func waitForPending(t *testing.T, inbox *Inbox) Pending {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p, ok := inbox.Take(); ok {
			return p
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for a pairing message")
	return Pending{}
}

func TestClientSendOverWebSocket(t *testing.T) {
	inbox := NewInbox()
	srv := NewServer("127.0.0.1:0", inbox, testStatus)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	client := NewClient(ts.URL)
	if err := client.Send(context.Background(), NewCredentialsMessage("Home", "secret123")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	p := waitForPending(t, inbox)
	if p.Credentials == nil || p.Credentials.SSID != "Home" || p.Credentials.Password != "secret123" {
		t.Errorf("pending = %+v", p)
	}
}

func TestWebSocketEachFrameIsOneWrite(t *testing.T) {
	inbox := NewInbox()
	srv := NewServer("127.0.0.1:0", inbox, testStatus)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + PairPath
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	frames := []string{
		`{"ssid":"Home","passwd":"secret123"}`,
		`not json`,
		`{"description":"forgot"}`,
		`{"ssid":"Office","passwd":"hunter22"}`,
	}
	for _, f := range frames {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
			t.Fatalf("WriteMessage() error = %v", err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if delivered, malformed := inbox.Counts(); delivered == 3 && malformed == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	p, ok := inbox.Take()
	if !ok {
		t.Fatal("expected pending state")
	}
	if !p.Forget || p.Credentials == nil || p.Credentials.SSID != "Office" {
		t.Errorf("pending = %+v, want forget then Office", p)
	}
}

func TestPostPair(t *testing.T) {
	inbox := NewInbox()
	srv := NewServer("127.0.0.1:0", inbox, testStatus)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	tests := []struct {
		name string
		body string
		want int
	}{
		{"accepted", `{"description":"kitchen"}`, http.StatusAccepted},
		{"malformed", `{"description":`, http.StatusBadRequest},
		{"too large", `{"description":"` + strings.Repeat("x", maxMessageSize) + `"}`, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+PairPath, "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("Post() error = %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}

	p, _ := inbox.Take()
	if p.Description != "kitchen" {
		t.Errorf("Description = %q, want kitchen", p.Description)
	}
}

func TestFetchStatus(t *testing.T) {
	srv := NewServer("127.0.0.1:0", NewInbox(), testStatus)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	status, err := NewClient(ts.URL).FetchStatus(context.Background())
	if err != nil {
		t.Fatalf("FetchStatus() error = %v", err)
	}
	if status.DeviceName != "ESP32_A1B2C3" || status.State != "CONNECTED" || status.UploadsOK != 3 {
		t.Errorf("FetchStatus() = %+v", status)
	}
}

func TestStatusNeverCarriesPassword(t *testing.T) {
	srv := NewServer("127.0.0.1:0", NewInbox(), testStatus)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + StatusPath)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if strings.Contains(string(body), "passw") {
		t.Errorf("status body mentions a password field: %s", body)
	}
}

func TestServerStartAndShutdown(t *testing.T) {
	inbox := NewInbox()
	srv := NewServer("127.0.0.1:0", inbox, testStatus)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if srv.Port() == 0 {
		t.Fatal("Port() should be set after Start()")
	}

	client := NewClientForHost("127.0.0.1", srv.Port())
	wsURL, err := client.socketURL()
	if err != nil {
		t.Fatalf("socketURL() error = %v", err)
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for srv.GetActiveConnections() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := srv.GetActiveConnections(); got != 1 {
		t.Fatalf("GetActiveConnections() = %d, want 1", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if got := srv.GetActiveConnections(); got != 0 {
		t.Errorf("GetActiveConnections() after Shutdown() = %d, want 0", got)
	}
}

func TestUpgradeRefusedAfterShutdown(t *testing.T) {
	inbox := NewInbox()
	srv := NewServer("127.0.0.1:0", inbox, testStatus)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + PairPath
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		conn.Close()
		t.Fatal("Dial() after Shutdown() should fail")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("response = %v, want 503", resp)
	}
	if got := srv.GetActiveConnections(); got != 0 {
		t.Errorf("GetActiveConnections() = %d, want 0", got)
	}
}

func TestClientSocketURL(t *testing.T) {
	tests := []struct {
		base    string
		want    string
		wantErr bool
	}{
		{"http://10.0.0.5:8088", "ws://10.0.0.5:8088/pair", false},
		{"10.0.0.5:8088", "ws://10.0.0.5:8088/pair", false},
		{"https://agent.local/", "wss://agent.local/pair", false},
		{"ftp://agent.local", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			got, err := NewClient(tt.base).socketURL()
			if tt.wantErr {
				if err == nil {
					t.Error("socketURL() should fail")
				}
				return
			}
			if err != nil {
				t.Fatalf("socketURL() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("socketURL() = %s, want %s", got, tt.want)
			}
		})
	}
}
