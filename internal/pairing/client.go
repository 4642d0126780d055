package pairing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/muurk/sensornode/internal/version"
)

// DefaultTimeout bounds a single client operation.
const DefaultTimeout = 10 * time.Second

// Client provisions an agent over its pairing channel.
type Client struct {
	// BaseURL is the agent's pairing address (e.g., "http://192.168.1.40:8088")
	BaseURL string

	// Dialer opens pairing sockets
	Dialer *websocket.Dialer

	// HTTPClient reads the status endpoint
	HTTPClient *http.Client
}

// NewClient creates a client for the agent at baseURL. A bare host:port is
// treated as http.
func NewClient(baseURL string) *Client {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Dialer: &websocket.Dialer{
			HandshakeTimeout: DefaultTimeout,
		},
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// NewClientForHost creates a client for host and port, as found by discovery.
func NewClientForHost(host string, port int) *Client {
	return NewClient(fmt.Sprintf("http://%s:%d", host, port))
}

func (c *Client) socketURL() (string, error) {
	u, err := url.Parse(c.BaseURL + PairPath)
	if err != nil {
		return "", fmt.Errorf("invalid agent address %q: %w", c.BaseURL, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q in agent address", u.Scheme)
	}
	return u.String(), nil
}

// Send writes msg as a single text frame and closes the socket.
func (c *Client) Send(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	return c.SendRaw(ctx, data)
}

// SendRaw writes data unmodified as a single text frame.
func (c *Client) SendRaw(ctx context.Context, data []byte) error {
	wsURL, err := c.socketURL()
	if err != nil {
		return err
	}

	conn, resp, err := c.Dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("failed to open pairing socket (HTTP %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("failed to open pairing socket: %w", err)
	}
	defer func() { _ = conn.Close() }()

	deadline := time.Now().Add(DefaultTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetWriteDeadline(deadline)

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write pairing message: %w", err)
	}

	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, closeMsg, deadline)
	return nil
}

// FetchStatus reads the agent's current status.
func (c *Client) FetchStatus(ctx context.Context) (*DeviceStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+StatusPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create status request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("agent unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var status DeviceStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to parse status: %w", err)
	}
	return &status, nil
}
