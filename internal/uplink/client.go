package uplink

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/muurk/sensornode/internal/logging"
	"github.com/muurk/sensornode/internal/version"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// DefaultSensorKey is the key of the single data entry in a reading
	DefaultSensorKey = "key"

	// TimestampLayout renders payload timestamps with second precision and no zone
	TimestampLayout = "2006-01-02T15:04:05"

	// maxResponseBody caps how much of a response is read for logging
	maxResponseBody = 4096
)

// Entry is one key/value pair in a payload list.
type Entry struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// ReadingPayload is the body posted to the sensor endpoint.
type ReadingPayload struct {
	DeviceName string  `json:"device_name"`
	Timestamp  string  `json:"timestamp"`
	Data       []Entry `json:"data"`
}

// MetadataPayload is the body posted to the metadata endpoint.
type MetadataPayload struct {
	DeviceName string  `json:"device_name"`
	Timestamp  string  `json:"timestamp"`
	Metadata   []Entry `json:"metadata"`
}

// Client posts readings and metadata for one device.
type Client struct {
	// SensorURL receives readings
	SensorURL string

	// MetadataURL receives the device description
	MetadataURL string

	// DeviceName is stamped into every payload
	DeviceName string

	// SensorKey names the reading's data entry (default: "key")
	SensorKey string

	// Now supplies the payload timestamp
	Now func() time.Time

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client
}

// NewClient creates an uplink client. now is usually a timesync.Syncer's Now.
func NewClient(sensorURL, metadataURL, deviceName string, now func() time.Time) *Client {
	return &Client{
		SensorURL:   sensorURL,
		MetadataURL: metadataURL,
		DeviceName:  deviceName,
		SensorKey:   DefaultSensorKey,
		Now:         now,
		HTTPClient:  &http.Client{Timeout: DefaultTimeout},
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

func (c *Client) timestamp() string {
	return c.Now().UTC().Format(TimestampLayout)
}

// SendReading posts one sensor reading. There is no retry.
func (c *Client) SendReading(value float64) error {
	return c.post(c.SensorURL, ReadingPayload{
		DeviceName: c.DeviceName,
		Timestamp:  c.timestamp(),
		Data:       []Entry{{Key: c.SensorKey, Value: value}},
	})
}

// SendMetadata posts the device description. There is no retry.
func (c *Client) SendMetadata(description string) error {
	return c.post(c.MetadataURL, MetadataPayload{
		DeviceName: c.DeviceName,
		Timestamp:  c.timestamp(),
		Metadata:   []Entry{{Key: "description", Value: description}},
	})
}

func (c *Client) post(endpoint string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		upErr := newEncodeError(endpoint, err)
		logging.LogUplinkResult(endpoint, 0, nil, upErr)
		return upErr
	}

	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		upErr := &UplinkError{Type: ErrTypeNetwork, Message: "failed to create request", Endpoint: endpoint, Err: err}
		logging.LogUplinkResult(endpoint, 0, nil, upErr)
		return upErr
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		upErr := classifyNetworkError(err, endpoint)
		logging.LogUplinkResult(endpoint, 0, nil, upErr)
		return upErr
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		upErr := newHTTPError(endpoint, resp.StatusCode)
		logging.LogUplinkResult(endpoint, resp.StatusCode, respBody, upErr)
		return upErr
	}

	logging.LogUplinkResult(endpoint, resp.StatusCode, respBody, nil)
	return nil
}
