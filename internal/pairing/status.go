package pairing

import "time"

// DeviceStatus is the readable side of the pairing channel, served at
// GET /status. It never carries the password.
type DeviceStatus struct {
	DeviceName    string     `json:"device_name"`
	Version       string     `json:"version,omitempty"`
	State         string     `json:"state"`
	Connected     bool       `json:"connected"`
	SSID          string     `json:"ssid,omitempty"`
	Description   string     `json:"description,omitempty"`
	LastUpload    *time.Time `json:"last_upload,omitempty"`
	UploadsOK     int        `json:"uploads_ok"`
	UploadsFailed int        `json:"uploads_failed"`
	JoinAttempts  int        `json:"join_attempts"`
	JoinFailures  int        `json:"join_failures"`
}
