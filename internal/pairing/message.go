package pairing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ForgetCommand is the description value that asks the device to drop its
// stored credentials.
const ForgetCommand = "forgot"

// ErrMalformedMessage is returned for writes that are not a JSON object with
// string fields.
var ErrMalformedMessage = errors.New("malformed pairing message")

// Message is one write to the pairing characteristic. Absent fields are nil.
type Message struct {
	SSID        *string `json:"ssid,omitempty"`
	Password    *string `json:"passwd,omitempty"`
	Description *string `json:"description,omitempty"`
}

// NewCredentialsMessage returns a message carrying an SSID and password.
func NewCredentialsMessage(ssid, password string) Message {
	return Message{SSID: &ssid, Password: &password}
}

// NewDescriptionMessage returns a message carrying a device description.
func NewDescriptionMessage(description string) Message {
	return Message{Description: &description}
}

// NewForgetMessage returns the "forgot" command.
func NewForgetMessage() Message {
	return NewDescriptionMessage(ForgetCommand)
}

// HasCredentials reports whether both ssid and passwd are present.
func (m *Message) HasCredentials() bool {
	return m.SSID != nil && m.Password != nil
}

// IsForget reports whether the message is the forget command.
func (m *Message) IsForget() bool {
	return m.Description != nil && *m.Description == ForgetCommand
}

// DescriptionText returns the description, or "" when absent.
func (m *Message) DescriptionText() string {
	if m.Description == nil {
		return ""
	}
	return *m.Description
}

// ParseMessage decodes a pairing write. Backslashes are removed before
// decoding, since some phone apps escape the JSON they send.
func ParseMessage(data []byte) (*Message, error) {
	cleaned := bytes.ReplaceAll(data, []byte{'\\'}, nil)
	cleaned = bytes.TrimSpace(cleaned)

	if len(cleaned) == 0 || cleaned[0] != '{' {
		return nil, fmt.Errorf("%w: not a JSON object", ErrMalformedMessage)
	}

	var msg Message
	if err := json.Unmarshal(cleaned, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return &msg, nil
}
