package controller

import "github.com/muurk/sensornode/internal/credstore"

// State is the connectivity state of the agent.
type State uint8

const (
	// StateDisconnected means credentials are stored but the link is down.
	StateDisconnected State = iota

	// StateConnecting means a join is in progress.
	StateConnecting

	// StateConnected means the link is up and readings are being uploaded.
	StateConnected

	// StateAwaitingCredentials means the agent needs the user's attention:
	// credentials are missing or the last join failed.
	StateAwaitingCredentials
)

// String returns the state name as shown in logs and /status.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateAwaitingCredentials:
		return "AWAITING_CREDENTIALS"
	default:
		return "UNKNOWN"
	}
}

// Event is an input to the transition function. While at least one event is
// queued the agent is waiting on a credential-driven transition.
type Event interface {
	event()
}

// CredentialsReceived carries credentials delivered over the pairing channel.
type CredentialsReceived struct {
	Credentials credstore.CredentialSet
}

// ForgetRequested asks the agent to drop its stored credentials.
type ForgetRequested struct{}

// ReconnectFailed is queued when an idle reconnect with stored credentials
// fails. It only changes what the indicator shows; it never starts a join.
type ReconnectFailed struct{}

func (CredentialsReceived) event() {}
func (ForgetRequested) event()     {}
func (ReconnectFailed) event()     {}

func eventName(e Event) string {
	switch e.(type) {
	case CredentialsReceived:
		return "credentials_received"
	case ForgetRequested:
		return "forget_requested"
	case ReconnectFailed:
		return "reconnect_failed"
	default:
		return "unknown"
	}
}
