package pairing

import (
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/sensornode/internal/credstore"
	"github.com/muurk/sensornode/internal/logging"
)

// Pending is the content of the inbox slot at the time it is taken.
//
// When both Forget and Credentials are set, the credentials arrived after the
// forget and are applied after it.
type Pending struct {
	Forget      bool
	Credentials *credstore.CredentialSet
	Description string
}

// Empty reports whether nothing is pending.
func (p Pending) Empty() bool {
	return !p.Forget && p.Credentials == nil && p.Description == ""
}

// Inbox is the single-slot hand-off between pairing producers and the
// control loop. Later writes overwrite earlier ones.
type Inbox struct {
	mu      sync.Mutex
	pending Pending

	delivered int
	malformed int
}

// NewInbox returns an empty Inbox.
func NewInbox() *Inbox {
	return &Inbox{}
}

// Deliver applies one message to the slot.
func (i *Inbox) Deliver(msg *Message) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.delivered++

	switch {
	case msg.IsForget():
		i.pending.Forget = true
		i.pending.Credentials = nil
	case msg.HasCredentials():
		i.pending.Credentials = &credstore.CredentialSet{
			SSID:     *msg.SSID,
			Password: *msg.Password,
		}
	}

	if desc := msg.DescriptionText(); desc != "" && desc != ForgetCommand {
		i.pending.Description = desc
	}
}

// DeliverRaw parses data and delivers it. Malformed writes are dropped and
// leave the slot untouched.
func (i *Inbox) DeliverRaw(data []byte) error {
	return i.DeliverRawFrom("local", data)
}

// DeliverRawFrom is DeliverRaw with the producer named in the logs.
func (i *Inbox) DeliverRawFrom(source string, data []byte) error {
	msg, err := ParseMessage(data)
	if err != nil {
		i.mu.Lock()
		i.malformed++
		i.mu.Unlock()

		logging.Warn("Discarding malformed pairing message",
			zap.String("source", source),
			zap.Error(err))
		logging.LogRawBytes("Malformed pairing message", data)
		return err
	}

	ssid := ""
	if msg.SSID != nil {
		ssid = *msg.SSID
	}
	logging.LogPairingMessage(source, ssid, msg.Password != nil, msg.DescriptionText())

	i.Deliver(msg)
	return nil
}

// Take returns and clears the slot. ok is false when nothing was pending.
func (i *Inbox) Take() (p Pending, ok bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	p = i.pending
	i.pending = Pending{}
	return p, !p.Empty()
}

// Counts returns how many messages were delivered and how many were rejected
// as malformed.
func (i *Inbox) Counts() (delivered, malformed int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.delivered, i.malformed
}
