// Package pairing implements the short-range channel over which a phone (or
// the sensornode-pair CLI) provisions the device.
//
// # Messages
//
// A pairing write is a JSON object with optional string fields:
//
//	{"ssid": "Home", "passwd": "secret123"}   store and join a network
//	{"description": "kitchen"}                 set the device description
//	{"description": "forgot"}                  drop stored credentials
//
// Backslashes are stripped before decoding. Unknown fields are ignored.
//
// # Inbox
//
// Writes land in a single-slot Inbox that the control loop drains once per
// iteration. Newer credentials replace older ones; a forget discards any
// credentials written before it.
//
// # Transport
//
// The Server accepts writes as websocket frames on GET /pair or as a request
// body on POST /pair, and serves the device status at GET /status.
package pairing
