// Package watch implements the live status dashboard shown by
// "sensornode-pair watch".
//
// The dashboard is a bubbletea program that polls an agent's GET /status
// endpoint every Interval and renders the device name, connectivity state,
// network, description, upload counters and join counters. A refresh that
// fails keeps the last good status on screen and shows the error beneath it.
//
// Key bindings:
//
//	r   refresh now
//	q   quit
package watch
