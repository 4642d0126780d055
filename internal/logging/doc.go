// Package logging provides structured logging for the sensornode agent.
//
// This package wraps a global zap logger with convenience functions for the
// logging patterns used throughout the agent: state transitions, pairing
// messages, and uplink results.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (raw pairing payloads, response bodies, LED changes)
//   - Info: Normal operations (transitions, accepted pairing messages, uploads)
//   - Warn: Non-fatal issues (malformed messages, failed uploads, failed joins)
//   - Error: Failures the agent works around (store writes, time sync)
//
// # Specialized Logging
//
//	logging.LogTransition("DISCONNECTED", "CONNECTING", "idle_reconnect")
//	logging.LogPairingMessage("ws://10.0.0.4:51234", "Home", true, "")
//	logging.LogUplinkResult(endpoint, 200, body, nil)
//
// Passwords are never passed to the logger. LogPairingMessage only records
// whether a password was present.
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.Initialize("info"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// When no level is given and SENSORNODE_LOG_LEVEL is unset the logger is a
// no-op, which keeps the provisioning CLI quiet.
package logging
