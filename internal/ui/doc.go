// Package ui provides the terminal presentation shared by the sensornode CLIs.
//
// Components follow a "render once and exit" pattern:
//
//   - Header: command banner with title and parameters
//   - Result: success, failure or warning box closing a command
//   - Confirm: typed-phrase confirmation for destructive operations
//
// The palette maps connectivity states onto colours (StateColor, StateBadge)
// so the terminal LED, the status dashboard and one-shot commands agree.
//
// Logging is controlled by SENSORNODE_LOG_LEVEL. When unset, zap is silent so
// the rendered output stays clean.
package ui
