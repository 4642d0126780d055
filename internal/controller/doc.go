// Package controller implements the agent's connectivity state machine.
//
// A single goroutine calls Step in a loop. Each iteration:
//
//  1. takes whatever the pairing channel deposited in the inbox and queues
//     it as events
//  2. consumes the queued events (forget, then new credentials, which are
//     joined immediately)
//  3. applies a changed description when no event was consumed
//  4. while the link is up, shows green and uploads a reading every
//     UplinkInterval, sleeping until the next one is due
//  5. while the link is down, reloads credentials from the store and rejoins
//  6. blinks red when an event is queued or no SSID is configured
//
// Joins go through a Joiner with bounded retries. A join that exhausts its
// attempts disconnects and, unless disabled by PurgeOnJoinFailure, clears the
// stored credentials.
//
// All waiting goes through a clock.Clock, so the cadences can be driven by a
// manual clock in tests.
package controller
