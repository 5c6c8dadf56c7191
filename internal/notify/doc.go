// Package notify forwards engine events to Redis for a notification layer
// living outside the daemon.
//
// Events are encoded as JSON payloads and LPUSHed to a list. Publishing
// never blocks the engine: payloads wait in a bounded buffer drained by a
// single worker, and overflow is dropped with a warning.
package notify
