// Package sink turns alarm events into something a person can hear.
//
// Bind pairs AlarmTriggered with AlarmDisarmed so a sink sees exactly one
// Stop for every Start. Sink failures are logged and never reach the engine.
package sink
