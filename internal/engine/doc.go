// Package engine implements the geofence trigger and alarm state engine.
//
// One Engine owns a checkpoint Store, a SnoozeTimer, an event Bus and the
// Machine that arbitrates every transition. Position samples from any number
// of producers flow through the Scheduler mailbox into the Machine one at a
// time; Stop, Snooze and checkpoint mutations take the same Machine lock, so
// no transition ever interleaves with another.
//
// Event handlers run synchronously on the goroutine that performed the
// transition while that lock is held. Handlers may read Status and list
// checkpoints, but must not call Stop, Snooze, ClearSnooze, AddCheckpoint or
// RemoveCheckpoint synchronously, and must not block.
package engine
