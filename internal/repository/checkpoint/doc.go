// Package checkpoint persists the checkpoint list between daemon runs.
//
// Only checkpoints are stored. Alarm state is never persisted, so a restarted
// daemon always starts Idle. FileRepository keeps a YAML document on disk,
// SQLiteRepository a single table, and MemoryRepository nothing beyond the
// process lifetime.
package checkpoint
