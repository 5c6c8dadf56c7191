// Package alarm contains core domain types for the checkpoint alarm.
//
// It defines Checkpoint (a circular geofence), Position (a resolved location
// sample), Status (the alarm phase at a point in time), Actor (who issued a
// command) and the typed events the engine publishes. Clone helpers avoid
// leaking internal references across the engine boundary.
package alarm
