// Package tracker feeds the engine with positions from the daemon's own
// location sources.
//
// A GPS bridge keeps the latest fix in a file. Poller re-reads it on a fixed
// period and submits the result as a foreground sample; Watcher reacts to
// every write of the file and submits a background sample. Neither decides
// anything about geofences.
package tracker
