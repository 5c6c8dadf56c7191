// Package client implements the geoalarm-ctl operations.
//
// Every operation dials the daemon, performs one request and prints a short
// human-readable result. Alarm commands carry the local user and hostname as
// the actor and may retry while the daemon is unreachable.
package client
