// Package server runs the geoalarm daemon: the engine plus the gRPC and HTTP
// APIs, position trackers, alarm sink, checkpoint persistence and the Redis
// notifier, supervised as one process group.
package server
