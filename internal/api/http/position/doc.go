// Package position implements the HTTP surface of the geoalarm daemon.
//
// Remote trackers push fixes to POST /v1/positions; the request is accepted
// as soon as the sample is queued, evaluation happens in the engine. GET
// /v1/status mirrors the gRPC status call and GET /healthz reports the
// engine phase together with the configured dependency checks.
package position
