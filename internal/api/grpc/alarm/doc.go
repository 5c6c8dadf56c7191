// Package alarm implements the gRPC transport for the geoalarm engine.
//
// The service geoalarm.v1.AlarmService is declared in
// api/proto/geoalarm/v1/alarm.proto and registered by hand through
// AlarmServiceDesc. Requests and responses are google.protobuf.Struct
// messages whose fields follow the payload layout of the domain package.
package alarm
