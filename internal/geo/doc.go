// Package geo holds coordinate math shared by the engine and its adapters.
//
// Distance is the haversine great-circle distance on a spherical Earth.
// ParseCoordinate accepts the decimal and degrees-minutes-seconds notations
// users type into the CLI; the engine itself only consumes parsed degrees.
package geo
