// Package config defines the settings used by the geoalarm binaries and
// provides helpers to load, validate and save them.
//
// Settings come from a YAML file overlaid by GEOALARM_* environment
// variables. A .env file in the working directory is read as well, without
// overriding variables already set.
package config
