// Package common holds helpers shared by several services.
//
// It provides a domain-typed gRPC client for the geoalarm daemon with call
// timeouts, and detection of the current system actor (hostname/username)
// recorded with every alarm command.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
