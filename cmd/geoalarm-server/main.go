package main

import "github.com/oshokin/geoalarm/cmd/geoalarm-server/cmd"

func main() {
	cmd.Execute()
}
