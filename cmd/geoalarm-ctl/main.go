package main

import "github.com/oshokin/geoalarm/cmd/geoalarm-ctl/cmd"

func main() {
	cmd.Execute()
}
