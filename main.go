package main

import (
	"fmt"
	"os"

	"github.com/tphakala/dualcapture/cmd"
	"github.com/tphakala/dualcapture/internal/buildinfo"
)

// Set at build time with -ldflags "-X main.version=... -X main.buildDate=..."
var (
	version   string
	buildDate string
)

func main() {
	if err := cmd.Execute(buildinfo.New(version, buildDate)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
