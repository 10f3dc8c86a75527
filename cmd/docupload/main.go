// Document Uploader - uploads document folders to cloud storage from a
// window or the command line.
//
// - No args → GUI
// - Subcommands (upload, auth, config, ...) → CLI
package main

import (
	"os"

	"github.com/docupload/docupload/internal/cli"
	"github.com/docupload/docupload/internal/version"
)

// Version information, overridden with -ldflags at release time.
var (
	Version   = "v0.3.0"
	BuildTime = "unknown"
)

func main() {
	version.Version = Version
	version.BuildTime = BuildTime

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
