// CLI entry point for the liposome IVR dataset builder.
package main

import (
	"os"

	"github.com/turtacn/liposome-ivr/internal/interfaces/cli"
	"github.com/turtacn/liposome-ivr/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(errors.ExitStatusForCode(errors.GetCode(err)))
	}
}
