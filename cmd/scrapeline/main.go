package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/masahif/scrapeline/internal/cmd"
	"github.com/masahif/scrapeline/internal/crawler"
)

// Version information set by build flags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	cmd.SetVersionInfo(Version, BuildTime)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	return 0
}

// exitCode maps run errors to process exit codes.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, crawler.ErrInterrupted):
		return 130
	default:
		return 1
	}
}
