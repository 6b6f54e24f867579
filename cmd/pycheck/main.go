// Package main provides the entry point for the pycheck command
package main

import (
	"os"
	"strings"

	"github.com/mrz1836/go-pycheck/cmd/pycheck/cmd"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the application and returns the process exit code
func run(args []string) int {
	buildInfo := NewBuildInfo()

	version := buildInfo.Version()
	if buildInfo.IsModified() && !strings.HasSuffix(version, "-dirty") {
		version += "-dirty"
	}

	app := cmd.NewCLIApp(version, buildInfo.Commit(), buildInfo.BuildDate())
	return cmd.NewCommandBuilder(app).Run(args)
}
