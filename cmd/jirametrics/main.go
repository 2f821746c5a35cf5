package main

import (
	"fmt"
	"os"

	"github.com/nhle/jira-metrics/internal/cli"
	"github.com/nhle/jira-metrics/internal/theme"
)

// Set by goreleaser ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.SetVersionInfo(version, commit, date)

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, theme.ErrorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}
