// Package main provides the entry point for the subrec CLI tool.
package main

import (
	"github.com/centrimetry/subrec/cmd/subrec/cmd"
)

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.Execute(version, commit, date)
}
