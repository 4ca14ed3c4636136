// Package main is the entry point for the esroll CLI.
//
// esroll performs a rolling upgrade of an Elasticsearch cluster: nodes are
// upgraded one at a time, and the cluster must report green health before
// the next node is touched, so the fleet never loses more than one node of
// serving capacity.
//
// For detailed usage information, run:
//
//	esroll --help
package main

import (
	"fmt"
	"os"

	"esroll/cmd/esroll/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
