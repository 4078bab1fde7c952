// Package main is the entry point for the parkfee CLI.
package main

import (
	"os"
	_ "time/tzdata" // rule timezones must resolve without OS zone files

	"parkfee/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
