// Package main is the entry point for the farmgate CLI.
// The CLI is the developer terminal tool for interacting with the farmgate API.
package main

import (
	"os"

	"farmgate/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
