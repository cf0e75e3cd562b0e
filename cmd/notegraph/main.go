// Package main provides the notegraph CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/notegraph/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
