// Package main provides the dslint command-line linter for Python
// data-science scripts.
package main

import (
	"os"

	"github.com/leapstack-labs/dslint/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
