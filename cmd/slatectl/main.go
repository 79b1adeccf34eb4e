// Package main is the entry point for the slatectl admin CLI.
package main

import (
	"os"

	"github.com/slatehq/slate/cmd/slatectl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
