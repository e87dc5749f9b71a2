// Package main provides the entry point for the idxbench CLI.
package main

import (
	"os"

	"github.com/idxbench/idxbench/cmd/idxbench/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
