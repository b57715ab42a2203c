// Package main provides the entry point for the searchctl ops CLI.
package main

import (
	"os"

	"github.com/kailas-cloud/crmsearch/cmd/searchctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
