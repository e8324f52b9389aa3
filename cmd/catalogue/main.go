// Package main provides the catalogue CLI: an offline-first caching proxy
// for the catalogue web app, plus tools for inspecting its snapshot store
// and cache partitions.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
