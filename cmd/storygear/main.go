// Package main is the entry point for the storygear CLI.
//
// Usage:
//
//	storygear [flags] <command> [args]
//
// Commands:
//
//	talk       - Interactive voice-story session
//	devices    - List audio devices
//	config     - Configuration management
//	version    - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/storygear/storygear/cmd/storygear/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
