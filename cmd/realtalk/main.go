// Package main provides the realtalk CLI, a terminal client for the OpenAI
// Realtime API.
//
// Usage:
//
//	realtalk [flags] <command> [args]
//
// Commands:
//
//	chat     - Interactive realtime conversation
//	validate - Validate a JSON value against a JSON Schema
//	log      - Manage saved conversation transcripts
//	config   - Configuration management
//
// Configuration:
//
//	The CLI stores configuration in ~/.realtalk/realtalk/
//	Use 'realtalk config' commands to manage contexts.
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/realtalk/cmd/realtalk/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
