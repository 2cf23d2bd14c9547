// ./main.go
package main

import (
	"github.com/xKony/x-automate/cmd"
)

// main is the entry point for the x-automate application.
func main() {
	// Execute the root command defined in the cmd package.
	// This handles all command-line parsing, configuration, and execution.
	cmd.Execute()
}
