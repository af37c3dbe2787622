// The main package for the binbuddy executable.
package main

import (
	"github.com/JakeFAU/binbuddy/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
