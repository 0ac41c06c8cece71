// The main package for the guidance-intake executable.
package main

import (
	"github.com/medregs/guidance-intake/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
