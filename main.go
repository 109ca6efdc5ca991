// The main package for the turn-sentinel executable.
package main

import (
	"github.com/awbwtools/turn-sentinel/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
