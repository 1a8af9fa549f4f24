// forgeff is the command line interface for fitting and inspecting SMIRNOFF
// force fields.
package main

import "github.com/turtacn/forgeff/internal/interfaces/cli"

func main() {
	cli.Execute()
}
