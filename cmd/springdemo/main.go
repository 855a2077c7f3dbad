// Command springdemo drives the spring engine from a terminal: an interactive bar animation, a
// backend benchmark and config file helpers.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewManager().Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
