// Package main is the entry point for the darkstat traffic monitor.
package main

import (
	"fmt"
	"os"

	"github.com/yjh0502/darkstat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
