// Package main is the entry point for the UPI Guard operator console.
package main

import (
	"os"

	"github.com/upiguard/upiguard/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}
