// Package main is the entry point for the upliftsync CLI.
package main

import (
	"os"

	"github.com/uplift-crm/upliftsync/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
