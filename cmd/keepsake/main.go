// Package main is the entry point for the keepsake CLI.
package main

import (
	"os"

	"github.com/keepsake-io/keepsake/cmd/keepsake/commands"
)

func main() {
	os.Exit(commands.Execute())
}
