// Package main provides the entry point for the fluentchat CLI.
package main

import (
	"fmt"
	"os"

	"github.com/abxba0/fluentchat/cmd/fluentchat/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
