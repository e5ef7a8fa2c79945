package main

import (
	"os"

	"github.com/psantana5/boxbot/cmd/boxbot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
