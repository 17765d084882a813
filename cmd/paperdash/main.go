package main

import (
	"os"

	_ "time/tzdata"

	"github.com/i474232898/paperdash/cmd/paperdash/commands"
)

// Version information - set during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
