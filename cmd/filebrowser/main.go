package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fruitsalade/filebrowser/cmd/filebrowser/commands"
)

// Build-time variables injected via ldflags
var (
	version = "dev"
	commit  = "none"
)

func main() {
	commands.Version = version
	commands.Commit = commit

	if err := commands.Execute(); err != nil {
		if !errors.Is(err, commands.ErrSilent) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
