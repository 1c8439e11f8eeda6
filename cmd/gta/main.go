package main

import (
	"fmt"
	"os"

	"github.com/grandtrade/gta/cmd/gta/commands"
	"github.com/grandtrade/gta/internal/config"
	"github.com/grandtrade/gta/internal/secure"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	err := run()
	secure.Purge()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.New()
	defer func() { _ = cfg.Logger.Sync() }()

	root := commands.NewRootCommand(cfg, fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date))
	return root.Execute()
}
