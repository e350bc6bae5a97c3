package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/awnumar/memguard"

	"github.com/systmms/chamber/cmd/chamber/commands"
	"github.com/systmms/chamber/internal/config"
	dserrors "github.com/systmms/chamber/internal/errors"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	defer memguard.Purge()

	cfg := &config.Config{}
	defer func() {
		if cfg.Logger != nil {
			_ = cfg.Logger.Sync()
		}
	}()
	root := commands.NewRootCommand(cfg, fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date))

	err := root.ExecuteContext(context.Background())
	if err == nil {
		return 0
	}

	var exitErr commands.ExitCodeError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	if cfg.Debug {
		fmt.Fprintf(os.Stderr, "Error: %s\n", dserrors.Verbose(err))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", dserrors.SimplifyError(err))
	}
	return 1
}
