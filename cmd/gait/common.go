package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/automateyournetwork/gait/internal/gait"
)

// discover opens the repository containing the current directory,
// reporting a clear error instead of a raw ErrNoRepo if the CLI is run
// outside one.
func discover() (*gait.Repository, error) {
	repo, err := gait.Discover(".")
	if err != nil {
		if gait.IsErrNoRepo(err) {
			return nil, fmt.Errorf("not a gait repository (or any parent up to /)")
		}
		return nil, err
	}
	return repo, nil
}

func shortOID(oid string) string {
	if oid == "" {
		return "(empty)"
	}
	if len(oid) <= 10 {
		return oid
	}
	return oid[:10]
}

// colorize wraps s in ANSI highlighting when stdout is a terminal, and
// leaves it untouched otherwise so piped output stays plain text.
func colorize(s string) string {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return s
	}
	return "\x1b[33m" + s + "\x1b[0m"
}
