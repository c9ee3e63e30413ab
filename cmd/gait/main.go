// Command gait is the command-line surface over the Repository Engine
// in internal/gait. It parses arguments and prints results; all of the
// actual versioning logic lives in the internal packages.
package main

import (
	"fmt"
	"os"
)

type command struct {
	name string
	help string
	run  func(args []string) error
}

func main() {
	commands := []command{
		{"init", "Initialize a repo in PATH (default: .)", cmdInit},
		{"status", "Show current repo status", cmdStatus},
		{"branch", "Create a branch", cmdBranch},
		{"checkout", "Switch branches", cmdCheckout},
		{"record-turn", "Record a user+assistant turn and auto-commit", cmdRecordTurn},
		{"log", "Show commit log", cmdLog},
		{"show", "Show turns attached to a commit (default: HEAD)", cmdShow},
		{"pin", "Pin a commit's turns into the branch's memory", cmdPin},
		{"memory", "List pinned memory items for this branch", cmdMemory},
		{"unpin", "Remove a pinned memory item by index", cmdUnpin},
		{"budget", "Show token budget summary for pinned memory", cmdBudget},
		{"merge", "Merge SOURCE branch into the current branch", cmdMerge},
		{"context", "Print the branch's context pack", cmdContext},
		{"revert", "Rewind current branch HEAD to a prior commit", cmdRevert},
	}

	if len(os.Args) < 2 {
		usage(commands)
		os.Exit(2)
	}
	name := os.Args[1]
	if name == "-h" || name == "--help" || name == "help" {
		usage(commands)
		return
	}
	for _, c := range commands {
		if c.name == name {
			if err := c.run(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "gait: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}
	fmt.Fprintf(os.Stderr, "gait: unknown command %q\n", name)
	usage(commands)
	os.Exit(2)
}

func usage(commands []command) {
	fmt.Fprintln(os.Stderr, "usage: gait <command> [flags]")
	fmt.Fprintln(os.Stderr, "\ncommands:")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-14s %s\n", c.name, c.help)
	}
}
