// Command gait-chat is a toy REPL that drives RecordTurn in a loop,
// standing in for a real model-calling client. It exists purely as a
// worked example of embedding the Repository Engine directly instead
// of shelling out to the gait CLI.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/automateyournetwork/gait/internal/gait"
	"github.com/automateyournetwork/gait/internal/schema"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "gait-chat: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	repo, err := gait.Discover(".")
	if err != nil {
		return err
	}
	defer repo.Close()
	fmt.Printf("gait repo found at: %s\n", repo.Root())

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nYou> ")
		if !scanner.Scan() {
			break
		}
		user := strings.TrimSpace(scanner.Text())
		if low := strings.ToLower(user); low == "exit" || low == "quit" {
			break
		}
		if user == "" {
			continue
		}

		assistant := fmt.Sprintf("(fake) You said: %s", user)
		turn := schema.NewTurn(user, assistant, schema.NewTurnParams{
			Model: map[string]any{"provider": "fake", "model": "echo-v0"},
		})
		turnID, commitID, err := repo.RecordTurn(turn, "fake_chat")
		if err != nil {
			return err
		}
		branch, err := repo.CurrentBranch()
		if err != nil {
			return err
		}
		fmt.Printf("AI> %s\n", assistant)
		fmt.Printf("[gait] turn=%s commit=%s branch=%s\n", shortOID(turnID), shortOID(commitID), branch)
	}
	return scanner.Err()
}

func shortOID(oid string) string {
	if len(oid) <= 8 {
		return oid
	}
	return oid[:8]
}
