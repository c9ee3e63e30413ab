package main

import (
	"encoding/json"
	"flag"
	"fmt"

	"github.com/automateyournetwork/gait/internal/schema"
)

func cmdRecordTurn(args []string) error {
	fs := flag.NewFlagSet("record-turn", flag.ContinueOnError)
	user := fs.String("user", "", "user message text (required)")
	assistant := fs.String("assistant", "", "assistant message text (required)")
	message := fs.String("message", "", "commit message")
	visibility := fs.String("visibility", schema.VisibilityPrivate, "private or shareable")
	contextJSON := fs.String("context", "", "JSON object string")
	toolsJSON := fs.String("tools", "", "JSON object string")
	modelJSON := fs.String("model", "", "JSON object string")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *user == "" || *assistant == "" {
		return fmt.Errorf("record-turn: --user and --assistant are required")
	}

	context, err := parseJSONObject(*contextJSON)
	if err != nil {
		return fmt.Errorf("record-turn: --context: %w", err)
	}
	tools, err := parseJSONObject(*toolsJSON)
	if err != nil {
		return fmt.Errorf("record-turn: --tools: %w", err)
	}
	model, err := parseJSONObject(*modelJSON)
	if err != nil {
		return fmt.Errorf("record-turn: --model: %w", err)
	}

	turn := schema.NewTurn(*user, *assistant, schema.NewTurnParams{
		Context:    context,
		Tools:      tools,
		Model:      model,
		Visibility: *visibility,
	})

	repo, err := discover()
	if err != nil {
		return err
	}
	defer repo.Close()
	turnID, commitID, err := repo.RecordTurn(turn, *message)
	if err != nil {
		return err
	}
	branch, err := repo.CurrentBranch()
	if err != nil {
		return err
	}
	fmt.Printf("turn:   %s\n", turnID)
	fmt.Printf("commit: %s\n", commitID)
	fmt.Printf("branch: %s -> %s\n", branch, commitID)
	return nil
}

func parseJSONObject(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var v map[string]any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	return v, nil
}
