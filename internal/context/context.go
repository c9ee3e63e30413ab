// Package context assembles a branch's pinned-memory manifest and the
// turns it references into a context-pack bundle suitable for handing
// to a future model call, and aggregates the same manifest into a
// token budget summary. Both operations are pure functions of already-
// loaded data: they mutate nothing and cache nothing across calls.
package context

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/automateyournetwork/gait/internal/schema"
)

const Schema = "gait.context.v0"

// fetchWorkers bounds the concurrent turn loads so a manifest with
// hundreds of pins doesn't open that many files at once.
const fetchWorkers = 8

// TurnLoader resolves a turn oid to its decoded Turn. The Repository
// Engine satisfies this with its object store and schema conversion.
type TurnLoader interface {
	LoadTurn(ctx context.Context, oid string) (schema.Turn, error)
}

// Item is one entry of an assembled context bundle, in manifest order.
type Item struct {
	Index         int
	Note          string
	UserText      string
	AssistantText string
	CommitID      string
	TurnID        string
	Context       map[string]any
	Tools         map[string]any
	Model         map[string]any
	Tokens        schema.Tokens
	Visibility    string
}

// Bundle is the assembled context pack.
type Bundle struct {
	Schema      string
	Branch      string
	MemoryID    string
	PinnedItems int
	Items       []Item
	Full        bool
}

// Budget aggregates token usage across a memory manifest.
type Budget struct {
	TokensInputTotal   int64
	TokensOutputTotal  int64
	PinnedItems        int
	UnknownTokenFields int
}

// BuildContextBundle loads every turn referenced by manifest (memoryID
// is carried through only to stamp the result; the caller already
// loaded manifest from that oid) and assembles the bundle in manifest
// order.
func BuildContextBundle(ctx context.Context, loader TurnLoader, branch, memoryID string, manifest schema.MemoryManifest, full bool) (Bundle, error) {
	turns, err := loadTurns(ctx, loader, manifest)
	if err != nil {
		return Bundle{}, err
	}

	items := make([]Item, len(manifest.Items))
	for i, mitem := range manifest.Items {
		turn := turns[i]
		item := Item{
			Index:         i + 1,
			Note:          mitem.Note,
			UserText:      turn.User.Text,
			AssistantText: turn.Assistant.Text,
			CommitID:      mitem.CommitID,
			TurnID:        mitem.TurnID,
		}
		if full {
			item.Context = turn.Context
			item.Tools = turn.Tools
			item.Model = turn.Model
			item.Tokens = turn.Tokens
			item.Visibility = turn.Visibility
		}
		items[i] = item
	}

	return Bundle{
		Schema:      Schema,
		Branch:      branch,
		MemoryID:    memoryID,
		PinnedItems: len(manifest.Items),
		Items:       items,
		Full:        full,
	}, nil
}

// ToValue converts b to the generic map shape used for JSON rendering
// (the CLI's --json output) or further serialization.
func (b Bundle) ToValue() map[string]any {
	items := make([]any, len(b.Items))
	for i, item := range b.Items {
		v := map[string]any{
			"index":          item.Index,
			"note":           item.Note,
			"user_text":      item.UserText,
			"assistant_text": item.AssistantText,
			"commit_id":      item.CommitID,
			"turn_id":        item.TurnID,
		}
		if b.Full {
			v["context"] = item.Context
			v["tools"] = item.Tools
			v["model"] = item.Model
			v["visibility"] = item.Visibility
			tokens := map[string]any{"estimated": item.Tokens.Estimated}
			if item.Tokens.InputTotal != nil {
				tokens["input_total"] = *item.Tokens.InputTotal
			} else {
				tokens["input_total"] = nil
			}
			if item.Tokens.OutputTotal != nil {
				tokens["output_total"] = *item.Tokens.OutputTotal
			} else {
				tokens["output_total"] = nil
			}
			v["tokens"] = tokens
		}
		items[i] = v
	}
	return map[string]any{
		"schema":       b.Schema,
		"branch":       b.Branch,
		"memory_id":    b.MemoryID,
		"pinned_items": b.PinnedItems,
		"items":        items,
	}
}

// loadTurns fetches every turn the manifest references, concurrently
// but bounded: the object store is write-once, so readers can never
// observe a torn value and there is nothing to race on.
func loadTurns(ctx context.Context, loader TurnLoader, manifest schema.MemoryManifest) ([]schema.Turn, error) {
	turns := make([]schema.Turn, len(manifest.Items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchWorkers)
	for i, item := range manifest.Items {
		i, item := i, item
		g.Go(func() error {
			t, err := loader.LoadTurn(gctx, item.TurnID)
			if err != nil {
				return fmt.Errorf("context: load turn %s: %w", item.TurnID, err)
			}
			turns[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return turns, nil
}

// BudgetForMemory aggregates token usage across every turn pinned in
// manifest.
func BudgetForMemory(ctx context.Context, loader TurnLoader, manifest schema.MemoryManifest) (Budget, error) {
	turns, err := loadTurns(ctx, loader, manifest)
	if err != nil {
		return Budget{}, err
	}

	var budget Budget
	budget.PinnedItems = len(manifest.Items)
	for _, turn := range turns {
		hasInput := turn.Tokens.InputTotal != nil
		hasOutput := turn.Tokens.OutputTotal != nil
		if hasInput {
			budget.TokensInputTotal += *turn.Tokens.InputTotal
		}
		if hasOutput {
			budget.TokensOutputTotal += *turn.Tokens.OutputTotal
		}
		if !hasInput && !hasOutput {
			budget.UnknownTokenFields++
		}
	}
	return budget, nil
}
