package main

import (
	"flag"
	"fmt"
	"strconv"
)

func cmdPin(args []string) error {
	fs := flag.NewFlagSet("pin", flag.ContinueOnError)
	last := fs.Bool("last", false, "pin the most recent commit that introduced turns")
	note := fs.String("note", "", "optional note explaining why this was pinned")
	if err := fs.Parse(args); err != nil {
		return err
	}

	repo, err := discover()
	if err != nil {
		return err
	}
	defer repo.Close()

	var commitID string
	if *last {
		rec, ok, err := repo.LastCommitWithTurns()
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("pin: no commit with turns found in history")
		}
		commitID = rec.OID
	} else {
		if fs.NArg() != 1 {
			return fmt.Errorf("pin: provide a commit id/prefix or use --last")
		}
		commitID = fs.Arg(0)
	}

	memID, err := repo.PinCommit(commitID, *note)
	if err != nil {
		return err
	}
	fmt.Printf("pinned commit %s into memory\n", commitID)
	fmt.Printf("memory: %s\n", memID)
	return nil
}

func cmdMemory(args []string) error {
	fs := flag.NewFlagSet("memory", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	repo, err := discover()
	if err != nil {
		return err
	}
	defer repo.Close()
	branch, err := repo.CurrentBranch()
	if err != nil {
		return err
	}
	manifest, err := repo.GetMemory(branch)
	if err != nil {
		return err
	}
	fmt.Printf("branch: %s\n", branch)
	fmt.Printf("pinned: %d\n", len(manifest.Items))
	fmt.Println("------------------------------------------------------------")
	for i, item := range manifest.Items {
		fmt.Printf("%d. turn=%s commit=%s note=%s\n", i+1, shortOID(item.TurnID), shortOID(item.CommitID), item.Note)
	}
	return nil
}

func cmdUnpin(args []string) error {
	fs := flag.NewFlagSet("unpin", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("unpin: expected a single 1-based index argument")
	}
	index, err := strconv.Atoi(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("unpin: invalid index %q", fs.Arg(0))
	}

	repo, err := discover()
	if err != nil {
		return err
	}
	defer repo.Close()
	memID, err := repo.UnpinIndex(index)
	if err != nil {
		return err
	}
	fmt.Printf("unpinned #%d\n", index)
	fmt.Printf("memory: %s\n", memID)
	return nil
}

func cmdBudget(args []string) error {
	fs := flag.NewFlagSet("budget", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	repo, err := discover()
	if err != nil {
		return err
	}
	defer repo.Close()
	branch, err := repo.CurrentBranch()
	if err != nil {
		return err
	}
	budget, err := repo.BudgetForMemory()
	if err != nil {
		return err
	}
	fmt.Printf("branch: %s\n", branch)
	fmt.Printf("pinned_items: %d\n", budget.PinnedItems)
	fmt.Printf("tokens_input_total: %d\n", budget.TokensInputTotal)
	fmt.Printf("tokens_output_total: %d\n", budget.TokensOutputTotal)
	fmt.Printf("unknown_token_fields: %d\n", budget.UnknownTokenFields)
	return nil
}
