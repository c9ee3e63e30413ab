package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"strings"
)

func cmdMerge(args []string) error {
	fs := flag.NewFlagSet("merge", flag.ContinueOnError)
	message := fs.String("message", "", "merge commit message")
	withMemory := fs.Bool("with-memory", false, "also merge pinned memory (union of items)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("merge: expected a single source branch argument")
	}
	source := fs.Arg(0)

	repo, err := discover()
	if err != nil {
		return err
	}
	defer repo.Close()
	mergeID, err := repo.Merge(source, *message, *withMemory)
	if err != nil {
		return err
	}
	branch, err := repo.CurrentBranch()
	if err != nil {
		return err
	}
	fmt.Printf("merged: %s -> %s\n", source, branch)
	fmt.Printf("HEAD:   %s\n", mergeID)
	if *withMemory {
		memID, err := repo.ReadMemoryRef(branch)
		if err != nil {
			return err
		}
		fmt.Printf("memory: %s\n", memID)
	}
	return nil
}

func cmdContext(args []string) error {
	fs := flag.NewFlagSet("context", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "output JSON")
	full := fs.Bool("full", false, "include raw context/tools/model/tokens per turn")
	if err := fs.Parse(args); err != nil {
		return err
	}

	repo, err := discover()
	if err != nil {
		return err
	}
	defer repo.Close()
	bundle, err := repo.BuildContextBundle(*full)
	if err != nil {
		return err
	}

	if *asJSON {
		b, err := json.MarshalIndent(bundle.ToValue(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(b))
		return nil
	}

	fmt.Printf("branch: %s\n", bundle.Branch)
	fmt.Printf("memory: %s\n", bundle.MemoryID)
	fmt.Printf("pinned: %d\n", bundle.PinnedItems)
	fmt.Println(strings.Repeat("-", 60))
	if len(bundle.Items) == 0 {
		fmt.Println("(no pinned memory)")
		return nil
	}
	for _, item := range bundle.Items {
		fmt.Printf("[PIN %d] note=%s\n", item.Index, item.Note)
		fmt.Println("User:")
		fmt.Println(item.UserText)
		fmt.Println("\nAssistant:")
		fmt.Println(item.AssistantText)
		fmt.Println(strings.Repeat("-", 60))
	}
	return nil
}

func cmdRevert(args []string) error {
	fs := flag.NewFlagSet("revert", flag.ContinueOnError)
	alsoMemory := fs.Bool("also-memory", false, "also rewind pinned memory via the memory reflog")
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

	target := ""
	explicit := fs.NArg() > 0
	if explicit {
		target = fs.Arg(0)
	} else {
		target, err = repo.DefaultRevertTarget()
		if err != nil {
			return err
		}
	}

	if !explicit && target == "" {
		if err := repo.ResetBranchToEmpty(); err != nil {
			return err
		}
		fmt.Printf("reverted: %s is now empty\n", branch)
		return nil
	}

	resolved, err := repo.ResetBranch(target)
	if err != nil {
		return err
	}
	fmt.Printf("reverted: %s -> %s\n", branch, resolved)
	head, err := repo.HeadCommit()
	if err != nil {
		return err
	}
	fmt.Printf("HEAD:   %s\n", head)

	if *alsoMemory {
		oldMem, newMem, err := repo.RewindMemoryToHead(branch, head)
		if err != nil {
			return err
		}
		fmt.Printf("memory: %s -> %s\n", oldMem, newMem)
	}
	return nil
}
