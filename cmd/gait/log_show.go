package main

import (
	"flag"
	"fmt"
	"strings"
)

func cmdLog(args []string) error {
	fs := flag.NewFlagSet("log", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "maximum number of commits to show")
	if err := fs.Parse(args); err != nil {
		return err
	}
	repo, err := discover()
	if err != nil {
		return err
	}
	defer repo.Close()
	records, err := repo.Log(*limit)
	if err != nil {
		return err
	}
	for _, rec := range records {
		c := rec.Commit
		parentStrs := make([]string, len(c.Parents))
		for i, p := range c.Parents {
			parentStrs[i] = shortOID(p)
		}
		parents := "-"
		if len(parentStrs) > 0 {
			parents = strings.Join(parentStrs, ",")
		}
		mergeFlag := ""
		if c.IsMerge() {
			mergeFlag = " (merge)"
		}
		fmt.Printf("%s%s  %s  %s  p=[%s]  turns=%d  %s\n",
			colorize(shortOID(rec.OID)), mergeFlag, c.CreatedAt, c.Kind, parents, len(c.TurnIDs), c.Message)
	}
	return nil
}

func cmdShow(args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	ref := "HEAD"
	if fs.NArg() > 0 {
		ref = fs.Arg(0)
	}

	repo, err := discover()
	if err != nil {
		return err
	}
	defer repo.Close()
	rec, err := repo.Show(ref)
	if err != nil {
		return err
	}
	fmt.Printf("commit: %s\n", rec.OID)
	fmt.Printf("branch: %s\n", rec.Commit.Branch)
	fmt.Printf("kind:   %s\n", rec.Commit.Kind)
	fmt.Println(strings.Repeat("-", 60))

	if len(rec.Commit.TurnIDs) == 0 {
		fmt.Println("(no turns attached to this commit)")
		return nil
	}
	for i, tid := range rec.Commit.TurnIDs {
		turn, err := repo.GetTurn(tid)
		if err != nil {
			return err
		}
		fmt.Printf("[Turn %d]\n", i+1)
		fmt.Println("User:")
		fmt.Println(turn.User.Text)
		fmt.Println("\nAssistant:")
		fmt.Println(turn.Assistant.Text)
		fmt.Println(strings.Repeat("-", 60))
	}
	return nil
}
