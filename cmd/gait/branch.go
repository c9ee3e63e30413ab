package main

import (
	"flag"
	"fmt"
)

func cmdBranch(args []string) error {
	fs := flag.NewFlagSet("branch", flag.ContinueOnError)
	fromCommit := fs.String("from-commit", "", "starting commit (default: current branch's head)")
	noInherit := fs.Bool("no-inherit-memory", false, "do not inherit pinned memory from the current branch")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("branch: expected a single branch name argument")
	}
	name := fs.Arg(0)

	repo, err := discover()
	if err != nil {
		return err
	}
	defer repo.Close()
	if err := repo.CreateBranch(name, *fromCommit, !*noInherit); err != nil {
		return err
	}
	fmt.Printf("Created branch %s\n", name)
	return nil
}

func cmdCheckout(args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("checkout: expected a single branch name argument")
	}
	name := fs.Arg(0)

	repo, err := discover()
	if err != nil {
		return err
	}
	defer repo.Close()
	if err := repo.Checkout(name); err != nil {
		return err
	}
	fmt.Printf("Switched to branch %s\n", name)
	return nil
}
