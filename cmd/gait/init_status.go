package main

import (
	"flag"
	"fmt"

	"github.com/automateyournetwork/gait/internal/gait"
)

func cmdInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	path := "."
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	repo, err := gait.Init(path)
	if err != nil {
		return err
	}
	defer repo.Close()
	fmt.Printf("Initialized gait repository in %s/.gait\n", repo.Root())
	return nil
}

func cmdStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
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
	head, err := repo.HeadCommit()
	if err != nil {
		return err
	}
	fmt.Printf("root:   %s\n", repo.Root())
	fmt.Printf("branch: %s\n", branch)
	if head == "" {
		fmt.Println("HEAD:   (empty)")
	} else {
		fmt.Printf("HEAD:   %s\n", head)
	}
	return nil
}
