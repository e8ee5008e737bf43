package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/posener/complete"
	"go.abhg.dev/linearize/internal/git"
	"go.abhg.dev/linearize/internal/komplete"
	"go.abhg.dev/linearize/internal/text"
)

type shellCompletionCmd struct {
	*komplete.Command `embed:""`
}

func (c *shellCompletionCmd) Help() string {
	return text.Dedent(`
		To set up shell completion, eval the output of this command
		from your shell's rc file.
		For example:

			# bash
			eval "$(linearize shell-completion bash)"

			# zsh
			eval "$(linearize shell-completion zsh)"

			# fish
			eval "$(linearize shell-completion fish)"

		The shell name is required.
	`)
}

func predictBranches(_ complete.Args) (predictions []string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	repo, err := git.Open(ctx, ".", git.OpenOptions{})
	if err != nil {
		return nil
	}

	branches, err := repo.LocalBranches(ctx)
	if err != nil {
		return nil
	}

	return branches
}

func predictRefs(_ complete.Args) (predictions []string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	repo, err := git.Open(ctx, ".", git.OpenOptions{})
	if err != nil {
		return nil
	}

	branches, err := repo.LocalBranches(ctx)
	if err != nil {
		return nil
	}

	return append(branches, "HEAD")
}

func predictDirs(args complete.Args) (predictions []string) {
	dir, last := filepath.Split(args.Last)
	dir = filepath.Clean(dir)

	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	sep := string(filepath.Separator)

	for _, ent := range ents {
		if !ent.IsDir() || strings.HasPrefix(ent.Name(), ".") {
			continue
		}

		if strings.HasPrefix(ent.Name(), last) {
			name := filepath.Join(dir, ent.Name())
			if !strings.HasSuffix(name, sep) {
				name += sep
			}

			predictions = append(predictions, name)
		}
	}

	return predictions
}
