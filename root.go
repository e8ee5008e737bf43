package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.abhg.dev/linearize/internal/config"
	"go.abhg.dev/linearize/internal/git"
	"go.abhg.dev/linearize/internal/linearize"
	"go.abhg.dev/linearize/internal/silog"
)

type rootCmd struct {
	Debug      bool   `help:"Enable verbose diagnostic logging." env:"${env_debug}"`
	OnConflict string `name:"on-conflict" enum:"merge,split" default:"merge" help:"How conflicted merges and cherry-picks are compensated for." env:"${env_on_conflict}"`
	Recursive  bool   `default:"true" negatable:"" help:"Recursively linearize right-subgraphs of merges." env:"${env_recursive}"`
	UpdateHead bool   `name:"update-head" help:"Hard-reset HEAD to the linearized tip on success, instead of only printing it."`

	Refs []string `arg:"" optional:"" predictor:"refs" help:"Commit to linearize, defaulting to HEAD, followed by any number of ^<limit> refs to exclude from the result."`

	Version versionFlag `help:"Print version information and quit."`
}

// extraCmd groups subcommands that must not share a kong grammar with
// rootCmd: rootCmd already has a top-level optional positional (Refs),
// and mixing cmd:"" nodes into that same grammar is the exact
// combination this repo avoids for the "--" pipeline split (see
// DESIGN.md) — a trailing variadic positional would consume these
// commands' names as ref tokens instead of dispatching to them. They
// get their own parser instead, selected in main.go by an explicit
// literal first argument.
type extraCmd struct {
	ShellCompletion shellCompletionCmd `cmd:"" name:"shell-completion" hidden:"" help:"Generate shell completion scripts."`
	Version         versionCmd         `cmd:"" name:"version" help:"Print version information."`
}

func (cmd *rootCmd) Run(ctx context.Context, log *silog.Logger) error {
	if cmd.Debug {
		log.SetLevel(silog.LevelDebug)
	}

	head, limitRefs, err := splitRefs(cmd.Refs)
	if err != nil {
		return err
	}

	mode, err := config.ParseConflictMode(cmd.OnConflict)
	if err != nil {
		return err
	}
	cfg := config.Config{
		Debug:        cmd.Debug,
		ConflictMode: mode,
		Recursive:    cmd.Recursive,
		UpdateHead:   cmd.UpdateHead,
	}

	repo, err := git.Open(ctx, ".", git.OpenOptions{Log: log})
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}

	wt, err := repo.OpenWorktree(ctx, ".")
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}

	headHash, err := repo.PeelToCommit(ctx, head)
	if err != nil {
		return fmt.Errorf("resolve %v: %w", head, err)
	}

	limits := make([]git.Hash, len(limitRefs))
	for i, ref := range limitRefs {
		h, err := repo.PeelToCommit(ctx, ref)
		if err != nil {
			return fmt.Errorf("resolve ^%v: %w", ref, err)
		}
		limits[i] = h
	}

	result, err := linearize.Run(ctx, repo, wt, log, cfg, headHash, limits)
	if err != nil {
		return fmt.Errorf("linearize %v: %w", head, err)
	}

	log.Infof("linearized %v..%v onto %v", head, headHash.Short(), result.Base.Short())

	if cfg.UpdateHead {
		if err := updateHead(ctx, repo, wt, log, result.Tip); err != nil {
			return fmt.Errorf("update HEAD: %w", err)
		}
		fmt.Println(result.Tip)
		return nil
	}

	fmt.Println(result.Base, result.Tip)
	return nil
}

// splitRefs separates the plain head ref from the "^limit" refs in a
// flat positional argument list, defaulting head to "HEAD" if none of
// the arguments are a plain ref.
func splitRefs(refs []string) (head string, limits []string, err error) {
	head = "HEAD"
	sawHead := false

	for _, ref := range refs {
		if rest, ok := strings.CutPrefix(ref, "^"); ok {
			if rest == "" {
				return "", nil, fmt.Errorf("empty limit ref: %q", ref)
			}
			limits = append(limits, rest)
			continue
		}
		if sawHead {
			return "", nil, fmt.Errorf("only one head ref may be given, got %q and %q", head, ref)
		}
		head, sawHead = ref, true
	}

	return head, limits, nil
}

// updateHead moves the currently checked out branch (or, in detached
// HEAD state, HEAD itself) to tip.
func updateHead(ctx context.Context, repo *git.Repository, wt *git.Worktree, log *silog.Logger, tip git.Hash) error {
	branch, err := wt.CurrentBranch(ctx)
	switch {
	case err == nil:
		// handled below
	case errors.Is(err, git.ErrDetachedHead):
		return wt.DetachHead(ctx, tip.String())
	default:
		return fmt.Errorf("resolve current branch: %w", err)
	}

	if err := wt.ForceMoveBranch(ctx, branch, tip); err != nil {
		return err
	}
	log.Debugf("moved %v to %v", branch, tip.Short())
	return wt.Checkout(ctx, branch)
}
