package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"go.abhg.dev/linearize/internal/config"
	"go.abhg.dev/linearize/internal/git"
	"go.abhg.dev/linearize/internal/linearize"
	"go.abhg.dev/linearize/internal/silog"
)

// pipelineCmd groups the hidden entry points that exercise a single
// stage of the linearization pipeline directly, bypassing Run. These
// back the "linearize -- <subcommand> <args>" surface used by tests
// and scripting, per spec.md §6's requirement for subsystem-level
// entry points.
type pipelineCmd struct {
	Walk                 walkCmd                 `cmd:"" help:"Print the instruction stream Plan would produce for a range."`
	ReduceBases          reduceBasesCmd          `cmd:"" name:"reduce-bases" help:"Reduce a set of commits to their ancestor-minimal bases."`
	CherryPick           cherryPickCmd           `cmd:"" name:"cherry-pick" help:"Run the compensated cherry-pick of a single commit onto HEAD."`
	ResolveMergeConflict resolveMergeConflictCmd `cmd:"" name:"resolve-merge-conflict" help:"Reproduce a single merge's recorded resolution onto its (possibly relocated) parents."`
}

func runPipeline(ctx context.Context, log *silog.Logger, args []string) {
	var cmd pipelineCmd
	parser, err := kong.New(&cmd,
		kong.Name("linearize --"),
		kong.Bind(log),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.UsageOnError(),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	kctx, err := parser.Parse(args)
	parser.FatalIfErrorf(err)
	kctx.FatalIfErrorf(kctx.Run())
}

func openRepoAndWorktree(ctx context.Context, log *silog.Logger) (*git.Repository, *git.Worktree, error) {
	repo, err := git.Open(ctx, ".", git.OpenOptions{Log: log})
	if err != nil {
		return nil, nil, fmt.Errorf("open repository: %w", err)
	}
	wt, err := repo.OpenWorktree(ctx, ".")
	if err != nil {
		return nil, nil, fmt.Errorf("open worktree: %w", err)
	}
	return repo, wt, nil
}

type walkCmd struct {
	Refs []string `arg:"" optional:"" help:"<head> followed by ^<limit> refs, as in the root command."`
}

func (cmd *walkCmd) Run(ctx context.Context, log *silog.Logger) error {
	repo, _, err := openRepoAndWorktree(ctx, log)
	if err != nil {
		return err
	}

	head, limitRefs, err := splitRefs(cmd.Refs)
	if err != nil {
		return err
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

	prog, err := linearize.Plan(ctx, repo, headHash, limits)
	if err != nil {
		return err
	}

	for _, instr := range prog {
		fmt.Println(instr.String())
	}
	return nil
}

type reduceBasesCmd struct {
	Commits []string `arg:"" help:"Commit-ish values to reduce to their ancestor-minimal set."`
}

func (cmd *reduceBasesCmd) Run(ctx context.Context, log *silog.Logger) error {
	repo, _, err := openRepoAndWorktree(ctx, log)
	if err != nil {
		return err
	}

	ids := make([]git.Hash, len(cmd.Commits))
	for i, c := range cmd.Commits {
		h, err := repo.PeelToCommit(ctx, c)
		if err != nil {
			return fmt.Errorf("resolve %v: %w", c, err)
		}
		ids[i] = h
	}

	reduced, err := linearize.ReduceBases(ctx, repo, ids)
	if err != nil {
		return err
	}

	for _, h := range reduced {
		fmt.Println(h)
	}
	return nil
}

type cherryPickCmd struct {
	OnConflict string `name:"on-conflict" enum:"merge,split" default:"merge" help:"How a conflicted replay is compensated for."`
	Commit     string `arg:"" help:"Commit to cherry-pick onto the current HEAD."`
}

func (cmd *cherryPickCmd) Run(ctx context.Context, log *silog.Logger) error {
	repo, wt, err := openRepoAndWorktree(ctx, log)
	if err != nil {
		return err
	}

	mode, err := config.ParseConflictMode(cmd.OnConflict)
	if err != nil {
		return err
	}

	commit, err := repo.PeelToCommit(ctx, cmd.Commit)
	if err != nil {
		return fmt.Errorf("resolve %v: %w", cmd.Commit, err)
	}

	cfg := config.Config{ConflictMode: mode, Recursive: true}
	if err := linearize.CherryPick(ctx, repo, wt, cfg, commit); err != nil {
		return err
	}

	tip, err := repo.PeelToCommit(ctx, "HEAD")
	if err != nil {
		return err
	}
	fmt.Println(tip)
	return nil
}

type resolveMergeConflictCmd struct {
	OnConflict string `name:"on-conflict" enum:"merge,split" default:"merge" help:"How the reproduced merge is compensated for."`
	Merge      string `arg:"" help:"Recorded merge commit to reproduce."`
}

func (cmd *resolveMergeConflictCmd) Run(ctx context.Context, log *silog.Logger) error {
	repo, wt, err := openRepoAndWorktree(ctx, log)
	if err != nil {
		return err
	}

	mode, err := config.ParseConflictMode(cmd.OnConflict)
	if err != nil {
		return err
	}

	merge, err := repo.PeelToCommit(ctx, cmd.Merge)
	if err != nil {
		return fmt.Errorf("resolve %v: %w", cmd.Merge, err)
	}

	cfg := config.Config{ConflictMode: mode, Recursive: true}
	if err := linearize.ResolveMergeConflict(ctx, repo, wt, cfg, merge); err != nil {
		return err
	}

	tip, err := repo.PeelToCommit(ctx, "HEAD")
	if err != nil {
		return err
	}
	fmt.Println(tip)
	return nil
}
