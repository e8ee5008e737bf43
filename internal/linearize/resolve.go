package linearize

import (
	"context"
	"fmt"

	"go.abhg.dev/linearize/internal/config"
	"go.abhg.dev/linearize/internal/git"
)

// ResolveMergeConflict runs the resolve-merge-conflict algorithm
// standalone, against whatever HEAD is currently checked out in wt.
// It exists for the "-- resolve-merge-conflict" pipeline entry point
// and for tests that want to exercise this step in isolation.
func ResolveMergeConflict(ctx context.Context, repo *git.Repository, wt *git.Worktree, cfg config.Config, merge git.Hash) error {
	e := &engine{repo: repo, wt: wt, cfg: cfg}
	return e.resolveMergeConflict(ctx, merge)
}

// resolveMergeConflict reproduces a merge whose recorded resolution
// differs from the default three-way strategy, per spec §4.6.
//
// It leaves HEAD at the reproduced result: either a two-commit
// sequence (ours-merge followed by a compensation commit) in split
// mode, or a single squashed commit carrying the original merge's
// message in merge mode.
func (e *engine) resolveMergeConflict(ctx context.Context, merge git.Hash) error {
	savedHead, err := e.repo.PeelToCommit(ctx, "HEAD")
	if err != nil {
		return fmt.Errorf("resolve current HEAD: %w", err)
	}

	left, err := e.repo.PeelToCommit(ctx, merge.String()+"^1")
	if err != nil {
		return &MergeReplayError{Merge: merge, Err: fmt.Errorf("resolve left parent: %w", err)}
	}

	right, err := e.repo.PeelToCommit(ctx, merge.String()+"^2")
	if err != nil {
		return &MergeReplayError{Merge: merge, Err: fmt.Errorf("resolve right parent: %w", err)}
	}

	if err := e.wt.DetachHead(ctx, left.String()); err != nil {
		return &MergeReplayError{Merge: merge, Err: fmt.Errorf("checkout left parent: %w", err)}
	}

	mergeErr := e.wt.Merge(ctx, git.MergeRequest{
		Ref:      right.String(),
		Strategy: git.MergeStrategyOurs,
		NoEdit:   true,
	})
	if mergeErr != nil {
		_ = e.wt.MergeAbort(ctx)
		return &MergeReplayError{Merge: merge, Err: mergeErr}
	}

	oursResult, err := e.repo.PeelToCommit(ctx, "HEAD")
	if err != nil {
		return &MergeReplayError{Merge: merge, Err: fmt.Errorf("resolve ours-result: %w", err)}
	}

	patch, err := e.repo.Diff(ctx, oursResult.String(), merge.String())
	if err != nil {
		return &MergeReplayError{Merge: merge, Err: fmt.Errorf("diff ours-result to recorded merge: %w", err)}
	}

	if err := e.wt.Apply(ctx, git.ApplyRequest{Patch: patch, AllowEmpty: true}); err != nil {
		return &MergeReplayError{Merge: merge, Err: &ApplyError{Err: err}}
	}

	if err := e.wt.Commit(ctx, git.CommitRequest{
		Message:    fmt.Sprintf("%s %s", PrefixResolveMergeConflict, merge.Short()),
		AllowEmpty: true,
		NoEdit:     true,
	}); err != nil {
		return &MergeReplayError{Merge: merge, Err: fmt.Errorf("commit compensation: %w", err)}
	}

	resolvedTip, err := e.repo.PeelToCommit(ctx, "HEAD")
	if err != nil {
		return &MergeReplayError{Merge: merge, Err: fmt.Errorf("resolve reproduced tip: %w", err)}
	}

	if err := e.wt.DetachHead(ctx, savedHead.String()); err != nil {
		return &MergeReplayError{Merge: merge, Err: fmt.Errorf("return to saved HEAD: %w", err)}
	}

	if _, err := e.compensatedRebase(ctx, []git.Hash{left}, resolvedTip); err != nil {
		return err
	}

	if e.cfg.ConflictMode != config.ModeMerge {
		return nil
	}

	if err := e.wt.Reset(ctx, savedHead.String(), git.ResetOptions{Mode: git.ResetSoft}); err != nil {
		return &MergeReplayError{Merge: merge, Err: fmt.Errorf("soft-reset to fold compensation: %w", err)}
	}

	if err := e.wt.Commit(ctx, git.CommitRequest{
		ReuseMessage: merge.String(),
		AllowEmpty:   true,
		NoEdit:       true,
	}); err != nil {
		return &MergeReplayError{Merge: merge, Err: fmt.Errorf("commit squashed resolution: %w", err)}
	}

	return nil
}
