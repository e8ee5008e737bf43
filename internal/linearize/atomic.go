package linearize

import (
	"context"
	"errors"
	"fmt"

	"go.abhg.dev/linearize/internal/git"
	"go.abhg.dev/linearize/internal/silog"
)

// snapshot captures the repository's branch, HEAD, and working-tree
// state before a run, so [atomicRun] can restore it on failure.
type snapshot struct {
	branch string // empty if the repository was in detached HEAD state
	head   git.Hash
	stash  git.Hash // zero if the working tree was clean
}

func takeSnapshot(ctx context.Context, wt *git.Worktree) (*snapshot, error) {
	head, err := wt.Repository().PeelToCommit(ctx, "HEAD")
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}

	snap := &snapshot{head: head}

	branch, err := wt.CurrentBranch(ctx)
	switch {
	case err == nil:
		snap.branch = branch
	case errors.Is(err, git.ErrDetachedHead):
		// leave branch empty
	default:
		return nil, fmt.Errorf("resolve current branch: %w", err)
	}

	stash, err := wt.StashCreate(ctx, "linearize: pre-run snapshot")
	switch {
	case err == nil:
		snap.stash = stash
	case errors.Is(err, git.ErrNoChanges):
		// working tree was already clean
	default:
		return nil, fmt.Errorf("snapshot working tree: %w", err)
	}

	return snap, nil
}

// restore returns the repository to the state recorded by snap.
//
// It is called both after a successful run (to return control to the
// caller's branch) and after a failed one (to undo whatever the run's
// scratch state left behind).
func (snap *snapshot) restore(ctx context.Context, wt *git.Worktree) error {
	if err := wt.Reset(ctx, snap.head.String(), git.ResetOptions{Mode: git.ResetHard}); err != nil {
		return fmt.Errorf("reset to %v: %w", snap.head.Short(), err)
	}

	if snap.branch != "" {
		// If the branch is still checked out, the hard reset above
		// already moved it back; git refuses to force-move it.
		if current, err := wt.CurrentBranch(ctx); err != nil || current != snap.branch {
			if err := wt.ForceMoveBranch(ctx, snap.branch, snap.head); err != nil {
				return fmt.Errorf("restore branch %v: %w", snap.branch, err)
			}
			if err := wt.Checkout(ctx, snap.branch); err != nil {
				return fmt.Errorf("checkout %v: %w", snap.branch, err)
			}
		}
	} else {
		if err := wt.DetachHead(ctx, snap.head.String()); err != nil {
			return fmt.Errorf("detach HEAD at %v: %w", snap.head.Short(), err)
		}
	}

	if !snap.stash.IsZero() {
		if err := wt.StashApply(ctx, snap.stash.String()); err != nil {
			return fmt.Errorf("reapply stashed changes (%v): %w", snap.stash.Short(), err)
		}
	}

	return nil
}

// purgeRemnant snapshots whatever the run left in the working tree
// into a remnant stash entry, for manual recovery, then hard-resets.
//
// It is only invoked when restore is about to discard uncommitted
// changes that the run itself produced (as opposed to the caller's
// pre-run changes, which are already captured in snap.stash).
func purgeRemnant(ctx context.Context, wt *git.Worktree, log *silog.Logger) {
	stash, err := wt.StashCreate(ctx, "linearize: remnant changes")
	if err != nil {
		if !errors.Is(err, git.ErrNoChanges) {
			log.Warn("could not snapshot remnant changes", "error", err)
		}
		return
	}

	if err := wt.StashStore(ctx, stash, "linearize: remnant changes"); err != nil {
		log.Warn("could not store remnant stash", "error", err)
		return
	}

	log.Warn("uncommitted changes from this run were stashed for recovery",
		"stash", stash.Short())
}

// atomicRun runs fn against a scratch checkout of wt and always
// restores wt's branch, HEAD, index, and working tree to their
// pre-call state before returning — fn's result (the linearized tip)
// is communicated through its return value, not by leaving HEAD
// parked there. If restoration itself fails, the error is reported as
// a [RestoreError] wrapping whatever error fn returned, if any.
func atomicRun(ctx context.Context, wt *git.Worktree, log *silog.Logger, fn func(ctx context.Context) (git.Hash, error)) (git.Hash, error) {
	snap, err := takeSnapshot(ctx, wt)
	if err != nil {
		return git.ZeroHash, fmt.Errorf("snapshot repository state: %w", err)
	}

	tip, runErr := fn(ctx)
	if runErr != nil {
		purgeRemnant(ctx, wt, log)
	}

	if restoreErr := snap.restore(ctx, wt); restoreErr != nil {
		return tip, &RestoreError{Err: restoreErr, CauseErr: runErr}
	}

	return tip, runErr
}
