package linearize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.abhg.dev/linearize/internal/config"
	"go.abhg.dev/linearize/internal/git"
)

// engine bundles the dependencies every core algorithm needs: the
// repository/worktree pair and an immutable run configuration. It
// carries no other state — each method is a pure function
// of the repository's current HEAD plus its arguments.
type engine struct {
	repo *git.Repository
	wt   *git.Worktree
	cfg  config.Config
}

// CherryPick runs the compensated cherry-pick algorithm standalone,
// against whatever HEAD is currently checked out in wt. It exists for
// the "-- cherry-pick" pipeline entry point and for tests that want
// to exercise this step in isolation.
func CherryPick(ctx context.Context, repo *git.Repository, wt *git.Worktree, cfg config.Config, commit git.Hash) error {
	e := &engine{repo: repo, wt: wt, cfg: cfg}
	return e.cherryPick(ctx, commit)
}

// cherryPick replays commit onto the current HEAD, synthesizing a
// compensation commit when the replay conflicts, per spec §4.4.
//
// It leaves HEAD at the new tip on success.
func (e *engine) cherryPick(ctx context.Context, commit git.Hash) error {
	if e.cfg.Recursive {
		msg, err := e.repo.CommitFullMessage(ctx, commit.String())
		if err != nil {
			return &CherryPickError{Commit: commit, Err: fmt.Errorf("read message: %w", err)}
		}
		if strings.HasPrefix(msg, PrefixOursTheirs) {
			// Redundant compensation from an inner linearization;
			// its effect is already folded into its parent's tree.
			return nil
		}
	}

	plain := git.CherryPickRequest{
		Commits:       []git.Hash{commit},
		AllowEmpty:    true,
		KeepRedundant: true,
		OnEmpty:       git.CherryPickEmptyKeep,
	}
	if err := e.repo.CherryPick(ctx, plain); err == nil {
		return nil
	} else if !isCherryPickInterrupted(err) {
		return &CherryPickError{Commit: commit, Err: err}
	}

	if err := e.repo.CherryPickAbort(ctx); err != nil {
		return &CherryPickError{Commit: commit, Err: fmt.Errorf("abort conflicted cherry-pick: %w", err)}
	}

	ours := plain
	ours.Strategy = git.MergeStrategyOurs
	if err := e.repo.CherryPick(ctx, ours); err != nil {
		return &CherryPickError{Commit: commit, Err: fmt.Errorf("ours-favoring replay: %w", err)}
	}

	if e.cfg.ConflictMode != config.ModeSplit {
		return nil
	}

	oursResult, err := e.repo.PeelToCommit(ctx, "HEAD")
	if err != nil {
		return &CherryPickError{Commit: commit, Err: fmt.Errorf("resolve ours-result: %w", err)}
	}

	if err := e.wt.Reset(ctx, "HEAD^", git.ResetOptions{Mode: git.ResetHard}); err != nil {
		return &CherryPickError{Commit: commit, Err: fmt.Errorf("reset past ours-result: %w", err)}
	}

	theirs := plain
	theirs.Strategy = git.MergeStrategyTheirs
	if err := e.repo.CherryPick(ctx, theirs); err != nil {
		return &CherryPickError{Commit: commit, Err: fmt.Errorf("theirs-favoring replay: %w", err)}
	}

	patch, err := e.repo.Diff(ctx, "HEAD", oursResult.String())
	if err != nil {
		return &CherryPickError{Commit: commit, Err: fmt.Errorf("diff theirs-result to ours-result: %w", err)}
	}

	if err := e.wt.Apply(ctx, git.ApplyRequest{Patch: patch, AllowEmpty: true}); err != nil {
		return &CherryPickError{Commit: commit, Err: &ApplyError{Err: err}}
	}

	if err := e.wt.Commit(ctx, git.CommitRequest{
		Message:    fmt.Sprintf("%s %s", PrefixOursTheirs, commit.Short()),
		AllowEmpty: true,
		NoEdit:     true,
	}); err != nil {
		return &CherryPickError{Commit: commit, Err: fmt.Errorf("commit compensation: %w", err)}
	}

	return nil
}

func isCherryPickInterrupted(err error) bool {
	var interrupted *git.CherryPickInterruptedError
	return errors.As(err, &interrupted)
}
