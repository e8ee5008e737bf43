package linearize

import (
	"context"
	"fmt"

	"go.abhg.dev/linearize/internal/config"
	"go.abhg.dev/linearize/internal/git"
	"go.abhg.dev/linearize/internal/silog"
)

// Result is the outcome of a successful [Run]: the base the linear
// chain was built on top of, and its new tip.
type Result struct {
	Base git.Hash
	Tip  git.Hash
}

// Run linearizes the DAG reachable from head, excluding anything
// reachable from limits, into a strictly linear chain whose final
// tree matches head's tree.
//
// The whole operation — planning and building both — runs inside a
// single [atomicRun] guard: repo's branch, HEAD, and working tree are
// restored to their pre-call state before Run returns, whether or not
// it succeeded. The resulting commits remain reachable in the object
// database (by hash) even though nothing is left pointing at them.
func Run(ctx context.Context, repo *git.Repository, wt *git.Worktree, log *silog.Logger, cfg config.Config, head git.Hash, limits []git.Hash) (Result, error) {
	eng := &engine{repo: repo, wt: wt, cfg: cfg}

	var base git.Hash
	tip, err := atomicRun(ctx, wt, log, func(ctx context.Context) (git.Hash, error) {
		prog, err := Plan(ctx, repo, head, limits)
		if err != nil {
			return git.ZeroHash, fmt.Errorf("plan: %w", err)
		}

		// The first instruction in prog that has an effect is always a
		// base checkout (see KindBase), so build establishes its own
		// starting position; no checkout is needed here.
		b := &builder{eng: eng, log: log}
		tip, runBase, err := b.build(ctx, prog)
		if err != nil {
			return git.ZeroHash, fmt.Errorf("build: %w", err)
		}
		base = runBase
		return tip, nil
	})
	if err != nil {
		return Result{}, err
	}

	return Result{Base: base, Tip: tip}, nil
}
