package linearize

import (
	"context"
	"fmt"

	"go.abhg.dev/linearize/internal/git"
	"go.abhg.dev/linearize/internal/silog"
)

// builder is the instruction executor (Build), per spec §4.7. It
// consumes a reversed [Program] and replays it against the current
// (scratch) HEAD.
type builder struct {
	eng     *engine
	log     *silog.Logger
	started bool
	base    git.Hash // the commit the very first base instruction checked out
}

// build replays prog against the engine's worktree, starting from
// whatever HEAD currently is (the caller is expected to have already
// detached to a scratch position). It returns the hash of the final
// linear tip and the base commit the chain was built from.
func (b *builder) build(ctx context.Context, prog Program) (tip, base git.Hash, err error) {
	for _, instr := range prog {
		switch instr.Kind {
		case KindBase:
			if err := b.runBase(ctx, instr); err != nil {
				return git.ZeroHash, git.ZeroHash, err
			}

		case KindCompensate:
			if _, err := b.eng.compensatedRebase(ctx, instr.Bases, instr.Tip); err != nil {
				return git.ZeroHash, git.ZeroHash, err
			}

		case KindResolveMergeConflict:
			if err := b.eng.resolveMergeConflict(ctx, instr.Merge); err != nil {
				return git.ZeroHash, git.ZeroHash, err
			}

		case KindPush:
			if err := b.runPush(ctx, instr); err != nil {
				return git.ZeroHash, git.ZeroHash, err
			}

		case KindPop:
			if err := b.runPop(ctx, instr); err != nil {
				return git.ZeroHash, git.ZeroHash, err
			}

		case KindEnd:
			if err := b.runEnd(ctx, instr); err != nil {
				return git.ZeroHash, git.ZeroHash, err
			}

		default:
			return git.ZeroHash, git.ZeroHash, fmt.Errorf("unknown instruction: %v", instr)
		}
	}

	tip, err = b.eng.repo.PeelToCommit(ctx, "HEAD")
	if err != nil {
		return git.ZeroHash, git.ZeroHash, fmt.Errorf("resolve final HEAD: %w", err)
	}
	return tip, b.base, nil
}

// runBase checks out the first base commit and folds in any
// additional bases with a default merge. It only has an effect the
// first time it runs; later base instructions (emitted for boundary
// chains other than the deepest one encountered) are no-ops, since by
// then the scratch HEAD is already initialized.
func (b *builder) runBase(ctx context.Context, instr Instruction) error {
	if b.started {
		return nil
	}
	b.started = true

	if len(instr.Bases) == 0 {
		return fmt.Errorf("base instruction has no commits")
	}
	b.base = instr.Bases[0]

	if err := b.eng.wt.DetachHead(ctx, instr.Bases[0].String()); err != nil {
		return fmt.Errorf("checkout base %v: %w", instr.Bases[0].Short(), err)
	}

	for _, extra := range instr.Bases[1:] {
		if err := b.eng.wt.Merge(ctx, git.MergeRequest{Ref: extra.String(), NoEdit: true}); err != nil {
			return fmt.Errorf("merge base %v: %w", extra.Short(), err)
		}
	}
	return nil
}

// runPush enters the right-subtree of a merge. When recursion is
// enabled, it linearizes that subtree in its own atomic guard and
// compensated-rebases the result onto the current HEAD.
func (b *builder) runPush(ctx context.Context, instr Instruction) error {
	if !b.eng.cfg.Recursive || !instr.Path.IsRightSuffix() {
		return nil
	}

	left, err := b.eng.repo.PeelToCommit(ctx, instr.Merge.String()+"^1")
	if err != nil {
		return fmt.Errorf("resolve left parent of %v: %w", instr.Merge.Short(), err)
	}
	right, err := b.eng.repo.PeelToCommit(ctx, instr.Merge.String()+"^2")
	if err != nil {
		return fmt.Errorf("resolve right parent of %v: %w", instr.Merge.Short(), err)
	}

	innerTip, err := atomicRun(ctx, b.eng.wt, b.log, func(ctx context.Context) (git.Hash, error) {
		if err := b.eng.wt.DetachHead(ctx, right.String()); err != nil {
			return git.ZeroHash, fmt.Errorf("checkout right subtree of %v: %w", instr.Merge.Short(), err)
		}

		prog, err := Plan(ctx, b.eng.repo, right, []git.Hash{left})
		if err != nil {
			return git.ZeroHash, err
		}

		inner := &builder{eng: b.eng, log: b.log}
		tip, _, err := inner.build(ctx, prog)
		return tip, err
	})
	if err != nil {
		return err
	}

	if _, err := b.eng.compensatedRebase(ctx, []git.Hash{left}, innerTip); err != nil {
		return err
	}
	return nil
}

// runPop asserts tree-equivalence between the current HEAD and the
// merge commit being exited, per the invariants in spec §3.
//
// For a right-suffix path with recursion disabled, the right
// subtree's content was never individually folded in here (it is
// instead captured generically by the final KindEnd fixup), so the
// mismatch is only a warning rather than a [PopInvariantError].
func (b *builder) runPop(ctx context.Context, instr Instruction) error {
	want, err := b.eng.repo.PeelToTree(ctx, instr.Merge.String())
	if err != nil {
		return fmt.Errorf("resolve tree of %v: %w", instr.Merge.Short(), err)
	}
	got, err := b.eng.repo.PeelToTree(ctx, "HEAD")
	if err != nil {
		return fmt.Errorf("resolve HEAD tree: %w", err)
	}
	if want == got {
		return nil
	}

	if instr.Path.IsRightSuffix() && !b.eng.cfg.Recursive {
		b.log.Warn("merge not fully reproduced without recursion; deferring to final fixup",
			"merge", instr.Merge)
		return nil
	}

	return &PopInvariantError{Merge: instr.Merge, Want: want, Got: got}
}

// runEnd finalizes the build: if the linear tip's tree does not match
// the original input head's tree, it synthesizes one last compensation
// commit to close the gap.
func (b *builder) runEnd(ctx context.Context, instr Instruction) error {
	want, err := b.eng.repo.PeelToTree(ctx, instr.Head.String())
	if err != nil {
		return fmt.Errorf("resolve tree of %v: %w", instr.Head.Short(), err)
	}
	got, err := b.eng.repo.PeelToTree(ctx, "HEAD")
	if err != nil {
		return fmt.Errorf("resolve HEAD tree: %w", err)
	}
	if want == got {
		return nil
	}

	patch, err := b.eng.repo.Diff(ctx, "HEAD", instr.Head.String())
	if err != nil {
		return fmt.Errorf("diff final tip to %v: %w", instr.Head.Short(), err)
	}

	if err := b.eng.wt.Apply(ctx, git.ApplyRequest{Patch: patch, AllowEmpty: true}); err != nil {
		return &ApplyError{Err: err}
	}

	return b.eng.wt.Commit(ctx, git.CommitRequest{
		Message:    fmt.Sprintf("%s %s", PrefixFinalFixup, instr.Head.Short()),
		AllowEmpty: true,
		NoEdit:     true,
	})
}
