package linearize

import (
	"context"
	"errors"
	"fmt"

	"go.abhg.dev/linearize/internal/git"
)

// Plan walks the DAG reachable from head, excluding anything reachable
// from limits, and returns the instruction stream needed to rebuild it
// as a linear chain, per spec §4.2. The returned Program is already in
// the order Build expects to consume (oldest effect first).
func Plan(ctx context.Context, repo *git.Repository, head git.Hash, limits []git.Hash) (Program, error) {
	p := &planner{repo: repo}
	// Emitted first so that, after Reverse, it is the last instruction
	// Build consumes: the final tree-identity check.
	p.emit(EndInstr(head))
	if err := p.walk(ctx, head, limits, ""); err != nil {
		return nil, err
	}
	return p.prog.Reverse(), nil
}

type planner struct {
	repo *git.Repository
	prog Program
}

func (p *planner) emit(instr Instruction) {
	p.prog = append(p.prog, instr)
}

// walk processes the range (limits, head], per the DAG walker's
// non-merge/merge case split.
func (p *planner) walk(ctx context.Context, head git.Hash, limits []git.Hash, path Path) error {
	limitStrs := make([]string, len(limits))
	for i, l := range limits {
		limitStrs[i] = l.String()
	}

	var newest *git.RevListEntry
	for entry, err := range p.repo.RevList(ctx, git.RevListRequest{Head: head.String(), Limits: limitStrs}) {
		if err != nil {
			return fmt.Errorf("walk %v: %w", head.Short(), err)
		}
		e := entry
		newest = &e
		break
	}
	if newest == nil {
		// No commits: head is already covered by limits.
		return nil
	}

	switch len(newest.Parents) {
	case 0, 1:
		mergeHash, found, err := p.findMostRecentMerge(ctx, head, limitStrs)
		if err != nil {
			return err
		}
		if found {
			p.emit(CompensateInstr(head, mergeHash))
			return p.walkMerge(ctx, mergeHash, limits, path)
		}

		bases, err := p.computeBases(ctx, head, limits)
		if err != nil {
			return err
		}
		// Compensate is emitted before Base here, mirroring the
		// found-a-merge branch above (which emits its Compensate
		// before recursing into the merge's own Base/Push pair):
		// Program.Reverse() is one global mirror over the whole
		// walk, so whichever of a pair is emitted later ends up
		// running first in Build.
		p.emit(CompensateInstr(head, bases...))
		p.emit(BaseInstr(bases...))
		return nil
	case 2:
		return p.walkMerge(ctx, head, limits, path)
	default:
		return &UnsupportedTopologyError{Commit: newest.Hash, NumParents: len(newest.Parents)}
	}
}

// findMostRecentMerge scans rev-list(head, limits) for the newest
// commit with exactly two parents, failing if any commit in the scan
// has more than two.
func (p *planner) findMostRecentMerge(ctx context.Context, head git.Hash, limitStrs []string) (git.Hash, bool, error) {
	for entry, err := range p.repo.RevList(ctx, git.RevListRequest{Head: head.String(), Limits: limitStrs}) {
		if err != nil {
			return git.ZeroHash, false, fmt.Errorf("scan for merge: %w", err)
		}
		switch len(entry.Parents) {
		case 0, 1:
			continue
		case 2:
			return entry.Hash, true, nil
		default:
			return git.ZeroHash, false, &UnsupportedTopologyError{Commit: entry.Hash, NumParents: len(entry.Parents)}
		}
	}
	return git.ZeroHash, false, nil
}

// walkMerge processes a merge commit: it emits the pop/push bracket
// for the merge's subgraph, classifies the merge (empty, broken, or
// standard), and recurses into its right and left parents.
func (p *planner) walkMerge(ctx context.Context, merge git.Hash, limits []git.Hash, path Path) error {
	left, err := p.repo.PeelToCommit(ctx, merge.String()+"^1")
	if err != nil {
		return fmt.Errorf("resolve left parent of %v: %w", merge.Short(), err)
	}
	right, err := p.repo.PeelToCommit(ctx, merge.String()+"^2")
	if err != nil {
		return fmt.Errorf("resolve right parent of %v: %w", merge.Short(), err)
	}

	p.emit(PopInstr(merge, path))

	leftTree, err := p.repo.PeelToTree(ctx, left.String())
	if err != nil {
		return fmt.Errorf("resolve tree of %v: %w", left.Short(), err)
	}
	mergeTree, err := p.repo.PeelToTree(ctx, merge.String())
	if err != nil {
		return fmt.Errorf("resolve tree of %v: %w", merge.Short(), err)
	}

	if leftTree != mergeTree {
		broken, err := p.isBrokenMerge(ctx, left, right, mergeTree)
		if err != nil {
			return fmt.Errorf("classify merge %v: %w", merge.Short(), err)
		}
		if broken {
			p.emit(ResolveMergeConflictInstr(merge))
		}

		if err := p.walk(ctx, right, append(append([]git.Hash{}, limits...), left), path.Push(Right)); err != nil {
			return err
		}
	}

	if err := p.walk(ctx, left, limits, path.Push(Left)); err != nil {
		return err
	}

	bases, err := p.computeBases(ctx, merge, limits)
	if err != nil {
		return err
	}
	p.emit(BaseInstr(bases...))
	p.emit(PushInstr(merge, path))
	return nil
}

// isBrokenMerge reports whether the default three-way merge of right
// onto left fails, or succeeds with a tree different from mergeTree.
func (p *planner) isBrokenMerge(ctx context.Context, left, right git.Hash, mergeTree git.Hash) (bool, error) {
	tree, err := p.repo.MergeTree(ctx, git.MergeTreeRequest{
		Branch1: left.String(),
		Branch2: right.String(),
	})
	if err != nil {
		var conflict *git.MergeTreeConflictError
		if errors.As(err, &conflict) {
			return true, nil
		}
		return false, fmt.Errorf("merge-tree %v %v: %w", left.Short(), right.Short(), err)
	}
	return tree != mergeTree, nil
}

// computeBases resolves the reduced boundary of rev-list(head, limits,
// --boundary): the minimal set of commits a "base" instruction needs
// to reconstruct the bottom of this subgraph.
//
// If the walk reaches all the way back to root commits without ever
// hitting a limit (no boundary markers at all), the roots themselves
// become the bases — see Open Question resolution in DESIGN.md for
// the 0-parent root case.
func (p *planner) computeBases(ctx context.Context, head git.Hash, limits []git.Hash) ([]git.Hash, error) {
	limitStrs := make([]string, len(limits))
	for i, l := range limits {
		limitStrs[i] = l.String()
	}

	var boundary, roots []git.Hash
	for entry, err := range p.repo.RevList(ctx, git.RevListRequest{
		Head: head.String(), Limits: limitStrs, Boundary: true,
	}) {
		if err != nil {
			return nil, fmt.Errorf("compute bases for %v: %w", head.Short(), err)
		}
		if entry.Boundary {
			boundary = append(boundary, entry.Hash)
		} else if len(entry.Parents) == 0 {
			roots = append(roots, entry.Hash)
		}
	}

	if len(boundary) > 0 {
		return ReduceBases(ctx, p.repo, boundary)
	}
	return ReduceBases(ctx, p.repo, roots)
}
