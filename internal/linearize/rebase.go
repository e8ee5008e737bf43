package linearize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.abhg.dev/linearize/internal/git"
	"go.abhg.dev/linearize/internal/graph"
	"go.abhg.dev/linearize/internal/sliceutil"
)

// compensatedRebase replays every commit in (bases, tip] onto the
// current HEAD, in topological order, per spec §4.5. bases is usually
// a single commit; a walk past multiple independent boundary commits
// needs one exclusion per boundary. It returns the hash of the new tip.
func (e *engine) compensatedRebase(ctx context.Context, bases []git.Hash, tip git.Hash) (git.Hash, error) {
	onto, err := e.repo.PeelToCommit(ctx, "HEAD")
	if err != nil {
		return git.ZeroHash, fmt.Errorf("resolve current HEAD: %w", err)
	}

	if len(bases) == 1 && bases[0] == tip {
		return onto, nil
	}

	var rebaseErr error
	if len(bases) == 1 {
		rebaseErr = e.wt.Rebase(ctx, git.RebaseRequest{
			Onto:      onto.String(),
			Upstream:  bases[0].String(),
			Branch:    tip.String(),
			Quiet:     true,
			KeepEmpty: true,
		})
	} else {
		// git rebase only accepts a single upstream; a multi-base
		// exclusion set always falls back to per-commit replay.
		rebaseErr = errors.New("multiple bases require manual replay")
	}

	if rebaseErr == nil {
		return e.repo.PeelToCommit(ctx, "HEAD")
	}

	var interrupt *git.RebaseInterruptError
	if errors.As(rebaseErr, &interrupt) {
		if err := e.wt.RebaseAbort(ctx); err != nil {
			return git.ZeroHash, fmt.Errorf("abort failed rebase: %w", err)
		}
	}

	commits, err := commitsOldestFirst(ctx, e.repo, bases, tip)
	if err != nil {
		return git.ZeroHash, fmt.Errorf("list commits in (%v, %v]: %w", baseList(bases), tip.Short(), err)
	}

	if err := e.wt.DetachHead(ctx, onto.String()); err != nil {
		return git.ZeroHash, fmt.Errorf("detach HEAD at %v: %w", onto.Short(), err)
	}

	for _, c := range commits {
		if err := e.cherryPick(ctx, c); err != nil {
			return git.ZeroHash, err
		}
	}

	return e.repo.PeelToCommit(ctx, "HEAD")
}

func baseList(bases []git.Hash) string {
	shorts := make([]string, len(bases))
	for i, b := range bases {
		shorts[i] = b.Short()
	}
	return strings.Join(shorts, ",")
}

// commitsOldestFirst lists the commits in (bases, tip] in topological
// (parent-before-child) order. The range is assumed to be a linear
// chain: every commit in it has exactly one parent, since a merge
// commit is handled separately by the Plan/Build split.
func commitsOldestFirst(ctx context.Context, repo *git.Repository, bases []git.Hash, tip git.Hash) ([]git.Hash, error) {
	type node struct {
		hash      git.Hash
		parent    git.Hash
		hasParent bool
	}

	limits := make([]string, len(bases))
	for i, b := range bases {
		limits[i] = b.String()
	}

	entries, err := sliceutil.CollectErr(repo.RevList(ctx, git.RevListRequest{
		Head:        tip.String(),
		Limits:      limits,
		FirstParent: true,
	}))
	if err != nil {
		return nil, err
	}

	nodes := make([]node, len(entries))
	for i, entry := range entries {
		n := node{hash: entry.Hash}
		if len(entry.Parents) > 0 {
			n.parent, n.hasParent = entry.Parents[0], true
		}
		nodes[i] = n
	}

	hashes := make([]git.Hash, len(nodes))
	byHash := make(map[git.Hash]node, len(nodes))
	for i, n := range nodes {
		hashes[i] = n.hash
		byHash[n.hash] = n
	}

	return graph.Toposort(hashes, func(h git.Hash) (git.Hash, bool) {
		n, ok := byHash[h]
		if !ok || !n.hasParent {
			return git.ZeroHash, false
		}
		if _, inRange := byHash[n.parent]; !inRange {
			return git.ZeroHash, false
		}
		return n.parent, true
	}), nil
}
