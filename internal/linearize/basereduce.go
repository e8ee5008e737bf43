package linearize

import (
	"context"

	"go.abhg.dev/linearize/internal/git"
	"go.abhg.dev/linearize/internal/must"
	"go.abhg.dev/linearize/internal/sliceutil"
)

// ReduceBases eliminates, from a set of boundary commits, any commit
// that is an ancestor of another commit in the same set — an ancestor
// adds no content beyond its descendant for the purpose of a "base"
// instruction.
//
// ReduceBases is associative and commutative up to set equality, and
// idempotent: ReduceBases(ReduceBases(s)) always equals ReduceBases(s).
func ReduceBases(ctx context.Context, repo *git.Repository, ids []git.Hash) ([]git.Hash, error) {
	uniq := dedupeHashes(ids)
	if len(uniq) <= 1 {
		return uniq, nil
	}

	keep := make([]bool, len(uniq))
	for i := range uniq {
		keep[i] = true
	}

	for i, a := range uniq {
		if !keep[i] {
			continue
		}
		for j, b := range uniq {
			if i == j || !keep[j] {
				continue
			}
			isAncestor := repo.IsAncestor(ctx, a, b)
			if isAncestor {
				keep[i] = false
				break
			}
		}
	}

	i := 0
	out := sliceutil.RemoveFunc(uniq, func(git.Hash) bool {
		defer func() { i++ }()
		return !keep[i]
	})
	// A DAG always has at least one maximal element, so reduction of
	// a non-empty set can never eliminate every member.
	must.NotBeEmptyf(out, "base reduction of %v eliminated every commit", uniq)
	return out, nil
}

func dedupeHashes(ids []git.Hash) []git.Hash {
	seen := make(map[git.Hash]struct{}, len(ids))
	out := make([]git.Hash, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
