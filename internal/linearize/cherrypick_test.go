package linearize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.abhg.dev/linearize/internal/config"
)

// TestCherryPick_clean replays a commit that applies without conflict;
// no compensation commit should be synthesized.
func TestCherryPick_clean(t *testing.T) {
	ctx := context.Background()
	repo, wt := openFixture(ctx, t, `
as 'Test <test@example.com>'
git init -q
echo base > a.txt
git add a.txt
git commit -q -m base

echo other > b.txt
git add b.txt
git commit -q -m 'add b.txt'
`)

	commit, err := repo.PeelToCommit(ctx, "HEAD")
	require.NoError(t, err)
	base, err := repo.PeelToCommit(ctx, "HEAD~1")
	require.NoError(t, err)

	require.NoError(t, wt.DetachHead(ctx, base.String()))

	e := &engine{repo: repo, wt: wt, cfg: config.Default()}
	require.NoError(t, e.cherryPick(ctx, commit))

	tip, err := repo.PeelToCommit(ctx, "HEAD")
	require.NoError(t, err)
	wantTree, err := repo.PeelToTree(ctx, commit.String())
	require.NoError(t, err)
	gotTree, err := repo.PeelToTree(ctx, tip.String())
	require.NoError(t, err)
	assert.Equal(t, wantTree, gotTree)

	msg, err := repo.CommitFullMessage(ctx, tip.String())
	require.NoError(t, err)
	assert.False(t, IsCompensation(PrefixOursTheirs, msg))
}

// TestCherryPick_conflictMergeMode replays a commit that conflicts
// with the current HEAD, in merge mode: a single ours-favoring commit
// is produced and its tree matches the pre-pick HEAD's tree (the
// "ours" side wins outright, no separate compensation commit).
func TestCherryPick_conflictMergeMode(t *testing.T) {
	ctx := context.Background()
	repo, wt := openFixture(ctx, t, `
as 'Test <test@example.com>'
git init -q
echo base > file.txt
git add file.txt
git commit -q -m base

git branch side

echo ours > file.txt
git add file.txt
git commit -q -m ours

git checkout -q side
echo theirs > file.txt
git add file.txt
git commit -q -m theirs
`)

	conflicting, err := repo.PeelToCommit(ctx, "side")
	require.NoError(t, err)
	oursHead, err := repo.PeelToCommit(ctx, "main")
	require.NoError(t, err)
	require.NoError(t, wt.DetachHead(ctx, oursHead.String()))

	cfg := config.Default()
	cfg.ConflictMode = config.ModeMerge
	e := &engine{repo: repo, wt: wt, cfg: cfg}
	require.NoError(t, e.cherryPick(ctx, conflicting))

	tip, err := repo.PeelToCommit(ctx, "HEAD")
	require.NoError(t, err)
	oursTree, err := repo.PeelToTree(ctx, oursHead.String())
	require.NoError(t, err)
	gotTree, err := repo.PeelToTree(ctx, tip.String())
	require.NoError(t, err)
	assert.Equal(t, oursTree, gotTree, "merge mode must favor ours")
}

// TestCherryPick_conflictSplitMode replays the same conflicting commit
// in split mode: a theirs-favoring replay is followed by a separate
// compensation commit that restores the ours-favoring result, so the
// tip's tree matches the pre-pick HEAD's tree.
func TestCherryPick_conflictSplitMode(t *testing.T) {
	ctx := context.Background()
	repo, wt := openFixture(ctx, t, `
as 'Test <test@example.com>'
git init -q
echo base > file.txt
git add file.txt
git commit -q -m base

git branch side

echo ours > file.txt
git add file.txt
git commit -q -m ours

git checkout -q side
echo theirs > file.txt
git add file.txt
git commit -q -m theirs
`)

	conflicting, err := repo.PeelToCommit(ctx, "side")
	require.NoError(t, err)
	oursHead, err := repo.PeelToCommit(ctx, "main")
	require.NoError(t, err)
	require.NoError(t, wt.DetachHead(ctx, oursHead.String()))

	cfg := config.Default()
	cfg.ConflictMode = config.ModeSplit
	e := &engine{repo: repo, wt: wt, cfg: cfg}
	require.NoError(t, e.cherryPick(ctx, conflicting))

	tip, err := repo.PeelToCommit(ctx, "HEAD")
	require.NoError(t, err)
	msg, err := repo.CommitFullMessage(ctx, tip.String())
	require.NoError(t, err)
	assert.True(t, IsCompensation(PrefixOursTheirs, msg))

	oursTree, err := repo.PeelToTree(ctx, oursHead.String())
	require.NoError(t, err)
	gotTree, err := repo.PeelToTree(ctx, tip.String())
	require.NoError(t, err)
	assert.Equal(t, oursTree, gotTree, "split mode's compensation must restore the ours result")
}

// TestCherryPick_skipsRedundantCompensation confirms that, in a
// recursive run, a commit whose message already carries the
// ours-theirs compensation prefix is skipped rather than replayed
// again (its effect is already folded into its parent's tree by an
// inner linearization).
func TestCherryPick_skipsRedundantCompensation(t *testing.T) {
	ctx := context.Background()
	repo, wt := openFixture(ctx, t, `
as 'Test <test@example.com>'
git init -q
git commit -q --allow-empty -m base
git commit -q --allow-empty -m 'COMPENSATION: ours-theirs: deadbeef'
`)

	commit, err := repo.PeelToCommit(ctx, "HEAD")
	require.NoError(t, err)
	base, err := repo.PeelToCommit(ctx, "HEAD~1")
	require.NoError(t, err)
	require.NoError(t, wt.DetachHead(ctx, base.String()))

	beforeTip, err := repo.PeelToCommit(ctx, "HEAD")
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Recursive = true
	e := &engine{repo: repo, wt: wt, cfg: cfg}
	require.NoError(t, e.cherryPick(ctx, commit))

	afterTip, err := repo.PeelToCommit(ctx, "HEAD")
	require.NoError(t, err)
	assert.Equal(t, beforeTip, afterTip, "redundant compensation must be a no-op")
}

// TestCherryPick_nonRecursiveReplaysEverything confirms that, with
// recursion disabled, a compensation-prefixed commit is NOT
// special-cased and gets replayed like any other commit.
func TestCherryPick_nonRecursiveReplaysEverything(t *testing.T) {
	ctx := context.Background()
	repo, wt := openFixture(ctx, t, `
as 'Test <test@example.com>'
git init -q
echo base > file.txt
git add file.txt
git commit -q -m base
echo changed > file.txt
git add file.txt
git commit -q -m 'COMPENSATION: ours-theirs: deadbeef'
`)

	commit, err := repo.PeelToCommit(ctx, "HEAD")
	require.NoError(t, err)
	base, err := repo.PeelToCommit(ctx, "HEAD~1")
	require.NoError(t, err)
	require.NoError(t, wt.DetachHead(ctx, base.String()))

	cfg := config.Default()
	cfg.Recursive = false
	e := &engine{repo: repo, wt: wt, cfg: cfg}
	require.NoError(t, e.cherryPick(ctx, commit))

	tip, err := repo.PeelToCommit(ctx, "HEAD")
	require.NoError(t, err)
	wantTree, err := repo.PeelToTree(ctx, commit.String())
	require.NoError(t, err)
	gotTree, err := repo.PeelToTree(ctx, tip.String())
	require.NoError(t, err)
	assert.Equal(t, wantTree, gotTree, "non-recursive mode must still apply the commit's content")
}
