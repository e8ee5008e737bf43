package linearize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.abhg.dev/linearize/internal/config"
	"go.abhg.dev/linearize/internal/silog"
)

// TestBuild_baseRunsOnce confirms runBase's started-gate: a second
// KindBase instruction later in the stream is a no-op, since the
// scratch HEAD was already established by the first one.
func TestBuild_baseRunsOnce(t *testing.T) {
	ctx := context.Background()
	repo, wt := openFixture(ctx, t, `
as 'Test <test@example.com>'
git init -q
git commit -q --allow-empty -m A
git commit -q --allow-empty -m B
`)

	a, err := repo.PeelToCommit(ctx, "HEAD~1")
	require.NoError(t, err)
	b, err := repo.PeelToCommit(ctx, "HEAD")
	require.NoError(t, err)

	eng := &engine{repo: repo, wt: wt, cfg: config.Default()}
	bd := &builder{eng: eng, log: silog.Nop()}

	require.NoError(t, bd.runBase(ctx, BaseInstr(a)))
	assert.True(t, bd.started)
	assert.Equal(t, a, bd.base)

	head, err := repo.PeelToCommit(ctx, "HEAD")
	require.NoError(t, err)
	assert.Equal(t, a, head)

	// A second base instruction, even for a different commit, must
	// not move HEAD: runBase only acts the first time.
	require.NoError(t, bd.runBase(ctx, BaseInstr(b)))
	headAfter, err := repo.PeelToCommit(ctx, "HEAD")
	require.NoError(t, err)
	assert.Equal(t, a, headAfter)
}

// TestBuild_endNoopWhenTreesMatch confirms that runEnd synthesizes no
// fixup commit when the current HEAD's tree already matches the
// recorded head's tree.
func TestBuild_endNoopWhenTreesMatch(t *testing.T) {
	ctx := context.Background()
	repo, wt := openFixture(ctx, t, `
as 'Test <test@example.com>'
git init -q
git commit -q --allow-empty -m A
`)

	head, err := repo.PeelToCommit(ctx, "HEAD")
	require.NoError(t, err)

	eng := &engine{repo: repo, wt: wt, cfg: config.Default()}
	bd := &builder{eng: eng, log: silog.Nop()}

	beforeTip, err := repo.PeelToCommit(ctx, "HEAD")
	require.NoError(t, err)

	require.NoError(t, bd.runEnd(ctx, EndInstr(head)))

	afterTip, err := repo.PeelToCommit(ctx, "HEAD")
	require.NoError(t, err)
	assert.Equal(t, beforeTip, afterTip, "matching trees must not synthesize a fixup commit")
}

// TestBuild_endSynthesizesFixup confirms that runEnd closes a tree gap
// between the current HEAD and the recorded head with a fixup commit
// carrying the documented prefix.
func TestBuild_endSynthesizesFixup(t *testing.T) {
	ctx := context.Background()
	repo, wt := openFixture(ctx, t, `
as 'Test <test@example.com>'
git init -q
echo base > file.txt
git add file.txt
git commit -q -m base

echo changed > file.txt
git add file.txt
git commit -q -m changed
`)

	head, err := repo.PeelToCommit(ctx, "HEAD")
	require.NoError(t, err)
	base, err := repo.PeelToCommit(ctx, "HEAD~1")
	require.NoError(t, err)
	require.NoError(t, wt.DetachHead(ctx, base.String()))

	eng := &engine{repo: repo, wt: wt, cfg: config.Default()}
	bd := &builder{eng: eng, log: silog.Nop()}

	require.NoError(t, bd.runEnd(ctx, EndInstr(head)))

	tip, err := repo.PeelToCommit(ctx, "HEAD")
	require.NoError(t, err)
	wantTree, err := repo.PeelToTree(ctx, head.String())
	require.NoError(t, err)
	gotTree, err := repo.PeelToTree(ctx, tip.String())
	require.NoError(t, err)
	assert.Equal(t, wantTree, gotTree)

	msg, err := repo.CommitFullMessage(ctx, tip.String())
	require.NoError(t, err)
	assert.True(t, IsCompensation(PrefixFinalFixup, msg))
}

// TestBuild_popInvariantFatalByDefault confirms that a tree mismatch
// at a KindPop is reported as a [PopInvariantError] outside the
// relaxed right-suffix/non-recursive case.
func TestBuild_popInvariantFatalByDefault(t *testing.T) {
	ctx := context.Background()
	repo, wt := openFixture(ctx, t, `
as 'Test <test@example.com>'
git init -q
echo A > file.txt
git add file.txt
git commit -q -m A
echo B > file.txt
git add file.txt
git commit -q -m B
`)

	merge, err := repo.PeelToCommit(ctx, "HEAD")
	require.NoError(t, err)
	other, err := repo.PeelToCommit(ctx, "HEAD~1")
	require.NoError(t, err)
	require.NoError(t, wt.DetachHead(ctx, other.String()))

	eng := &engine{repo: repo, wt: wt, cfg: config.Default()}
	bd := &builder{eng: eng, log: silog.Nop()}

	err = bd.runPop(ctx, PopInstr(merge, Path("")))
	var popErr *PopInvariantError
	require.ErrorAs(t, err, &popErr)
	assert.Equal(t, merge, popErr.Merge)
}

// TestBuild_popInvariantRelaxedForNonRecursiveRightSuffix confirms the
// documented relaxation: a mismatched pop is only a warning, not a
// fatal error, when the path is a right-suffix and recursion is off.
func TestBuild_popInvariantRelaxedForNonRecursiveRightSuffix(t *testing.T) {
	ctx := context.Background()
	repo, wt := openFixture(ctx, t, `
as 'Test <test@example.com>'
git init -q
echo A > file.txt
git add file.txt
git commit -q -m A
echo B > file.txt
git add file.txt
git commit -q -m B
`)

	merge, err := repo.PeelToCommit(ctx, "HEAD")
	require.NoError(t, err)
	other, err := repo.PeelToCommit(ctx, "HEAD~1")
	require.NoError(t, err)
	require.NoError(t, wt.DetachHead(ctx, other.String()))

	cfg := config.Default()
	cfg.Recursive = false
	eng := &engine{repo: repo, wt: wt, cfg: cfg}
	bd := &builder{eng: eng, log: silog.Nop()}

	err = bd.runPop(ctx, PopInstr(merge, Path("").Push(Right)))
	assert.NoError(t, err)
}

// TestBuild_pushNoopWhenNotRightSuffix confirms runPush is a no-op for
// a path that does not end in Right (e.g. the top-level merge being
// linearized directly, not one discovered inside a right subtree).
func TestBuild_pushNoopWhenNotRightSuffix(t *testing.T) {
	ctx := context.Background()
	repo, wt := openFixture(ctx, t, `
as 'Test <test@example.com>'
git init -q
echo base > file.txt
git add file.txt
git commit -q -m initial

git checkout -q -b side
echo side > side.txt
git add side.txt
git commit -q -m 'side: add side.txt'

git checkout -q main
git merge -q --no-ff --no-edit side
`)

	merge, err := repo.PeelToCommit(ctx, "HEAD")
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Recursive = true
	eng := &engine{repo: repo, wt: wt, cfg: cfg}
	bd := &builder{eng: eng, log: silog.Nop()}

	beforeTip, err := repo.PeelToCommit(ctx, "HEAD")
	require.NoError(t, err)

	require.NoError(t, bd.runPush(ctx, PushInstr(merge, Path(""))))

	afterTip, err := repo.PeelToCommit(ctx, "HEAD")
	require.NoError(t, err)
	assert.Equal(t, beforeTip, afterTip)
}

// TestBuild_pushRecursesIntoRightSubtree confirms runPush, for a
// right-suffix path with recursion enabled, linearizes the right
// subtree in its own atomic guard and folds the result onto HEAD.
func TestBuild_pushRecursesIntoRightSubtree(t *testing.T) {
	ctx := context.Background()
	repo, wt := openFixture(ctx, t, `
as 'Test <test@example.com>'
git init -q
echo base > trunk.txt
git add trunk.txt
git commit -q -m initial

git checkout -q -b side
echo c1 > side.txt
git add side.txt
git commit -q -m 'side: c1'
echo c2 > side.txt
git add side.txt
git commit -q -m 'side: c2'

git checkout -q main
git merge -q --no-ff --no-edit side
`)

	merge, err := repo.PeelToCommit(ctx, "HEAD")
	require.NoError(t, err)
	left, err := repo.PeelToCommit(ctx, "HEAD^1")
	require.NoError(t, err)
	require.NoError(t, wt.DetachHead(ctx, left.String()))

	cfg := config.Default()
	cfg.Recursive = true
	eng := &engine{repo: repo, wt: wt, cfg: cfg}
	bd := &builder{eng: eng, log: silog.Nop()}

	require.NoError(t, bd.runPush(ctx, PushInstr(merge, Path("").Push(Right))))

	tip, err := repo.PeelToCommit(ctx, "HEAD")
	require.NoError(t, err)
	wantTree, err := repo.PeelToTree(ctx, merge.String())
	require.NoError(t, err)
	gotTree, err := repo.PeelToTree(ctx, tip.String())
	require.NoError(t, err)
	assert.Equal(t, wantTree, gotTree)
}
