package linearize

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.abhg.dev/linearize/internal/git"
	"go.abhg.dev/linearize/internal/silog"
)

func TestAtomicRun_successRestoresState(t *testing.T) {
	ctx := context.Background()
	repo, wt := openFixture(ctx, t, `
as 'Test <test@example.com>'
git init -q
git commit -q --allow-empty -m A
git commit -q --allow-empty -m B
`)

	beforeHead, err := repo.PeelToCommit(ctx, "HEAD")
	require.NoError(t, err)
	beforeBranch, err := wt.CurrentBranch(ctx)
	require.NoError(t, err)

	other, err := repo.PeelToCommit(ctx, "HEAD~1")
	require.NoError(t, err)

	tip, err := atomicRun(ctx, wt, silog.Nop(), func(ctx context.Context) (git.Hash, error) {
		if err := wt.DetachHead(ctx, other.String()); err != nil {
			return git.ZeroHash, err
		}
		return other, nil
	})
	require.NoError(t, err)
	assert.Equal(t, other, tip)

	afterHead, err := repo.PeelToCommit(ctx, "HEAD")
	require.NoError(t, err)
	assert.Equal(t, beforeHead, afterHead)

	afterBranch, err := wt.CurrentBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, beforeBranch, afterBranch)
}

func TestAtomicRun_failureRestoresState(t *testing.T) {
	ctx := context.Background()
	repo, wt := openFixture(ctx, t, `
as 'Test <test@example.com>'
git init -q
git commit -q --allow-empty -m A
`)

	beforeHead, err := repo.PeelToCommit(ctx, "HEAD")
	require.NoError(t, err)

	scratch := filepath.Join(wt.RootDir(), "scratch.txt")
	require.NoError(t, os.WriteFile(scratch, []byte("pre-existing\n"), 0o644))

	sentinel := errors.New("boom")
	_, err = atomicRun(ctx, wt, silog.Nop(), func(ctx context.Context) (git.Hash, error) {
		return git.ZeroHash, sentinel
	})
	require.ErrorIs(t, err, sentinel)

	afterHead, err := repo.PeelToCommit(ctx, "HEAD")
	require.NoError(t, err)
	assert.Equal(t, beforeHead, afterHead)

	data, statErr := os.ReadFile(scratch)
	require.NoError(t, statErr)
	assert.Equal(t, "pre-existing\n", string(data))
}

func TestAtomicRun_detachedHeadRestoresDetached(t *testing.T) {
	ctx := context.Background()
	repo, wt := openFixture(ctx, t, `
as 'Test <test@example.com>'
git init -q
git commit -q --allow-empty -m A
git commit -q --allow-empty -m B
`)

	head, err := repo.PeelToCommit(ctx, "HEAD")
	require.NoError(t, err)
	require.NoError(t, wt.DetachHead(ctx, head.String()))

	_, err = wt.CurrentBranch(ctx)
	require.ErrorIs(t, err, git.ErrDetachedHead)

	other, err := repo.PeelToCommit(ctx, "HEAD~1")
	require.NoError(t, err)

	_, err = atomicRun(ctx, wt, silog.Nop(), func(ctx context.Context) (git.Hash, error) {
		return other, wt.DetachHead(ctx, other.String())
	})
	require.NoError(t, err)

	afterHead, err := repo.PeelToCommit(ctx, "HEAD")
	require.NoError(t, err)
	assert.Equal(t, head, afterHead)

	_, err = wt.CurrentBranch(ctx)
	assert.ErrorIs(t, err, git.ErrDetachedHead, "must restore detached state, not re-attach to a branch")
}
