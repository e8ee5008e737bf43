package linearize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"go.abhg.dev/linearize/internal/git"
	"go.abhg.dev/linearize/internal/git/gittest"
	"go.abhg.dev/linearize/internal/silog/silogtest"
)

// openFixture builds a repository from a testscript-style setup script
// and opens a Repository/Worktree pair against it, for tests that need
// to exercise unexported engine internals directly.
func openFixture(ctx context.Context, t *testing.T, script string) (*git.Repository, *git.Worktree) {
	t.Helper()

	fx, err := gittest.LoadFixtureScript([]byte(script))
	require.NoError(t, err)
	t.Cleanup(fx.Cleanup)

	repo, err := git.Open(ctx, fx.Dir(), git.OpenOptions{Log: silogtest.New(t)})
	require.NoError(t, err)

	wt, err := repo.OpenWorktree(ctx, fx.Dir())
	require.NoError(t, err)

	return repo, wt
}
