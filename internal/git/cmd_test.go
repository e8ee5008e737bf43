package git

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"go.abhg.dev/linearize/internal/silog"
)

// TestGitCmd_runWrapsStderr confirms that a failing command's error is
// joined with whatever was written to its captured stderr, so callers
// see the reason git gave without needing to capture it themselves.
func TestGitCmd_runWrapsStderr(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := newMockExecer(ctrl)

	c := newGitCmd(context.Background(), silog.Nop(), "status")
	_, _ = c.cmd.Stderr.Write([]byte("fatal: not a git repository\n"))

	sentinel := errors.New("exit status 128")
	mock.EXPECT().Run(c.cmd).Return(sentinel)

	err := c.Run(mock)
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.Contains(t, err.Error(), "fatal: not a git repository")
}

// TestGitCmd_runNoStderrPassesThroughCleanly confirms that a failing
// command with nothing on stderr doesn't get an empty "stderr:\n"
// suffix tacked onto the error.
func TestGitCmd_runNoStderrPassesThroughCleanly(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := newMockExecer(ctrl)

	c := newGitCmd(context.Background(), silog.Nop(), "status")

	sentinel := errors.New("exit status 1")
	mock.EXPECT().Run(c.cmd).Return(sentinel)

	err := c.Run(mock)
	assert.Equal(t, sentinel, err)
}

// TestGitCmd_runSuccessNoWrap confirms that a successful run returns a
// nil error even if something was written to stderr (git sometimes
// writes progress/advice there on success).
func TestGitCmd_runSuccessNoWrap(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := newMockExecer(ctrl)

	c := newGitCmd(context.Background(), silog.Nop(), "status")
	_, _ = c.cmd.Stderr.Write([]byte("hint: some advice\n"))

	mock.EXPECT().Run(c.cmd).Return(nil)

	assert.NoError(t, c.Run(mock))
}

// TestGitCmd_output confirms Output passes stdout through unchanged
// and wraps a returned error the same way Run does.
func TestGitCmd_output(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := newMockExecer(ctrl)

	c := newGitCmd(context.Background(), silog.Nop(), "rev-parse", "HEAD")
	_, _ = c.cmd.Stderr.Write([]byte("fatal: bad revision\n"))

	sentinel := errors.New("exit status 128")
	mock.EXPECT().Output(c.cmd).Return([]byte("deadbeef\n"), sentinel)

	out, err := c.Output(mock)
	assert.Equal(t, []byte("deadbeef\n"), out)
	assert.ErrorIs(t, err, sentinel)
	assert.Contains(t, err.Error(), "fatal: bad revision")
}

// TestGitCmd_outputStringTrimsTrailingNewline confirms OutputString
// strips exactly one trailing newline, not all trailing whitespace.
func TestGitCmd_outputStringTrimsTrailingNewline(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := newMockExecer(ctrl)

	c := newGitCmd(context.Background(), silog.Nop(), "rev-parse", "HEAD")
	mock.EXPECT().Output(c.cmd).Return([]byte("deadbeef\n\n"), nil)

	out, err := c.OutputString(mock)
	require.NoError(t, err)
	assert.Equal(t, "deadbeef\n", out)
}

// TestGitCmd_stderrOverrideDisablesWrap confirms that calling Stderr
// to redirect output elsewhere also disables the automatic
// error-wrapping, since the caller now owns that stream.
func TestGitCmd_stderrOverrideDisablesWrap(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := newMockExecer(ctrl)

	c := newGitCmd(context.Background(), silog.Nop(), "status")
	c.Stderr(new(discardWriter))

	sentinel := errors.New("exit status 1")
	mock.EXPECT().Run(c.cmd).Return(sentinel)

	assert.Equal(t, sentinel, c.Run(mock))
}

// TestCmdStdinWriter_closeWaitsForCommand confirms Close, on a clean
// stdin close, waits for the underlying command rather than leaving it
// running.
func TestCmdStdinWriter_closeWaitsForCommand(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := newMockExecer(ctrl)

	c := newGitCmd(context.Background(), silog.Nop(), "hash-object", "--stdin")
	stdin := &fakeWriteCloser{}
	w := &cmdStdinWriter{cmd: c, exec: mock, stdin: stdin}

	mock.EXPECT().Wait(c.cmd).Return(nil)

	require.NoError(t, w.Close())
	assert.True(t, stdin.closed)
}

// TestCmdStdinWriter_closeErrorKillsCommand confirms that a failing
// stdin close kills the command rather than waiting for it (which
// would hang forever if the writer itself is wedged).
func TestCmdStdinWriter_closeErrorKillsCommand(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := newMockExecer(ctrl)

	c := newGitCmd(context.Background(), silog.Nop(), "hash-object", "--stdin")
	closeErr := errors.New("broken pipe")
	stdin := &fakeWriteCloser{err: closeErr}
	w := &cmdStdinWriter{cmd: c, exec: mock, stdin: stdin}

	killErr := errors.New("kill failed")
	mock.EXPECT().Kill(c.cmd).Return(killErr)

	err := w.Close()
	require.Error(t, err)
	assert.ErrorIs(t, err, closeErr)
	assert.ErrorIs(t, err, killErr)
}

type discardWriter struct{}

func (*discardWriter) Write(p []byte) (int, error) { return len(p), nil }

type fakeWriteCloser struct {
	err    error
	closed bool
}

func (*fakeWriteCloser) Write(p []byte) (int, error) { return len(p), nil }

func (f *fakeWriteCloser) Close() error {
	f.closed = true
	return f.err
}
