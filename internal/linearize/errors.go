package linearize

import (
	"fmt"

	"go.abhg.dev/linearize/internal/git"
)

// UnsupportedTopologyError reports that a commit has more parents
// than the engine knows how to linearize (octopus merges).
type UnsupportedTopologyError struct {
	Commit     git.Hash
	NumParents int
}

func (e *UnsupportedTopologyError) Error() string {
	return fmt.Sprintf("commit %v has %d parents: at most 2 are supported",
		e.Commit.Short(), e.NumParents)
}

// CherryPickError reports that replaying a commit onto a new base
// failed in a way the compensated cherry-pick could not resolve.
type CherryPickError struct {
	Commit git.Hash
	Err    error
}

func (e *CherryPickError) Error() string {
	return fmt.Sprintf("cherry-pick %v: %v", e.Commit.Short(), e.Err)
}

func (e *CherryPickError) Unwrap() error { return e.Err }

// MergeReplayError reports that reproducing a merge commit's
// resolution against its relocated parents failed.
type MergeReplayError struct {
	Merge git.Hash
	Err   error
}

func (e *MergeReplayError) Error() string {
	return fmt.Sprintf("replay merge %v: %v", e.Merge.Short(), e.Err)
}

func (e *MergeReplayError) Unwrap() error { return e.Err }

// ApplyError reports that applying a computed patch to reproduce a
// tree failed.
type ApplyError struct {
	Err error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply: %v", e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }

// PopInvariantError reports that popping out of a merge's subgraph
// produced a tree that does not match the merge's recorded tree,
// meaning the engine's replay of the merge diverged from the original.
type PopInvariantError struct {
	Merge git.Hash
	Want  git.Hash
	Got   git.Hash
}

func (e *PopInvariantError) Error() string {
	return fmt.Sprintf("pop %v: tree mismatch: want %v, got %v",
		e.Merge.Short(), e.Want.Short(), e.Got.Short())
}

// RestoreError reports that the atomic guard failed to restore the
// repository to its pre-run state, leaving it in a state that needs
// manual recovery (e.g. a dangling "remnant" stash entry).
//
// CauseErr is the error the run failed with, if restoration was
// triggered by a failure; it is nil if restoration failed while
// cleaning up after an otherwise-successful run.
type RestoreError struct {
	Err      error
	CauseErr error
}

func (e *RestoreError) Error() string {
	if e.CauseErr != nil {
		return fmt.Sprintf("restore repository state after error (%v): %v", e.CauseErr, e.Err)
	}
	return fmt.Sprintf("restore repository state after run: %v", e.Err)
}

func (e *RestoreError) Unwrap() error { return e.Err }

// Cause returns the error that triggered the restore attempt, or nil
// if restoration failed after an otherwise-successful run.
func (e *RestoreError) Cause() error { return e.CauseErr }
