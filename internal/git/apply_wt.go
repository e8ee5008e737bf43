package git

import (
	"context"
	"fmt"
)

// Patch is an opaque, full-index diff between two trees,
// suitable for use with [Worktree.Apply].
type Patch []byte

// Empty reports whether the patch has no content.
func (p Patch) Empty() bool {
	return len(p) == 0
}

// Diff computes the full-index patch between two commit-ish values.
// The returned [Patch] can be applied with [Worktree.Apply].
func (r *Repository) Diff(ctx context.Context, a, b string) (Patch, error) {
	out, err := r.gitCmd(ctx, "diff", "--full-index", a, b).Output(r.exec)
	if err != nil {
		return nil, fmt.Errorf("diff %v..%v: %w", a, b, err)
	}
	return Patch(out), nil
}

// ApplyRequest is a request to apply a patch to the working tree and index.
type ApplyRequest struct {
	// Patch is the diff to apply.
	Patch Patch // required

	// AllowEmpty allows applying a patch with no content
	// as a no-op, instead of failing.
	AllowEmpty bool

	// ThreeWay falls back to a three-way merge
	// if the patch does not apply cleanly.
	ThreeWay bool
}

// ApplyConflictError indicates that a patch could not be applied
// to the working tree and index.
type ApplyConflictError struct {
	Err error
}

func (e *ApplyConflictError) Error() string {
	return "apply: patch did not apply cleanly"
}

func (e *ApplyConflictError) Unwrap() error {
	return e.Err
}

// Apply applies a patch to the working tree and index.
//
// Returns [ApplyConflictError] if the patch does not apply cleanly.
func (w *Worktree) Apply(ctx context.Context, req ApplyRequest) error {
	if req.Patch.Empty() {
		if req.AllowEmpty {
			return nil
		}
		return &ApplyConflictError{Err: fmt.Errorf("empty patch")}
	}

	args := []string{"apply", "--index"}
	if req.ThreeWay {
		args = append(args, "--3way")
	}

	err := w.gitCmd(ctx, args...).StdinString(string(req.Patch)).Run(w.exec)
	if err != nil {
		return &ApplyConflictError{Err: err}
	}
	return nil
}
