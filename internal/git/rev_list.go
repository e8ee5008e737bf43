package git

import (
	"bufio"
	"context"
	"fmt"
	"iter"
	"strings"
)

// RevListEntry is a single commit reported by [Repository.RevList].
type RevListEntry struct {
	// Hash is the commit's hash.
	Hash Hash

	// Parents holds the hashes of the commit's parents,
	// in order, first-parent first.
	Parents []Hash

	// Boundary reports whether this entry is a boundary commit:
	// one excluded by a limit, but adjacent to the walked range.
	// Only set when [RevListRequest.Boundary] is true.
	Boundary bool
}

// RevListRequest configures a [Repository.RevList] call.
type RevListRequest struct {
	// Head is the commit-ish to start the walk from.
	Head string // required

	// Limits excludes commits reachable from these commit-ish values,
	// equivalent to "^limit" revision arguments.
	Limits []string

	// Boundary includes the boundary commits adjacent to Limits,
	// marked with [RevListEntry.Boundary].
	Boundary bool

	// FirstParent restricts the walk to each commit's first parent.
	FirstParent bool
}

// RevList lists the commits reachable from Head but not from any Limit,
// in reverse chronological order, along with each commit's parents.
//
// This wraps 'git rev-list --parents [--boundary] <head> <limits...>'.
func (r *Repository) RevList(ctx context.Context, req RevListRequest) iter.Seq2[RevListEntry, error] {
	return func(yield func(RevListEntry, error) bool) {
		args := []string{"rev-list", "--parents"}
		if req.Boundary {
			args = append(args, "--boundary")
		}
		if req.FirstParent {
			args = append(args, "--first-parent")
		}
		args = append(args, req.Head)
		for _, limit := range req.Limits {
			args = append(args, "^"+limit)
		}

		cmd := r.gitCmd(ctx, args...)
		for line, err := range cmd.Scan(r.exec, bufio.ScanLines) {
			if err != nil {
				yield(RevListEntry{}, fmt.Errorf("rev-list: %w", err))
				return
			}
			if len(line) == 0 {
				continue
			}

			entry, parseErr := parseRevListLine(string(line))
			if parseErr != nil {
				yield(RevListEntry{}, fmt.Errorf("parse rev-list output: %w", parseErr))
				return
			}

			if !yield(entry, nil) {
				_ = cmd.Kill(r.exec)
				return
			}
		}
	}
}

func parseRevListLine(line string) (RevListEntry, error) {
	var entry RevListEntry
	if strings.HasPrefix(line, "-") {
		entry.Boundary = true
		line = line[1:]
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return entry, fmt.Errorf("empty rev-list line")
	}

	entry.Hash = Hash(fields[0])
	for _, f := range fields[1:] {
		entry.Parents = append(entry.Parents, Hash(f))
	}
	return entry, nil
}
