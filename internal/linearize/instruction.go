// Package linearize implements the history-linearization engine:
// it turns a non-linear commit graph into a strictly linear chain of
// commits whose final tree matches the original graph's tip.
package linearize

import (
	"fmt"
	"strings"

	"go.abhg.dev/linearize/internal/git"
)

// Commit message prefixes used by compensation commits synthesized by
// the engine. Recursive runs scan for these prefixes to identify and
// drop redundant compensations (see [IsCompensation]).
const (
	PrefixOursTheirs           = "COMPENSATION: ours-theirs:"
	PrefixResolveMergeConflict = "COMPENSATION: resolve-merge-conflict:"
	PrefixFinalFixup           = "COMPENSATION: final-fixup:"
)

// IsCompensation reports whether a commit message was synthesized by
// this engine as a compensation commit of the given prefix.
func IsCompensation(prefix, message string) bool {
	return strings.HasPrefix(message, prefix)
}

// Token is a single step of a graph-walk path: a descent through
// either the first parent (Left) or the second parent (Right) of a
// merge commit.
type Token byte

// Supported tokens.
const (
	Left  Token = 'L'
	Right Token = 'R'
)

func (t Token) String() string { return string(rune(t)) }

// Path records the sequence of first-/second-parent descents taken to
// reach the current position in the walk, from the top of the
// traversal. Build uses it to decide whether a position is inside a
// right-subtree, which triggers recursive linearization.
type Path string

// Push returns the path with tok appended.
func (p Path) Push(tok Token) Path {
	return p + Path(tok)
}

// IsRightSuffix reports whether the path's last token is Right,
// meaning the position it describes lies in a merge's right subtree.
func (p Path) IsRightSuffix() bool {
	return len(p) > 0 && p[len(p)-1] == byte(Right)
}

// LastToken returns the final token of the path, or 0 if the path is empty.
func (p Path) LastToken() Token {
	if len(p) == 0 {
		return 0
	}
	return Token(p[len(p)-1])
}

func (p Path) String() string { return string(p) }

// Kind identifies the variant of an [Instruction].
type Kind int

// Supported instruction kinds.
const (
	// KindBase is the starting commit(s) of a subgraph being built.
	// After reversal, the only instruction that can precede the first
	// base is the push of the outermost merge, whose empty path makes
	// it a no-op.
	KindBase Kind = iota

	// KindCompensate rebases (Base, Tip] onto the current HEAD,
	// synthesizing compensation commits where replay conflicts.
	KindCompensate

	// KindResolveMergeConflict reproduces a merge whose recorded
	// resolution differs from the default three-way strategy.
	KindResolveMergeConflict

	// KindPush enters the right-subtree of a merge.
	KindPush

	// KindPop leaves the subgraph of a merge, asserting
	// tree-equivalence with it.
	KindPop

	// KindEnd finalizes the build, emitting a compensation if the
	// linear tip's tree differs from the input head's tree.
	KindEnd
)

func (k Kind) String() string {
	switch k {
	case KindBase:
		return "base"
	case KindCompensate:
		return "compensate"
	case KindResolveMergeConflict:
		return "resolve-merge-conflict"
	case KindPush:
		return "push"
	case KindPop:
		return "pop"
	case KindEnd:
		return "end"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Instruction is a single tagged step of the plan produced by the DAG
// walker and consumed by the instruction executor.
//
// Not every field is populated for every Kind; see the comments on
// each Kind's constructor below.
type Instruction struct {
	Kind Kind

	// Bases holds the starting commit(s) for KindBase, or the
	// exclusion set bounding the replay range for KindCompensate
	// (usually one commit, but a walk past multiple independent
	// boundary commits needs one exclusion per boundary).
	Bases []git.Hash

	// Tip is the upper end of the (Bases, Tip] range to replay for
	// KindCompensate.
	Tip git.Hash

	// Merge is the merge commit associated with
	// KindResolveMergeConflict, KindPush, and KindPop.
	Merge git.Hash

	// Path is the walk path associated with KindPush and KindPop.
	Path Path

	// Head is the original input head, used by KindEnd to compute
	// the final tree-identity check.
	Head git.Hash
}

// BaseInstr returns a "base b1 b2 ..." instruction.
func BaseInstr(bases ...git.Hash) Instruction {
	return Instruction{Kind: KindBase, Bases: bases}
}

// CompensateInstr returns a "compensate bases... tip" instruction.
func CompensateInstr(tip git.Hash, bases ...git.Hash) Instruction {
	return Instruction{Kind: KindCompensate, Bases: bases, Tip: tip}
}

// ResolveMergeConflictInstr returns a "resolve-merge-conflict merge" instruction.
func ResolveMergeConflictInstr(merge git.Hash) Instruction {
	return Instruction{Kind: KindResolveMergeConflict, Merge: merge}
}

// PushInstr returns a "push merge path" instruction.
func PushInstr(merge git.Hash, path Path) Instruction {
	return Instruction{Kind: KindPush, Merge: merge, Path: path}
}

// PopInstr returns a "pop merge path" instruction.
func PopInstr(merge git.Hash, path Path) Instruction {
	return Instruction{Kind: KindPop, Merge: merge, Path: path}
}

// EndInstr returns the terminal "end" instruction.
func EndInstr(head git.Hash) Instruction {
	return Instruction{Kind: KindEnd, Head: head}
}

func (i Instruction) String() string {
	switch i.Kind {
	case KindBase:
		hashes := make([]string, len(i.Bases))
		for idx, h := range i.Bases {
			hashes[idx] = h.Short()
		}
		return "base " + strings.Join(hashes, " ")
	case KindCompensate:
		hashes := make([]string, len(i.Bases))
		for idx, h := range i.Bases {
			hashes[idx] = h.Short()
		}
		return fmt.Sprintf("compensate %s %s", strings.Join(hashes, ","), i.Tip.Short())
	case KindResolveMergeConflict:
		return "resolve-merge-conflict " + i.Merge.Short()
	case KindPush:
		return fmt.Sprintf("push %s %s", i.Merge.Short(), i.Path)
	case KindPop:
		return fmt.Sprintf("pop %s %s", i.Merge.Short(), i.Path)
	case KindEnd:
		return "end"
	default:
		return i.Kind.String()
	}
}

// Program is an ordered sequence of instructions.
//
// The DAG walker appends to a Program in reverse-chronological emission
// order; [Program.Reverse] produces the order the instruction executor
// expects to consume.
type Program []Instruction

// Reverse returns a new Program with the instructions in reverse order.
func (p Program) Reverse() Program {
	rev := make(Program, len(p))
	for i, instr := range p {
		rev[len(p)-1-i] = instr
	}
	return rev
}
