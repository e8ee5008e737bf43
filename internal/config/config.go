// Package config holds the engine-wide configuration for the linearize
// command, layered from flags, environment variables, and defaults.
package config

import (
	"fmt"
	"strconv"
)

// ConflictMode selects how a conflicted cherry-pick or merge
// is compensated for in the linearized output.
type ConflictMode int

const (
	// ModeMerge folds the compensation for a conflict into the
	// replaying merge/cherry-pick commit itself.
	// This is the default.
	ModeMerge ConflictMode = iota

	// ModeSplit keeps the compensation as a separate commit
	// following the commit it compensates for.
	ModeSplit
)

// String returns the flag/environment spelling of the mode.
func (m ConflictMode) String() string {
	switch m {
	case ModeMerge:
		return "merge"
	case ModeSplit:
		return "split"
	default:
		return fmt.Sprintf("ConflictMode(%d)", int(m))
	}
}

// ParseConflictMode parses the flag/environment spelling of a [ConflictMode].
func ParseConflictMode(s string) (ConflictMode, error) {
	switch s {
	case "merge":
		return ModeMerge, nil
	case "split":
		return ModeSplit, nil
	default:
		return 0, fmt.Errorf("unknown conflict mode %q: want \"merge\" or \"split\"", s)
	}
}

// Config is the immutable configuration for a linearize run.
//
// It is built once, from flags, environment variables, and defaults,
// and passed by value into the engine. Nothing in the engine reads
// ambient state (environment variables, globals) directly.
type Config struct {
	// Debug enables verbose diagnostic logging.
	Debug bool

	// ConflictMode selects how conflict compensations are recorded.
	ConflictMode ConflictMode

	// Recursive enables recursive linearization of right-subgraphs.
	Recursive bool

	// UpdateHead, when true, hard-resets HEAD to the linearized tip
	// on success instead of merely printing it.
	UpdateHead bool
}

// Env names the environment variables that provide defaults
// for flags not explicitly set on the command line.
const (
	EnvDebug      = "DEBUG"
	EnvOnConflict = "ON_CONFLICT"
	EnvRecursive  = "RECURSIVE"
)

// Default returns the built-in default configuration,
// used when neither a flag nor an environment variable sets a value.
func Default() Config {
	return Config{
		Debug:        false,
		ConflictMode: ModeMerge,
		Recursive:    true,
		UpdateHead:   false,
	}
}

// ApplyEnv overlays environment-variable-sourced defaults onto cfg,
// for any field whose corresponding variable is present in env.
// Flags applied after this call take final precedence.
func ApplyEnv(cfg Config, lookup func(string) (string, bool)) (Config, error) {
	if v, ok := lookup(EnvDebug); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", EnvDebug, err)
		}
		cfg.Debug = b
	}

	if v, ok := lookup(EnvOnConflict); ok {
		mode, err := ParseConflictMode(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", EnvOnConflict, err)
		}
		cfg.ConflictMode = mode
	}

	if v, ok := lookup(EnvRecursive); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", EnvRecursive, err)
		}
		cfg.Recursive = b
	}

	return cfg, nil
}
