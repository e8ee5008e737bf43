package main

import (
	"fmt"
	"io"

	"github.com/alecthomas/kong"
)

var _version = "dev"

// versionFlag implements a "--version" flag that prints version
// information and exits, without requiring any other flag or
// argument to be valid.
type versionFlag bool

func (versionFlag) IsBool() bool { return true }

func (versionFlag) BeforeReset(app *kong.Kong) error {
	fmt.Fprintln(app.Stdout, "linearize", _version)
	app.Exit(0)
	return nil
}

type versionCmd struct {
	Stdout io.Writer `kong:"-"`
}

func (cmd *versionCmd) Run(kctx *kong.Context) error {
	out := cmd.Stdout
	if out == nil {
		out = kctx.Stdout
	}
	_, err := fmt.Fprintln(out, "linearize", _version)
	return err
}

func (cmd *versionCmd) Help() string {
	return "Print version information and exit."
}
