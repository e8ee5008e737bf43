// linearize rewrites a non-linear commit history into a strictly
// linear chain of commits whose final tree matches the original.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"

	"github.com/alecthomas/kong"
	"github.com/posener/complete"
	"go.abhg.dev/linearize/internal/config"
	"go.abhg.dev/linearize/internal/komplete"
	"go.abhg.dev/linearize/internal/silog"
)

func main() {
	log := silog.New(os.Stderr, &silog.Options{Level: silog.LevelInfo})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	go func() {
		<-sigc
		log.Warn("interrupted, cleaning up; press Ctrl-C again to exit immediately")
		cancel()
		<-sigc
		os.Exit(1)
	}()

	// Everything after a bare "--" dispatches to a hidden pipeline
	// subcommand instead of the root linearize flow.
	args := os.Args[1:]
	var rootArgs, pipelineArgs []string
	if i := slices.Index(args, "--"); i >= 0 {
		rootArgs, pipelineArgs = args[:i], args[i+1:]
	} else {
		rootArgs = args
	}

	if len(pipelineArgs) > 0 {
		runPipeline(ctx, log, pipelineArgs)
		return
	}

	if len(rootArgs) > 0 {
		switch rootArgs[0] {
		case "version", "shell-completion":
			runExtra(rootArgs)
			return
		}
	}

	var cmd rootCmd
	parser, err := kong.New(
		&cmd,
		kong.Name("linearize"),
		kong.Description("linearize rewrites a non-linear commit history into a strictly linear chain."),
		kong.Bind(log),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.UsageOnError(),
		kong.Vars{
			"env_debug":       config.EnvDebug,
			"env_on_conflict": config.EnvOnConflict,
			"env_recursive":   config.EnvRecursive,
		},
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	komplete.Run(parser,
		komplete.WithPredictor("branches", complete.PredictFunc(predictBranches)),
		komplete.WithPredictor("refs", complete.PredictFunc(predictRefs)),
		komplete.WithPredictor("dirs", complete.PredictFunc(predictDirs)),
	)

	kctx, err := parser.Parse(rootArgs)
	parser.FatalIfErrorf(err)

	kctx.FatalIfErrorf(kctx.Run())
}

// runExtra parses and dispatches the "version" and "shell-completion"
// subcommands, kept on a kong grammar separate from rootCmd's (see
// extraCmd's doc comment in root.go).
func runExtra(args []string) {
	var cmd extraCmd
	parser, err := kong.New(
		&cmd,
		kong.Name("linearize"),
		kong.UsageOnError(),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	komplete.Run(parser)

	kctx, err := parser.Parse(args)
	parser.FatalIfErrorf(err)

	kctx.FatalIfErrorf(kctx.Run())
}
