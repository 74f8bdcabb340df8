package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/five82/layerscope/internal/app"
	"github.com/five82/layerscope/internal/report"
)

const usage = `layerscope inspects container image layers.

Usage:
  layerscope [flags]                          interactive browser
  layerscope images [flags]                   list images
  layerscope diff [flags] LAYER1 LAYER2       compare two layers of --image
  layerscope analyze [flags] DOCKERFILE       analyze a build file

Run "layerscope <command> --help" for command flags.
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd := ""
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "":
		err = runTUI(ctx, args, stderr)
	case "images":
		err = runImages(ctx, args, stdout, stderr)
	case "diff":
		err = runDiff(ctx, args, stdout, stderr)
	case "analyze":
		err = runAnalyze(args, stdout, stderr)
	case "help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "layerscope: unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, pflag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		return 2
	default:
		fmt.Fprintf(stderr, "layerscope: %v\n", err)
		return 1
	}
}

var errUsage = errors.New("usage")

// commonFlags registers the flags shared by every backend-facing command.
func commonFlags(fs *pflag.FlagSet, opts *app.Options) {
	fs.StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default ~/.config/layerscope/config.toml)")
	fs.StringVar(&opts.BackendAddr, "backend", "", "backend address, host:port or URL (overrides backend_addr)")
	fs.StringVar(&opts.LogLevel, "log-level", "", "debug, info, warn or error (overrides log_level)")
}

func newFlagSet(name string, stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SortFlags = false
	return fs
}

func runTUI(ctx context.Context, args []string, stderr io.Writer) error {
	var opts app.Options
	fs := newFlagSet("layerscope", stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage, "\nFlags:\n")
		fs.PrintDefaults()
	}
	commonFlags(fs, &opts)
	fs.StringVar(&opts.PrefsPath, "prefs", "", "preferences file (default ~/.config/layerscope/prefs.toml)")
	fs.StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	fs.DurationVar(&opts.PollEvery, "poll", 0, "image list refresh interval (overrides poll_interval)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "layerscope: unexpected argument %q\n", fs.Arg(0))
		return errUsage
	}
	return app.Run(ctx, opts)
}

func runImages(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var opts app.Options
	var format string
	fs := newFlagSet("layerscope images", stderr)
	commonFlags(fs, &opts)
	fs.StringVarP(&format, "format", "o", "text", "output format: text, json or yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}
	f, err := report.ParseFormat(format)
	if err != nil {
		return err
	}
	return app.Images(ctx, opts, f, stdout)
}

func runDiff(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var opts app.Options
	var diff app.DiffOptions
	var format string
	fs := newFlagSet("layerscope diff", stderr)
	commonFlags(fs, &opts)
	fs.StringVarP(&diff.ImageID, "image", "i", "", "image identifier (required)")
	fs.StringVarP(&format, "format", "o", "text", "output format: text, json or yaml")
	fs.BoolVar(&diff.IncludeUnchanged, "unchanged", false, "also list unchanged paths")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if diff.ImageID == "" || fs.NArg() != 2 {
		fmt.Fprintln(stderr, "usage: layerscope diff --image ID LAYER1 LAYER2")
		return errUsage
	}
	f, err := report.ParseFormat(format)
	if err != nil {
		return err
	}
	diff.Format = f
	diff.Layer1, diff.Layer2 = fs.Arg(0), fs.Arg(1)
	return app.Diff(ctx, opts, diff, stdout)
}

func runAnalyze(args []string, stdout, stderr io.Writer) error {
	var format string
	fs := newFlagSet("layerscope analyze", stderr)
	fs.StringVarP(&format, "format", "o", "text", "output format: text, json or yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: layerscope analyze [--format F] DOCKERFILE")
		return errUsage
	}
	f, err := report.ParseFormat(format)
	if err != nil {
		return err
	}
	return app.Analyze(fs.Arg(0), f, stdout)
}
