package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

const usage = `usage: forge <command> [flags]

commands:
  prepare    load, classify, filter, dedup and split curated records into a dataset
  evaluate   score a model against a domain benchmark
  classify   classify a prompt and print its task type
  serve      run the HTTP API
`

type command func(ctx context.Context, args []string) error

var commands = map[string]command{
	"prepare":  runPrepare,
	"evaluate": runEvaluate,
	"classify": runClassify,
	"serve":    runServe,
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	run, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[2:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "forge %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func newLogger(level string) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		parsed = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(parsed).With().Timestamp().Logger()
}

// commonFlags registers the flags shared by every sub-command.
func commonFlags(name string) *pflag.FlagSet {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("domains-dir", "", "directory with <domain>.json overrides")
	flags.String("database-url", "", "run-tracking database (sqlite path or postgres:// URL)")
	return flags
}
