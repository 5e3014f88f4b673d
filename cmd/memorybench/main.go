// Command memorybench ingests LoCoMo conversations into a memory backend,
// answers the held-out questions from retrieved memories and aggregates
// scored results.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

var errUsage = errors.New("usage")

func usage(w io.Writer) {
	fmt.Fprintf(w, "memorybench - long-term memory benchmark on LoCoMo\n\n")
	fmt.Fprintf(w, "Usage: memorybench <command> [options]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	fmt.Fprintf(w, "  add     reset and ingest every conversation into the backend\n")
	fmt.Fprintf(w, "  search  answer the questions and write the result document\n")
	fmt.Fprintf(w, "  run     add followed by search in one process\n")
	fmt.Fprintf(w, "  stats   aggregate a scored result document\n")
	fmt.Fprintf(w, "  verify  check the credentials the configuration needs\n\n")
	fmt.Fprintf(w, "Examples:\n")
	fmt.Fprintf(w, "  memorybench add -config bench.yaml -backend mem0\n")
	fmt.Fprintf(w, "  memorybench search -backend zep -run-id 42 -output results/zep.json\n")
	fmt.Fprintf(w, "  memorybench stats -input results/mem0_scored.json -json stats.json\n\n")
	fmt.Fprintf(w, "Run 'memorybench <command> -h' for the options of a command.\n")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		if err != errUsage {
			fmt.Fprintf(os.Stderr, "memorybench: %v\n", err)
		}
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "memorybench: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		usage(stderr)
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "add", "search", "run", "verify":
		opts, err := parseBenchFlags(cmd, rest, stderr)
		if err != nil {
			return err
		}
		cfg, err := opts.load()
		if err != nil {
			return err
		}
		switch cmd {
		case "add":
			return runAdd(ctx, cfg, stderr)
		case "search":
			return runSearch(ctx, cfg, stderr)
		case "run":
			return runAll(ctx, cfg, stderr)
		default:
			return runVerify(cfg, stdout)
		}
	case "stats":
		opts, err := parseStatsFlags(rest, stderr)
		if err != nil {
			return err
		}
		return runStats(opts, stdout)
	case "help", "-h", "--help":
		usage(stdout)
		return nil
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", cmd)
		usage(stderr)
		return errUsage
	}
}
