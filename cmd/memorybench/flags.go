package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/hupe1980/memorybench/config"
)

// benchFlags holds the command line overrides of the configuration.
type benchFlags struct {
	fs         *flag.FlagSet
	configFile string

	dataset          string
	output           string
	backend          string
	graph            bool
	topK             int
	batchSize        int
	category         int
	ingestWorkers    int
	answerWorkers    int
	maxConversations int
	runID            string
	resume           bool
	provider         string
	modelName        string
	maxModelCalls    int
	logLevel         string
	logFormat        string
}

func parseBenchFlags(cmd string, args []string, stderr io.Writer) (*benchFlags, error) {
	f := &benchFlags{fs: flag.NewFlagSet(cmd, flag.ContinueOnError)}
	fs := f.fs
	fs.SetOutput(stderr)
	d := config.Default()

	fs.StringVar(&f.configFile, "config", "", "Path to configuration file (YAML)")
	fs.StringVar(&f.dataset, "dataset", d.Dataset, "LoCoMo dataset file")
	fs.StringVar(&f.output, "output", "", "Result document path (default derived from backend settings)")
	fs.StringVar(&f.backend, "backend", d.Backend, "Memory backend: mem0, zep or inmemory")
	fs.BoolVar(&f.graph, "graph", d.Graph, "Use graph memory (Mem0 relations)")
	fs.IntVar(&f.topK, "top-k", d.TopK, "Memories retrieved per speaker")
	fs.IntVar(&f.batchSize, "batch-size", d.BatchSize, "Messages per add call")
	fs.IntVar(&f.category, "category", 0, "Only answer questions of this category")
	fs.IntVar(&f.ingestWorkers, "ingest-workers", d.IngestWorkers, "Conversations ingested concurrently")
	fs.IntVar(&f.answerWorkers, "answer-workers", d.AnswerWorkers, "Questions answered concurrently per conversation")
	fs.IntVar(&f.maxConversations, "max-conversations", 0, "Limit the number of conversations (0 = all)")
	fs.BoolVar(&f.resume, "resume", d.Resume, "Continue the existing result document, skipping answered questions")
	fs.StringVar(&f.runID, "run-id", "", "Run id namespacing Zep users")
	fs.StringVar(&f.provider, "provider", d.Model.Provider, "Model provider: openai, anthropic or mock")
	fs.StringVar(&f.modelName, "model", "", "Model id (default from MODEL or the provider default)")
	fs.IntVar(&f.maxModelCalls, "max-model-calls", 0, "Stop answering after this many completions (0 = unlimited)")
	fs.StringVar(&f.logLevel, "log-level", d.Log.Level, "Log level: debug, info, warn or error")
	fs.StringVar(&f.logFormat, "log-format", d.Log.Format, "Log format: json or text")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, errUsage
		}
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected arguments %v", errUsage, fs.Args())
	}
	return f, nil
}

// load reads the configuration and applies the flags that were set
// explicitly, so file values survive unset flags.
func (f *benchFlags) load() (*config.Config, error) {
	cfg, err := config.Load(f.configFile, f.apply)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (f *benchFlags) apply(cfg *config.Config) {
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "dataset":
			cfg.Dataset = f.dataset
		case "output":
			cfg.Output = f.output
		case "backend":
			cfg.Backend = f.backend
		case "graph":
			cfg.Graph = f.graph
		case "top-k":
			cfg.TopK = f.topK
		case "batch-size":
			cfg.BatchSize = f.batchSize
		case "category":
			c := f.category
			cfg.Category = &c
		case "ingest-workers":
			cfg.IngestWorkers = f.ingestWorkers
		case "answer-workers":
			cfg.AnswerWorkers = f.answerWorkers
		case "max-conversations":
			cfg.MaxConversations = f.maxConversations
		case "resume":
			cfg.Resume = f.resume
		case "run-id":
			cfg.RunID = f.runID
		case "provider":
			cfg.Model.Provider = f.provider
		case "model":
			cfg.Model.Name = f.modelName
		case "max-model-calls":
			cfg.Model.MaxCalls = f.maxModelCalls
		case "log-level":
			cfg.Log.Level = f.logLevel
		case "log-format":
			cfg.Log.Format = f.logFormat
		}
	})
}

type statsFlags struct {
	input   string
	jsonOut string
	quiet   bool
}

func parseStatsFlags(args []string, stderr io.Writer) (*statsFlags, error) {
	f := &statsFlags{}
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.input, "input", "", "Scored result document (required)")
	fs.StringVar(&f.jsonOut, "json", "", "Also write the statistics as JSON to this file")
	fs.BoolVar(&f.quiet, "summary-only", false, "Print only the quick summary")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, errUsage
		}
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	if f.input == "" && fs.NArg() == 1 {
		f.input = fs.Arg(0)
	}
	if f.input == "" {
		fs.Usage()
		return nil, fmt.Errorf("%w: -input is required", errUsage)
	}
	return f, nil
}
