package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hupe1980/memorybench/answer"
	"github.com/hupe1980/memorybench/config"
	"github.com/hupe1980/memorybench/dataset"
	"github.com/hupe1980/memorybench/ingest"
	"github.com/hupe1980/memorybench/logging"
	"github.com/hupe1980/memorybench/model"
	"github.com/hupe1980/memorybench/results"
	"github.com/hupe1980/memorybench/stats"
)

var errRunIDRequired = errors.New("zep search needs the -run-id of the add run")

// session is the wiring shared by the benchmark commands.
type session struct {
	cfg     *config.Config
	logger  *logging.BenchLogger
	backend *backend
	samples []dataset.Sample
}

func newSession(cfg *config.Config, stderr io.Writer) (*session, error) {
	logger, err := newLogger(cfg, stderr)
	if err != nil {
		return nil, err
	}
	b, err := newBackend(cfg, logger.WithComponent(cfg.Backend))
	if err != nil {
		return nil, err
	}
	samples, err := dataset.Load(cfg.Dataset)
	if err != nil {
		return nil, err
	}
	samples = dataset.Limit(samples, cfg.MaxConversations)
	logger.Info("loaded dataset", "path", cfg.Dataset, "conversations", len(samples), "backend", cfg.Backend)
	return &session{cfg: cfg, logger: logger, backend: b, samples: samples}, nil
}

func (s *session) add(ctx context.Context) error {
	if s.backend.prepare != nil {
		if err := s.backend.prepare(ctx); err != nil {
			return err
		}
	}
	logger := s.logger.WithComponent("ingest")
	p := ingest.New(s.backend.writer, func(o *ingest.Options) {
		o.BatchSize = s.cfg.BatchSize
		o.Workers = s.cfg.IngestWorkers
		o.Retry = retryPolicy(s.cfg, logger)
		o.Logger = logger
	})
	done := s.logger.StartTimer("ingest")
	if err := p.IngestAll(ctx, s.samples); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	done()
	return nil
}

func (s *session) search(ctx context.Context) error {
	logger := s.logger.WithComponent("answer")
	p, err := answer.New(s.backend.retriever, model.NewLimited(newModel(s.cfg), s.cfg.Model.MaxCalls), func(o *answer.Options) {
		o.Category = s.cfg.Category
		o.Workers = s.cfg.AnswerWorkers
		o.Retry = retryPolicy(s.cfg, logger)
		o.Logger = logger
	})
	if err != nil {
		return err
	}
	sink, err := newSink(ctx, s.cfg)
	if err != nil {
		return err
	}
	store := results.NewStore(sink)
	if s.cfg.Resume {
		if store, err = results.Open(ctx, sink); err != nil {
			return err
		}
		s.logger.Info("resuming result document", "records", store.Len())
	}
	done := s.logger.StartTimer("search")
	if err := p.Run(ctx, s.samples, store); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	done()
	s.logger.Info("results written", "records", store.Len(), "output", s.output())
	return nil
}

func (s *session) output() string {
	if s.cfg.S3.Bucket != "" {
		return "s3://" + s.cfg.S3.Bucket + "/" + s.cfg.S3.Key
	}
	return s.cfg.OutputPath()
}

func runAdd(ctx context.Context, cfg *config.Config, stderr io.Writer) error {
	s, err := newSession(cfg, stderr)
	if err != nil {
		return err
	}
	if cfg.Backend == config.BackendInMemory {
		s.logger.Warn("in-memory backend does not outlive the process; use run to search it")
	}
	if cfg.Backend == config.BackendZep {
		s.logger.Info("pass this run id to search", "run_id", cfg.RunID)
	}
	return s.add(ctx)
}

func runSearch(ctx context.Context, cfg *config.Config, stderr io.Writer) error {
	if cfg.Backend == config.BackendZep && cfg.RunID == "" {
		return errRunIDRequired
	}
	s, err := newSession(cfg, stderr)
	if err != nil {
		return err
	}
	return s.search(ctx)
}

func runAll(ctx context.Context, cfg *config.Config, stderr io.Writer) error {
	s, err := newSession(cfg, stderr)
	if err != nil {
		return err
	}
	if err := s.add(ctx); err != nil {
		return err
	}
	return s.search(ctx)
}

func runVerify(cfg *config.Config, stdout io.Writer) error {
	missing := 0
	fmt.Fprintf(stdout, "backend %s, model provider %s\n", cfg.Backend, cfg.Model.Provider)
	for _, k := range cfg.CheckKeys() {
		switch k.State {
		case config.KeySet:
			fmt.Fprintf(stdout, "  %-22s ok (%s)\n", k.Name, k.Masked)
		default:
			missing++
			fmt.Fprintf(stdout, "  %-22s %s\n", k.Name, k.State)
		}
	}
	if _, err := os.Stat(cfg.Dataset); err != nil {
		missing++
		fmt.Fprintf(stdout, "  dataset %s not found\n", cfg.Dataset)
	}
	if missing > 0 {
		return fmt.Errorf("%d setting(s) need attention", missing)
	}
	fmt.Fprintln(stdout, "setup OK")
	return nil
}

func runStats(opts *statsFlags, stdout io.Writer) error {
	f, err := os.Open(opts.input)
	if err != nil {
		return err
	}
	defer f.Close()

	doc, err := stats.Decode(f)
	if err != nil {
		return err
	}
	report := stats.Calculate(doc)
	if !opts.quiet {
		fmt.Fprintln(stdout, stats.FormatTable(report))
	}
	fmt.Fprint(stdout, stats.FormatSummary(report))

	if opts.jsonOut != "" {
		data, err := json.MarshalIndent(report, "", "    ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.jsonOut, data, 0o644); err != nil {
			return fmt.Errorf("write statistics: %w", err)
		}
		fmt.Fprintf(stdout, "Statistics saved to: %s\n", opts.jsonOut)
	}
	return nil
}
