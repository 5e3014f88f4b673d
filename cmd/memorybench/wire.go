package main

import (
	"context"
	"fmt"
	"io"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"

	"github.com/hupe1980/memorybench/answer"
	"github.com/hupe1980/memorybench/config"
	"github.com/hupe1980/memorybench/core"
	"github.com/hupe1980/memorybench/logging"
	"github.com/hupe1980/memorybench/memory"
	"github.com/hupe1980/memorybench/memory/mem0"
	"github.com/hupe1980/memorybench/memory/zep"
	"github.com/hupe1980/memorybench/model"
	"github.com/hupe1980/memorybench/model/anthropic"
	"github.com/hupe1980/memorybench/model/openai"
	"github.com/hupe1980/memorybench/results"
	"github.com/hupe1980/memorybench/results/s3"
	"github.com/hupe1980/memorybench/retry"
)

func newLogger(cfg *config.Config, out io.Writer) (*logging.BenchLogger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	return logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    cfg.Log.Format,
		Output:    out,
		Component: "memorybench",
		RunID:     cfg.RunID,
	}), nil
}

func retryPolicy(cfg *config.Config, logger logging.Logger) retry.Policy {
	return retry.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Delay:       cfg.Retry.Delay,
		Logger:      logger,
	}
}

func newModel(cfg *config.Config) model.Model {
	mc := cfg.Model
	switch mc.Provider {
	case config.ProviderAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			if mc.Name != "" {
				o.Model = sdkanthropic.Model(mc.Name)
			}
			if mc.MaxTokens > 0 {
				o.MaxTokens = mc.MaxTokens
			}
			o.APIKey = mc.APIKey
			o.BaseURL = mc.BaseURL
		})
	case config.ProviderMock:
		name := mc.Name
		if name == "" {
			name = "mock"
		}
		return model.NewMockModel(name)
	default:
		return openai.NewModel(func(o *openai.Options) {
			if mc.Name != "" {
				o.Model = mc.Name
			}
			if mc.MaxTokens > 0 {
				o.MaxCompletionTokens = mc.MaxTokens
			}
			o.APIKey = mc.APIKey
			o.BaseURL = mc.BaseURL
		})
	}
}

func newSink(ctx context.Context, cfg *config.Config) (results.Sink, error) {
	if cfg.S3.Bucket == "" {
		return results.NewFileSink(cfg.OutputPath()), nil
	}
	return s3.NewSink(ctx, s3Options(cfg.S3))
}

func s3Options(c config.S3Config) func(o *s3.Options) {
	return func(o *s3.Options) {
		o.Bucket = c.Bucket
		o.Key = c.Key
		o.Region = c.Region
		o.Endpoint = c.Endpoint
		o.UsePathStyle = c.UsePathStyle
		o.AccessKeyID = c.AccessKeyID
		o.SecretAccessKey = c.SecretAccessKey
		o.SessionToken = c.SessionToken
	}
}

// backend bundles the two sides of one memory backend.
type backend struct {
	writer    core.MemoryWriter
	retriever answer.Retriever
	// prepare runs once before ingestion.
	prepare func(ctx context.Context) error
}

func newBackend(cfg *config.Config, logger logging.Logger) (*backend, error) {
	switch cfg.Backend {
	case config.BackendMem0:
		client, err := mem0.New(func(o *mem0.Options) {
			o.APIKey = cfg.Mem0.APIKey
			o.OrganizationID = cfg.Mem0.OrganizationID
			o.ProjectID = cfg.Mem0.ProjectID
			if cfg.Mem0.BaseURL != "" {
				o.BaseURL = cfg.Mem0.BaseURL
			}
			o.EnableGraph = cfg.Graph
			o.Logger = logger
		})
		if err != nil {
			return nil, err
		}
		b := &backend{
			writer: client,
			retriever: answer.NewRankedRetriever(client, answer.RankedOptions{
				TopK:    cfg.TopK,
				Filters: cfg.Filters,
				Graph:   cfg.Graph,
			}),
		}
		if !cfg.Mem0.SkipInstructions {
			b.prepare = func(ctx context.Context) error {
				logger.Info("updating project instructions")
				return retry.Run(ctx, retryPolicy(cfg, logger).Named("mem0 update_project"), func(ctx context.Context) error {
					return client.UpdateProject(ctx, mem0.CustomInstructions)
				})
			}
		}
		return b, nil
	case config.BackendZep:
		client, err := zep.New(func(o *zep.Options) {
			o.APIKey = cfg.Zep.APIKey
			if cfg.Zep.BaseURL != "" {
				o.BaseURL = cfg.Zep.BaseURL
			}
			o.UserPrefix = "run_id_" + cfg.RunID + "_"
			o.Logger = logger
		})
		if err != nil {
			return nil, err
		}
		return &backend{
			writer:    client,
			retriever: answer.NewGraphRetriever(client, answer.GraphOptions{}),
		}, nil
	case config.BackendInMemory:
		store := memory.NewInMemoryStore()
		return &backend{
			writer: store,
			retriever: answer.NewRankedRetriever(store, answer.RankedOptions{
				TopK:    cfg.TopK,
				Filters: cfg.Filters,
				Graph:   cfg.Graph,
			}),
		}, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
