// Package answer implements the retrieval-augmented answering pipeline: for
// each evaluation question it searches the memory of both speakers, renders
// the retrieved context into a prompt, asks the model for an answer and
// records the result together with its latencies.
package answer

import (
	"context"
	"fmt"
	"text/template"
	"time"

	"github.com/hupe1980/memorybench/assembler"
	"github.com/hupe1980/memorybench/core"
	"github.com/hupe1980/memorybench/dataset"
	"github.com/hupe1980/memorybench/identity"
	"github.com/hupe1980/memorybench/internal/util"
	"github.com/hupe1980/memorybench/logging"
	"github.com/hupe1980/memorybench/model"
	"github.com/hupe1980/memorybench/parallel"
	"github.com/hupe1980/memorybench/results"
	"github.com/hupe1980/memorybench/retry"
)

// DefaultWorkers answers the questions of a conversation sequentially.
const DefaultWorkers = 1

// Options configures a Pipeline.
type Options struct {
	Retry retry.Policy
	// Category, when set, restricts answering to items of that category.
	Category *int
	Workers  int
	Logger   logging.Logger
	// Template overrides the prompt chosen from the retriever mode.
	Template string
}

// Pipeline answers evaluation items.
type Pipeline struct {
	retriever Retriever
	model     model.Model
	assembler *assembler.Assembler
	prompt    *template.Template
	opts      Options
	logger    logging.Logger
}

// New creates a pipeline. It fails when a custom template does not parse.
func New(retriever Retriever, m model.Model, optFns ...func(o *Options)) (*Pipeline, error) {
	opts := Options{
		Retry:   retry.DefaultPolicy(),
		Workers: DefaultWorkers,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	logger := logging.OrNoOp(opts.Logger)
	if opts.Retry.Logger == nil {
		opts.Retry.Logger = logger
	}

	text := opts.Template
	if text == "" {
		text = DefaultPrompt
		if retriever.Mode() == assembler.ModeGraph {
			text = GraphPrompt
		}
	}
	prompt, err := util.ParseTemplate("answer", text)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template: %w", err)
	}

	return &Pipeline{
		retriever: retriever,
		model:     m,
		assembler: assembler.New(retriever.Mode()),
		prompt:    prompt,
		opts:      opts,
		logger:    logger,
	}, nil
}

// Answer searches both identities concurrently, renders the prompt and asks
// the model once at temperature zero.
func (p *Pipeline) Answer(ctx context.Context, item core.EvaluationItem, identityA, identityB string) (*core.ResultRecord, error) {
	var s1, s2 core.SpeakerOutcome
	err := parallel.Pair(ctx,
		func(ctx context.Context) (err error) {
			s1, err = p.search(ctx, identityA, item.Question)
			return err
		},
		func(ctx context.Context) (err error) {
			s2, err = p.search(ctx, identityB, item.Question)
			return err
		},
	)
	if err != nil {
		return nil, err
	}

	prompt, err := p.render(item.Question, identityA, identityB, s1.Retrieval, s2.Retrieval)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := retry.Do(ctx, p.opts.Retry.Named("generate answer"), func(ctx context.Context) (*model.Response, error) {
		return p.model.Generate(ctx, model.Request{Instructions: prompt, Temperature: 0})
	})
	took := time.Since(start)
	if err != nil {
		return nil, err
	}
	info := p.model.Info()
	tokens := 0
	if resp.Usage != nil {
		tokens = resp.Usage.TotalTokens
	}
	p.logger.Debug("answer generated", "model", info.Name, "provider", info.Provider, "tokens", tokens, "duration_ms", took.Milliseconds())

	return core.NewResultRecord(item, resp.Text, s1, s2, took), nil
}

// search times the whole retried search, delays included.
func (p *Pipeline) search(ctx context.Context, id, query string) (core.SpeakerOutcome, error) {
	start := time.Now()
	r, err := retry.Do(ctx, p.opts.Retry.Named("search "+id), func(ctx context.Context) (core.Retrieval, error) {
		return p.retriever.Search(ctx, id, query)
	})
	took := time.Since(start)
	if err != nil {
		return core.SpeakerOutcome{}, err
	}
	p.logger.Debug("memory searched", "identity", id, "memories", len(r.Memories), "facts", len(r.Facts), "entities", len(r.Entities), "duration_ms", took.Milliseconds())
	return core.SpeakerOutcome{Retrieval: r, Took: took}, nil
}

// render returns the prompt for question given both retrievals.
func (p *Pipeline) render(question, identityA, identityB string, a, b core.Retrieval) (string, error) {
	data := PromptData{
		Question:     question,
		SpeakerA:     identity.DisplayName(identityA),
		SpeakerB:     identity.DisplayName(identityB),
		ContextA:     p.assembler.Assemble(a),
		ContextB:     p.assembler.Assemble(b),
		HasRelations: a.Relations != nil || b.Relations != nil,
	}
	if data.HasRelations {
		data.RelationsA = assembler.FormatRelations(a.Relations)
		data.RelationsB = assembler.FormatRelations(b.Relations)
	}
	out, err := util.Execute(p.prompt, data)
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return out, nil
}

// Process answers item unless the category filter excludes it, in which
// case it reports false without side effects. Answered items are appended
// to the store, which flushes before Process returns.
func (p *Pipeline) Process(ctx context.Context, store *results.Store, index int, item core.EvaluationItem, identityA, identityB string) (bool, error) {
	if !item.MatchesCategory(p.opts.Category) {
		return false, nil
	}
	rec, err := p.Answer(ctx, item, identityA, identityB)
	if err != nil {
		return false, fmt.Errorf("conversation %d question %q: %w", index, item.Question, err)
	}
	if err := store.Append(ctx, index, rec); err != nil {
		return false, err
	}
	return true, nil
}

// Run answers every question of every sample. Conversations are processed
// in order, the questions of one conversation with up to Workers at a time.
// Malformed samples and questions already recorded in store are skipped.
// Failures are logged and the first one is returned after the final flush.
func (p *Pipeline) Run(ctx context.Context, samples []dataset.Sample, store *results.Store) error {
	if len(samples) == 0 {
		return core.ErrMissingDataset
	}

	var firstErr error
	for _, s := range samples {
		if s.Err != nil {
			p.logger.Error("skipping malformed conversation", "conversation", s.Index, "error", s.Err.Error())
			if firstErr == nil {
				firstErr = s.Err
			}
			continue
		}
		idA, idB := identity.Pair(s.Conversation, s.Index)
		pending := p.pending(store, s)
		p.logger.Info("answering conversation", "conversation", s.Index, "questions", len(s.QA), "pending", len(pending))

		err := parallel.Run(ctx, pending, p.opts.Workers, func(ctx context.Context, _ int, item core.EvaluationItem) error {
			if _, err := p.Process(ctx, store, s.Index, item, idA, idB); err != nil {
				p.logger.Error("question failed", "conversation", s.Index, "question", item.Question, "error", err.Error())
				return err
			}
			return nil
		})
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if err := store.Flush(ctx); err != nil {
		p.logger.Error("final flush failed", "error", err.Error())
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// pending drops as many occurrences of each question as the store already
// holds for the conversation.
func (p *Pipeline) pending(store *results.Store, s dataset.Sample) []core.EvaluationItem {
	done := make(map[string]int)
	for _, r := range store.Records(s.Index) {
		done[r.Question]++
	}
	out := make([]core.EvaluationItem, 0, len(s.QA))
	for _, item := range s.QA {
		if done[item.Question] > 0 {
			done[item.Question]--
			continue
		}
		out = append(out, item)
	}
	return out
}
