// Package ingest writes LoCoMo conversations into a memory backend, once per
// speaker perspective.
//
// For every conversation both identities are reset, then each segment is
// submitted in order as fixed-size batches carrying the segment timestamp.
// The two identities of a segment are written concurrently and joined before
// the next segment starts.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/hupe1980/memorybench/core"
	"github.com/hupe1980/memorybench/dataset"
	"github.com/hupe1980/memorybench/identity"
	"github.com/hupe1980/memorybench/logging"
	"github.com/hupe1980/memorybench/parallel"
	"github.com/hupe1980/memorybench/retry"
)

const (
	// DefaultBatchSize is the number of messages per Add call.
	DefaultBatchSize = 2
	// DefaultWorkers bounds the number of conversations ingested at once.
	DefaultWorkers = 10
)

// Options configures a Pipeline.
type Options struct {
	BatchSize int
	Retry     retry.Policy
	Workers   int
	Logger    logging.Logger
}

// Pipeline ingests conversations into a core.MemoryWriter.
type Pipeline struct {
	writer core.MemoryWriter
	opts   Options
	logger logging.Logger
}

// New creates a pipeline writing to writer.
func New(writer core.MemoryWriter, optFns ...func(o *Options)) *Pipeline {
	opts := Options{
		BatchSize: DefaultBatchSize,
		Retry:     retry.DefaultPolicy(),
		Workers:   DefaultWorkers,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	logger := logging.OrNoOp(opts.Logger)
	if opts.Retry.Logger == nil {
		opts.Retry.Logger = logger
	}
	return &Pipeline{writer: writer, opts: opts, logger: logger}
}

// Ingest resets and then writes both perspectives of conv. When one
// identity fails it is skipped for the remaining segments while the other
// continues; the errors of both identities are joined.
func (p *Pipeline) Ingest(ctx context.Context, conv core.Conversation, index int) error {
	views, err := identity.Perspectives(conv)
	if err != nil {
		return fmt.Errorf("conversation %d: %w", index, err)
	}
	idA, idB := identity.Pair(conv, index)

	errA, errB := p.reset(ctx, idA), p.reset(ctx, idB)
	var pairErr error

	for _, v := range views {
		if errA != nil && errB != nil {
			break
		}
		metadata := map[string]any{"timestamp": v.Timestamp}
		pairErr = errors.Join(pairErr, parallel.Pair(ctx,
			func(ctx context.Context) error {
				p.addIdentity(ctx, &errA, idA, v.Key, v.A, metadata)
				return nil
			},
			func(ctx context.Context) error {
				p.addIdentity(ctx, &errB, idB, v.Key, v.B, metadata)
				return nil
			},
		))
	}

	return errors.Join(errA, errB, pairErr)
}

// addIdentity adds one segment for id unless *errp already holds a failure.
// A panicking writer is recorded as that identity's failure.
func (p *Pipeline) addIdentity(ctx context.Context, errp *error, id, segment string, messages []core.Message, metadata map[string]any) {
	if *errp != nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			pe := &parallel.PanicError{Value: r, Stack: debug.Stack()}
			p.logger.Error("ingest batch panicked", "identity", id, "segment", segment, "error", pe.Error())
			*errp = fmt.Errorf("identity %s segment %s: %w", id, segment, pe)
		}
	}()
	*errp = p.addSegment(ctx, id, segment, messages, metadata)
}

func (p *Pipeline) reset(ctx context.Context, id string) error {
	err := retry.Run(ctx, p.opts.Retry.Named("reset "+id), func(ctx context.Context) error {
		return p.writer.Reset(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("identity %s: %w", id, err)
	}
	return nil
}

func (p *Pipeline) addSegment(ctx context.Context, id, segment string, messages []core.Message, metadata map[string]any) error {
	for start := 0; start < len(messages); start += p.opts.BatchSize {
		end := min(start+p.opts.BatchSize, len(messages))
		batch := messages[start:end]
		err := retry.Run(ctx, p.opts.Retry.Named("add "+id), func(ctx context.Context) error {
			return p.writer.Add(ctx, id, batch, metadata)
		})
		if err != nil {
			p.logger.Error("ingest batch failed", "identity", id, "segment", segment, "offset", start, "error", err.Error())
			return fmt.Errorf("identity %s segment %s: %w", id, segment, err)
		}
	}
	return nil
}

// IngestAll ingests every sample with at most Workers conversations in
// flight. All conversations run to completion; the first failure is
// returned. Malformed samples are skipped and reported.
func (p *Pipeline) IngestAll(ctx context.Context, samples []dataset.Sample) error {
	if len(samples) == 0 {
		return core.ErrMissingDataset
	}
	return parallel.Run(ctx, samples, p.opts.Workers, func(ctx context.Context, _ int, s dataset.Sample) error {
		if s.Err != nil {
			p.logger.Error("skipping malformed conversation", "conversation", s.Index, "error", s.Err.Error())
			return s.Err
		}
		p.logger.Info("ingesting conversation", "conversation", s.Index, "segments", len(s.Conversation.Segments), "turns", s.Conversation.TurnCount())
		if err := p.Ingest(ctx, s.Conversation, s.Index); err != nil {
			p.logger.Error("conversation ingestion failed", "conversation", s.Index, "error", err.Error())
			return err
		}
		p.logger.Info("conversation ingested", "conversation", s.Index)
		return nil
	})
}
