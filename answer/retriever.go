package answer

import (
	"context"

	"github.com/hupe1980/memorybench/assembler"
	"github.com/hupe1980/memorybench/core"
)

// Retriever searches the memory of one identity. Implementations adapt a
// backend variant to the answering pipeline.
type Retriever interface {
	Search(ctx context.Context, identity, query string) (core.Retrieval, error)
	// Mode selects how the retrieval is rendered into the prompt.
	Mode() assembler.Mode
}

// RankedOptions configure a RankedRetriever.
type RankedOptions struct {
	TopK    int
	Filters map[string]any
	// Graph requests relations in addition to ranked memories.
	Graph bool
}

// RankedRetriever queries a vector-similarity backend.
type RankedRetriever struct {
	backend core.RankedMemoryBackend
	opts    RankedOptions
}

var _ Retriever = (*RankedRetriever)(nil)

// DefaultTopK is the number of ranked memories requested per identity.
const DefaultTopK = 10

// NewRankedRetriever creates a retriever over backend.
func NewRankedRetriever(backend core.RankedMemoryBackend, opts RankedOptions) *RankedRetriever {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	return &RankedRetriever{backend: backend, opts: opts}
}

// Search implements Retriever.
func (r *RankedRetriever) Search(ctx context.Context, identity, query string) (core.Retrieval, error) {
	res, err := r.backend.SearchMemories(ctx, identity, query, core.SearchOptions{
		Limit:   r.opts.TopK,
		Filters: r.opts.Filters,
		Graph:   r.opts.Graph,
	})
	if err != nil {
		return core.Retrieval{}, err
	}
	if res == nil {
		return core.Retrieval{}, nil
	}
	return core.Retrieval{Memories: res.Memories, Relations: res.Relations}, nil
}

// Mode implements Retriever.
func (r *RankedRetriever) Mode() assembler.Mode { return assembler.ModeRanked }

// GraphOptions configure a GraphRetriever.
type GraphOptions struct {
	FactLimit   int
	EntityLimit int
}

// Default limits of the two graph queries.
const (
	DefaultFactLimit   = 20
	DefaultEntityLimit = 20
)

// GraphRetriever queries a knowledge-graph backend with one reranked query
// for facts and one for entities.
type GraphRetriever struct {
	backend core.GraphMemoryBackend
	opts    GraphOptions
}

var _ Retriever = (*GraphRetriever)(nil)

// NewGraphRetriever creates a retriever over backend.
func NewGraphRetriever(backend core.GraphMemoryBackend, opts GraphOptions) *GraphRetriever {
	if opts.FactLimit <= 0 {
		opts.FactLimit = DefaultFactLimit
	}
	if opts.EntityLimit <= 0 {
		opts.EntityLimit = DefaultEntityLimit
	}
	return &GraphRetriever{backend: backend, opts: opts}
}

// Search implements Retriever. Facts use the cross-encoder reranker and
// entities reciprocal rank fusion.
func (r *GraphRetriever) Search(ctx context.Context, identity, query string) (core.Retrieval, error) {
	facts, err := r.backend.SearchFacts(ctx, identity, query, core.GraphQuery{Limit: r.opts.FactLimit, Reranker: core.RerankerCrossEncoder})
	if err != nil {
		return core.Retrieval{}, err
	}
	entities, err := r.backend.SearchEntities(ctx, identity, query, core.GraphQuery{Limit: r.opts.EntityLimit, Reranker: core.RerankerRRF})
	if err != nil {
		return core.Retrieval{}, err
	}
	return core.Retrieval{Facts: facts, Entities: entities}, nil
}

// Mode implements Retriever.
func (r *GraphRetriever) Mode() assembler.Mode { return assembler.ModeGraph }
