package core

import "context"

// Reranker selects the reranking strategy of a graph search.
type Reranker string

const (
	// RerankerCrossEncoder favors precision; used for facts.
	RerankerCrossEncoder Reranker = "cross_encoder"
	// RerankerRRF (reciprocal rank fusion) favors diversity; used for entities.
	RerankerRRF Reranker = "rrf"
)

// MemoryWriter is the ingestion side of a memory backend.
type MemoryWriter interface {
	// Reset deletes every memory stored under identity. It must succeed when
	// nothing is stored.
	Reset(ctx context.Context, identity string) error
	// Add submits an ordered batch of messages. Metadata carries at least
	// the "timestamp" of the source segment.
	Add(ctx context.Context, identity string, messages []Message, metadata map[string]any) error
}

// SearchOptions scopes a ranked-memory search.
type SearchOptions struct {
	Limit   int
	Filters map[string]any
	// Graph additionally requests relations from backends that support it.
	Graph bool
}

// RankedMemoryBackend is a vector-similarity backend returning ranked
// memories, most relevant first.
type RankedMemoryBackend interface {
	MemoryWriter
	SearchMemories(ctx context.Context, identity, query string, opts SearchOptions) (*RankedResult, error)
}

// GraphQuery parameterizes one scoped graph search.
type GraphQuery struct {
	Limit    int
	Reranker Reranker
}

// GraphMemoryBackend is a knowledge-graph backend. Facts and entities are
// retrieved by two independent, independently reranked queries.
type GraphMemoryBackend interface {
	MemoryWriter
	SearchFacts(ctx context.Context, identity, query string, q GraphQuery) ([]Fact, error)
	SearchEntities(ctx context.Context, identity, query string, q GraphQuery) ([]Entity, error)
}
