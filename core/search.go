package core

import "math"

const (
	// FactUnknownStart is rendered when a fact has no known start of validity.
	FactUnknownStart = "date unknown"
	// FactOpenEnd is rendered when a fact is still valid.
	FactOpenEnd = "present"
)

// MemoryRecord is a ranked memory snippet returned by vector-style backends.
type MemoryRecord struct {
	Memory    string  `json:"memory"`
	Timestamp string  `json:"timestamp"`
	Score     float64 `json:"score"`
}

// NewMemoryRecord builds a record, rounding the score to two decimals the
// way scores are reported in result files.
func NewMemoryRecord(memory, timestamp string, score float64) MemoryRecord {
	return MemoryRecord{Memory: memory, Timestamp: timestamp, Score: math.Round(score*100) / 100}
}

// Relation is a source-relationship-target triple from a graph-enabled
// ranked backend.
type Relation struct {
	Source       string `json:"source"`
	Relationship string `json:"relationship"`
	Target       string `json:"target"`
}

// Fact is a relational statement with a temporal validity interval. The
// interval endpoints are never empty; see NewFact.
type Fact struct {
	Statement string `json:"fact"`
	ValidFrom string `json:"valid_from"`
	ValidTo   string `json:"valid_to"`
}

// NewFact builds a fact substituting sentinels for absent endpoints.
func NewFact(statement, validFrom, validTo string) Fact {
	if validFrom == "" {
		validFrom = FactUnknownStart
	}
	if validTo == "" {
		validTo = FactOpenEnd
	}
	return Fact{Statement: statement, ValidFrom: validFrom, ValidTo: validTo}
}

// Entity is a named concept with a summary from a knowledge graph.
type Entity struct {
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

// RankedResult is the outcome of a ranked-memory search. Relations is nil
// unless the backend was queried in graph mode.
type RankedResult struct {
	Memories  []MemoryRecord
	Relations []Relation
}

// Retrieval is everything retrieved for one identity and one question. Only
// the fields of the active backend variant are populated.
type Retrieval struct {
	Memories  []MemoryRecord
	Relations []Relation
	Facts     []Fact
	Entities  []Entity
}
