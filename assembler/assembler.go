// Package assembler renders retrieved memories into the context block that
// is embedded in answer prompts. Output depends only on its input so that
// evaluation runs are reproducible.
package assembler

import (
	"fmt"
	"strings"

	"github.com/hupe1980/memorybench/core"
)

// Mode selects the rendering variant.
type Mode int

const (
	// ModeRanked renders ranked memory snippets.
	ModeRanked Mode = iota
	// ModeGraph renders knowledge graph facts and entities.
	ModeGraph
)

func (m Mode) String() string {
	switch m {
	case ModeRanked:
		return "ranked"
	case ModeGraph:
		return "graph"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

const rankedHeader = `# These are the most relevant memories, most relevant first
# format: TIMESTAMP: MEMORY

`

const graphTemplate = `
FACTS and ENTITIES represent relevant context to the current conversation.

# These are the most relevant facts and their valid date ranges
# format: FACT (Date range: from - to)

%s


# These are the most relevant entities
# ENTITY_NAME: entity summary

%s

`

// Assembler turns a core.Retrieval into prompt text.
type Assembler struct {
	mode Mode
}

// New returns an assembler for mode.
func New(mode Mode) *Assembler {
	return &Assembler{mode: mode}
}

// Mode returns the rendering variant.
func (a *Assembler) Mode() Mode { return a.mode }

// Assemble renders r. Fields that do not belong to the assembler's mode are
// ignored.
func (a *Assembler) Assemble(r core.Retrieval) string {
	if a.mode == ModeGraph {
		return fmt.Sprintf(graphTemplate, strings.Join(FactLines(r.Facts), "\n"), strings.Join(EntityLines(r.Entities), "\n"))
	}
	return rankedHeader + strings.Join(MemoryLines(r.Memories), "\n")
}

// MemoryLines renders each memory as "<timestamp>: <memory>", keeping the
// backend order. Scores are not rendered.
func MemoryLines(memories []core.MemoryRecord) []string {
	lines := make([]string, len(memories))
	for i, m := range memories {
		lines[i] = m.Timestamp + ": " + m.Memory
	}
	return lines
}

// FactLines renders each fact with its validity interval.
func FactLines(facts []core.Fact) []string {
	lines := make([]string, len(facts))
	for i, f := range facts {
		from, to := f.ValidFrom, f.ValidTo
		if from == "" {
			from = core.FactUnknownStart
		}
		if to == "" {
			to = core.FactOpenEnd
		}
		lines[i] = fmt.Sprintf("  - %s (%s - %s)", f.Statement, from, to)
	}
	return lines
}

// EntityLines renders each entity as "  - <name>: <summary>".
func EntityLines(entities []core.Entity) []string {
	lines := make([]string, len(entities))
	for i, e := range entities {
		lines[i] = fmt.Sprintf("  - %s: %s", e.Name, e.Summary)
	}
	return lines
}

// FormatRelations renders graph relations one per line as
// "  - <source> -> <relationship> -> <target>".
func FormatRelations(relations []core.Relation) string {
	lines := make([]string, len(relations))
	for i, r := range relations {
		lines[i] = fmt.Sprintf("  - %s -> %s -> %s", r.Source, r.Relationship, r.Target)
	}
	return strings.Join(lines, "\n")
}
