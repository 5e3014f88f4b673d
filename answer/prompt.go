package answer

// PromptData is the value prompt templates are rendered with.
type PromptData struct {
	Question   string
	SpeakerA   string
	SpeakerB   string
	ContextA   string
	ContextB   string
	RelationsA string
	RelationsB string
	// HasRelations is set when graph relations were retrieved.
	HasRelations bool
}

// DefaultPrompt answers from ranked memories, optionally with relations.
const DefaultPrompt = `You are an intelligent memory assistant tasked with retrieving accurate information from conversation memories.

# CONTEXT:
You have access to memories from two speakers in a conversation. These memories contain
timestamped information that may be relevant to answering the question.{{ if .HasRelations }} You also
have access to knowledge graph relations for each user, showing connections between entities.{{ end }}

# INSTRUCTIONS:
1. Carefully analyze all provided memories from both speakers
2. Pay special attention to the timestamps to determine the answer
3. If the question asks about a specific event or fact, look for direct evidence in the memories
4. If the memories contain contradictory information, prioritize the most recent memory
5. If there is a question about time references (like "last year", "two months ago"),
   calculate the actual date based on the memory timestamp. For example, if a memory from
   4 May 2022 mentions "went to India last year", then the trip occurred in 2021.
6. Always convert relative time references to specific dates, months, or years.
7. Focus only on the content of the memories from both speakers. Do not confuse character
   names mentioned in memories with the actual users who created those memories.
8. The answer should be less than 5-6 words.

Memories for user {{ .SpeakerA }}:

{{ .ContextA }}
{{ if .HasRelations }}
Relations for user {{ .SpeakerA }}:

{{ .RelationsA }}
{{ end }}
Memories for user {{ .SpeakerB }}:

{{ .ContextB }}
{{ if .HasRelations }}
Relations for user {{ .SpeakerB }}:

{{ .RelationsB }}
{{ end }}
Question: {{ .Question }}

Answer:
`

// GraphPrompt answers from knowledge graph facts and entities.
const GraphPrompt = `You are an intelligent memory assistant tasked with retrieving accurate information from conversation memories.

# CONTEXT:
You have access to facts and entities from a knowledge graph built from a conversation between
{{ .SpeakerA }} and {{ .SpeakerB }}. Each fact carries the date range during which it was valid.

# INSTRUCTIONS:
1. Carefully analyze all provided facts and entities
2. Pay special attention to the date ranges to determine the answer
3. If facts contradict each other, prioritize the one that is valid most recently
4. Always convert relative time references to specific dates, months, or years.
5. The answer should be less than 5-6 words.

# MEMORIES of {{ .SpeakerA }}:

{{ .ContextA }}
# MEMORIES of {{ .SpeakerB }}:

{{ .ContextB }}
Question: {{ .Question }}

Answer:
`
