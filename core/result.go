package core

import "time"

// ResultRecord is the durable output of answering one evaluation item.
// Memory counts are derived by NewResultRecord and always match the slices.
type ResultRecord struct {
	Question          string   `json:"question"`
	Answer            any      `json:"answer"`
	Category          int      `json:"category"`
	Evidence          []string `json:"evidence"`
	Response          string   `json:"response"`
	AdversarialAnswer any      `json:"adversarial_answer"`

	Speaker1Memories    []MemoryRecord `json:"speaker_1_memories"`
	Speaker2Memories    []MemoryRecord `json:"speaker_2_memories"`
	NumSpeaker1Memories int            `json:"num_speaker_1_memories"`
	NumSpeaker2Memories int            `json:"num_speaker_2_memories"`
	Speaker1MemoryTime  float64        `json:"speaker_1_memory_time"`
	Speaker2MemoryTime  float64        `json:"speaker_2_memory_time"`

	Speaker1GraphMemories []Relation `json:"speaker_1_graph_memories"`
	Speaker2GraphMemories []Relation `json:"speaker_2_graph_memories"`

	Speaker1Facts    []Fact   `json:"speaker_1_facts,omitempty"`
	Speaker2Facts    []Fact   `json:"speaker_2_facts,omitempty"`
	Speaker1Entities []Entity `json:"speaker_1_entities,omitempty"`
	Speaker2Entities []Entity `json:"speaker_2_entities,omitempty"`

	ResponseTime float64 `json:"response_time"`
}

// SpeakerOutcome is the retrieval of one identity together with the time
// the search took.
type SpeakerOutcome struct {
	Retrieval Retrieval
	Took      time.Duration
}

// NewResultRecord packages an answered item.
func NewResultRecord(item EvaluationItem, response string, s1, s2 SpeakerOutcome, responseTook time.Duration) *ResultRecord {
	m1 := nonNil(s1.Retrieval.Memories)
	m2 := nonNil(s2.Retrieval.Memories)
	evidence := item.Evidence
	if evidence == nil {
		evidence = []string{}
	}
	return &ResultRecord{
		Question:              item.Question,
		Answer:                item.Answer,
		Category:              item.Category,
		Evidence:              evidence,
		Response:              response,
		AdversarialAnswer:     item.AdversarialAnswer,
		Speaker1Memories:      m1,
		Speaker2Memories:      m2,
		NumSpeaker1Memories:   len(m1),
		NumSpeaker2Memories:   len(m2),
		Speaker1MemoryTime:    s1.Took.Seconds(),
		Speaker2MemoryTime:    s2.Took.Seconds(),
		Speaker1GraphMemories: s1.Retrieval.Relations,
		Speaker2GraphMemories: s2.Retrieval.Relations,
		Speaker1Facts:         s1.Retrieval.Facts,
		Speaker2Facts:         s2.Retrieval.Facts,
		Speaker1Entities:      s1.Retrieval.Entities,
		Speaker2Entities:      s2.Retrieval.Entities,
		ResponseTime:          responseTook.Seconds(),
	}
}

func nonNil(m []MemoryRecord) []MemoryRecord {
	if m == nil {
		return []MemoryRecord{}
	}
	return m
}
