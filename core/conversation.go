package core

// Turn is a single utterance inside a conversation segment.
type Turn struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	DiaID   string `json:"dia_id,omitempty"`
}

// Segment is one time-stamped chat session of a conversation. Every memory
// derived from a segment carries its Timestamp.
type Segment struct {
	Key       string
	Timestamp string
	Turns     []Turn
}

// Conversation is a two-party dialogue split into ordered segments. It is
// treated as immutable once loaded.
type Conversation struct {
	SpeakerA string
	SpeakerB string
	Segments []Segment
}

// TurnCount returns the number of turns across all segments.
func (c Conversation) TurnCount() int {
	n := 0
	for _, s := range c.Segments {
		n += len(s.Turns)
	}
	return n
}
