package testutil

import "github.com/hupe1980/memorybench/core"

// ConversationBuilder helps construct conversations with fluent chaining.
// Example:
//
//	conv := NewConversationBuilder("Ann", "Bob").Segment("session_1", "T1").A("hi").B("hello").Build()
type ConversationBuilder struct {
	conv core.Conversation
}

// NewConversationBuilder creates a builder for a dialogue between a and b.
func NewConversationBuilder(a, b string) *ConversationBuilder {
	return &ConversationBuilder{conv: core.Conversation{SpeakerA: a, SpeakerB: b}}
}

// Segment opens a new segment; following turns are appended to it (chainable).
func (b *ConversationBuilder) Segment(key, timestamp string) *ConversationBuilder {
	b.conv.Segments = append(b.conv.Segments, core.Segment{Key: key, Timestamp: timestamp})
	return b
}

// A appends a turn by speaker A to the current segment (chainable).
func (b *ConversationBuilder) A(text string) *ConversationBuilder {
	return b.Turn(b.conv.SpeakerA, text)
}

// B appends a turn by speaker B to the current segment (chainable).
func (b *ConversationBuilder) B(text string) *ConversationBuilder {
	return b.Turn(b.conv.SpeakerB, text)
}

// Turn appends a turn by any speaker to the current segment (chainable).
// A default segment is opened when none exists.
func (b *ConversationBuilder) Turn(speaker, text string) *ConversationBuilder {
	if len(b.conv.Segments) == 0 {
		b.Segment("session_1", "T1")
	}
	seg := &b.conv.Segments[len(b.conv.Segments)-1]
	seg.Turns = append(seg.Turns, core.Turn{Speaker: speaker, Text: text})
	return b
}

// Build returns the conversation.
func (b *ConversationBuilder) Build() core.Conversation {
	return b.conv
}
