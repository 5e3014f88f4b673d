package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluationItem_Defaults(t *testing.T) {
	var item EvaluationItem
	require.NoError(t, json.Unmarshal([]byte(`{"question":"q","answer":null}`), &item))
	assert.Equal(t, EvaluationItem{Question: "q", Answer: "", Category: NoCategory, Evidence: []string{}, AdversarialAnswer: ""}, item)

	require.NoError(t, json.Unmarshal([]byte(`{"question":"q","answer":2022,"category":3}`), &item))
	assert.Equal(t, 2022.0, item.Answer)
	assert.Equal(t, 3, item.Category)
}

func TestEvaluationItem_MatchesCategory(t *testing.T) {
	item := EvaluationItem{Category: 2}
	two, five := 2, 5
	assert.True(t, item.MatchesCategory(nil))
	assert.True(t, item.MatchesCategory(&two))
	assert.False(t, item.MatchesCategory(&five))
}

func TestNewResultRecord_CountsAndEmptySlices(t *testing.T) {
	s1 := SpeakerOutcome{
		Retrieval: Retrieval{Memories: []MemoryRecord{NewMemoryRecord("m", "ts", 0.876)}},
		Took:      1500 * time.Millisecond,
	}
	rec := NewResultRecord(EvaluationItem{Question: "q"}, "r", s1, SpeakerOutcome{}, 2*time.Second)

	assert.Equal(t, 1, rec.NumSpeaker1Memories)
	assert.Equal(t, 0, rec.NumSpeaker2Memories)
	assert.Equal(t, 0.88, rec.Speaker1Memories[0].Score)
	assert.Equal(t, 1.5, rec.Speaker1MemoryTime)
	assert.Equal(t, 2.0, rec.ResponseTime)

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"speaker_2_memories":[]`)
	assert.Contains(t, string(data), `"evidence":[]`)
	assert.NotContains(t, string(data), "speaker_1_facts")
}

func TestNewFact_Sentinels(t *testing.T) {
	assert.Equal(t, Fact{Statement: "s", ValidFrom: FactUnknownStart, ValidTo: FactOpenEnd}, NewFact("s", "", ""))
	assert.Equal(t, Fact{Statement: "s", ValidFrom: "a", ValidTo: "b"}, NewFact("s", "a", "b"))
}

func TestErrors(t *testing.T) {
	cause := errors.New("boom")

	transient := &TransientRemoteError{Op: "mem0 search", StatusCode: 503, Err: cause}
	assert.Equal(t, "mem0 search: status 503: boom", transient.Error())
	assert.ErrorIs(t, transient, cause)

	exhausted := &RetryExhaustedError{Op: "add", Attempts: 3, Err: transient}
	var got *TransientRemoteError
	require.ErrorAs(t, exhausted, &got)
	assert.Equal(t, 503, got.StatusCode)

	assert.Nil(t, Permanent(nil))
	p := fmt.Errorf("wrapped: %w", Permanent(cause))
	assert.True(t, IsPermanent(p))
	assert.ErrorIs(t, p, cause)
	assert.False(t, IsPermanent(cause))
}
