package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/memorybench/core"
)

const sampleDoc = `[
  {
    "sample_id": "conv-1",
    "qa": [
      {"question": "When did Ann say hi?", "answer": "7 May 2023", "category": 2, "evidence": ["D1:1"]},
      {"question": "What year?", "answer": 2022},
      {"question": "Trick?", "category": 5, "adversarial_answer": "never"}
    ],
    "conversation": {
      "speaker_a": "Ann",
      "speaker_b": "Bob",
      "session_2_date_time": "2:00 pm on 8 May, 2023",
      "session_2": [{"speaker": "Bob", "dia_id": "D2:1", "text": "back again"}],
      "session_1_date_time": "1:56 pm on 7 May, 2023",
      "session_1": [
        {"speaker": "Ann", "dia_id": "D1:1", "text": "hi"},
        {"speaker": "Bob", "dia_id": "D1:2", "text": "hello"}
      ]
    }
  }
]`

func TestDecode_PreservesSegmentOrder(t *testing.T) {
	samples, err := Decode(strings.NewReader(sampleDoc))
	require.NoError(t, err)
	require.Len(t, samples, 1)

	s := samples[0]
	assert.Equal(t, 0, s.Index)
	assert.Equal(t, "conv-1", s.ID)
	assert.Equal(t, "Ann", s.Conversation.SpeakerA)
	assert.Equal(t, "Bob", s.Conversation.SpeakerB)

	require.Len(t, s.Conversation.Segments, 2)
	assert.Equal(t, "session_2", s.Conversation.Segments[0].Key, "document order, not sorted order")
	assert.Equal(t, "2:00 pm on 8 May, 2023", s.Conversation.Segments[0].Timestamp)
	assert.Equal(t, "session_1", s.Conversation.Segments[1].Key)
	assert.Equal(t, []core.Turn{
		{Speaker: "Ann", DiaID: "D1:1", Text: "hi"},
		{Speaker: "Bob", DiaID: "D1:2", Text: "hello"},
	}, s.Conversation.Segments[1].Turns)
	assert.Equal(t, 3, s.Conversation.TurnCount())
}

func TestDecode_ItemDefaults(t *testing.T) {
	samples, err := Decode(strings.NewReader(sampleDoc))
	require.NoError(t, err)
	qa := samples[0].QA
	require.Len(t, qa, 3)

	assert.Equal(t, 2, qa[0].Category)
	assert.Equal(t, []string{"D1:1"}, qa[0].Evidence)
	assert.Equal(t, "", qa[0].AdversarialAnswer)

	assert.Equal(t, float64(2022), qa[1].Answer, "answers pass through verbatim")
	assert.Equal(t, core.NoCategory, qa[1].Category)
	assert.Equal(t, []string{}, qa[1].Evidence)

	assert.Equal(t, "", qa[2].Answer)
	assert.Equal(t, "never", qa[2].AdversarialAnswer)
}

func TestDecode_MissingTimestampIsolatesSample(t *testing.T) {
	doc := `[
  {"qa": [{"question": "q0"}], "conversation": {"speaker_a": "A", "speaker_b": "B",
    "session_1_date_time": "T1", "session_1": [{"speaker": "A", "text": "hi"}]}},
  {"qa": [{"question": "q1"}], "conversation": {"speaker_a": "C", "speaker_b": "D", "session_1": []}}
]`
	samples, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, samples, 2)

	assert.NoError(t, samples[0].Err)
	assert.Len(t, samples[0].Conversation.Segments, 1)

	var mte *core.MissingTimestampError
	require.ErrorAs(t, samples[1].Err, &mte)
	assert.Equal(t, "session_1", mte.Segment)
	assert.ErrorContains(t, samples[1].Err, "sample 1")
	assert.Equal(t, 1, samples[1].Index)
	assert.Len(t, samples[1].QA, 1)
}

func TestDecode_MissingSpeaker(t *testing.T) {
	doc := `[{"qa": [], "conversation": {"speaker_a": "A"}}]`
	samples, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.ErrorContains(t, samples[0].Err, "speaker_b")
}

func TestDecode_InvalidDocument(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"not": "a list"}`))
	assert.Error(t, err)
}

func TestLoadAndLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locomo.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleDoc), 0o644))
	samples, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, Limit(samples, 0), 1)
	assert.Len(t, Limit(samples, 5), 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
