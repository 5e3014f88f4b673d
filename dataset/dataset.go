// Package dataset loads LoCoMo style evaluation files: a JSON array of
// samples, each holding one two-party conversation and its questions.
//
// Conversation fields are decoded in document order because segments must be
// ingested in the order they were recorded.
package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hupe1980/memorybench/core"
	"github.com/hupe1980/memorybench/identity"
)

// Sample is one conversation of the dataset with its evaluation items.
type Sample struct {
	Index        int
	ID           string
	Conversation core.Conversation
	QA           []core.EvaluationItem
	// Err is set when the conversation is malformed, e.g. a segment without
	// its timestamp. Such a sample is loaded but must not be ingested.
	Err error
}

type rawSample struct {
	SampleID     string                `json:"sample_id"`
	QA           []core.EvaluationItem `json:"qa"`
	Conversation orderedObject         `json:"conversation"`
}

type field struct {
	key   string
	value json.RawMessage
}

// orderedObject keeps the members of a JSON object in document order.
type orderedObject []field

func (o *orderedObject) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("conversation: expected object, got %v", tok)
	}
	var fields orderedObject
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("conversation: unexpected token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("conversation field %q: %w", key, err)
		}
		fields = append(fields, field{key: key, value: raw})
	}
	*o = fields
	return nil
}

func (o orderedObject) lookup(key string) (json.RawMessage, bool) {
	for _, f := range o {
		if f.key == key {
			return f.value, true
		}
	}
	return nil, false
}

func (o orderedObject) str(key string) (string, error) {
	raw, ok := o.lookup(key)
	if !ok {
		return "", fmt.Errorf("missing field %q", key)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("field %q: %w", key, err)
	}
	return s, nil
}

// conversation builds a core.Conversation, skipping metadata fields.
func (o orderedObject) conversation() (core.Conversation, error) {
	var conv core.Conversation
	var err error
	if conv.SpeakerA, err = o.str(identity.SpeakerAKey); err != nil {
		return conv, err
	}
	if conv.SpeakerB, err = o.str(identity.SpeakerBKey); err != nil {
		return conv, err
	}
	for _, f := range o {
		if identity.IsMetadataKey(f.key) {
			continue
		}
		ts, err := o.str(identity.TimestampKey(f.key))
		if err != nil {
			return conv, &core.MissingTimestampError{Segment: f.key}
		}
		var turns []core.Turn
		if err := json.Unmarshal(f.value, &turns); err != nil {
			return conv, fmt.Errorf("segment %q: %w", f.key, err)
		}
		conv.Segments = append(conv.Segments, core.Segment{Key: f.key, Timestamp: ts, Turns: turns})
	}
	return conv, nil
}

// Decode reads a dataset document. Only an undecodable document fails;
// malformed conversations are returned with Sample.Err set.
func Decode(r io.Reader) ([]Sample, error) {
	var raws []rawSample
	if err := json.NewDecoder(r).Decode(&raws); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	samples := make([]Sample, 0, len(raws))
	for i, raw := range raws {
		sample := Sample{Index: i, ID: raw.SampleID, QA: raw.QA}
		conv, err := raw.Conversation.conversation()
		if err != nil {
			sample.Err = fmt.Errorf("sample %d: %w", i, err)
		} else {
			sample.Conversation = conv
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

// Load reads the dataset file at path.
func Load(path string) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Limit returns at most n samples; n <= 0 keeps all of them.
func Limit(samples []Sample, n int) []Sample {
	if n <= 0 || n >= len(samples) {
		return samples
	}
	return samples[:n]
}
