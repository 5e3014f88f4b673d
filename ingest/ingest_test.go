package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/memorybench/core"
	"github.com/hupe1980/memorybench/dataset"
	"github.com/hupe1980/memorybench/internal/testutil"
	"github.com/hupe1980/memorybench/parallel"
	"github.com/hupe1980/memorybench/retry"
)

func fastRetry(o *Options) {
	o.Retry = retry.Policy{MaxAttempts: 3, Delay: 0}
}

func TestIngest_AnnBob(t *testing.T) {
	conv := testutil.NewConversationBuilder("Ann", "Bob").
		Segment("session_1", "T1").A("hi").B("hello").
		Build()
	w := &testutil.RecordingWriter{}

	require.NoError(t, New(w, fastRetry).Ingest(context.Background(), conv, 0))

	assert.ElementsMatch(t, []string{"Ann_0", "Bob_0"}, w.Resets())

	ann := w.AddsFor("Ann_0")
	require.Len(t, ann, 1)
	assert.Equal(t, []core.Message{
		{Role: core.RoleSelf, Content: "Ann: hi"},
		{Role: core.RoleOther, Content: "Bob: hello"},
	}, ann[0].Messages)
	assert.Equal(t, map[string]any{"timestamp": "T1"}, ann[0].Metadata)

	bob := w.AddsFor("Bob_0")
	require.Len(t, bob, 1)
	assert.Equal(t, []core.Message{
		{Role: core.RoleOther, Content: "Ann: hi"},
		{Role: core.RoleSelf, Content: "Bob: hello"},
	}, bob[0].Messages)
}

func TestIngest_BatchesInOrder(t *testing.T) {
	conv := testutil.NewConversationBuilder("A", "B").
		Segment("s1", "T1").A("1").B("2").A("3").
		Segment("s2", "T2").B("4").
		Build()
	w := &testutil.RecordingWriter{}

	require.NoError(t, New(w, fastRetry).Ingest(context.Background(), conv, 7))

	adds := w.AddsFor("A_7")
	require.Len(t, adds, 3)
	assert.Len(t, adds[0].Messages, 2)
	assert.Equal(t, "A: 3", adds[1].Messages[0].Content)
	assert.Equal(t, "T1", adds[1].Metadata["timestamp"])
	assert.Equal(t, "B: 4", adds[2].Messages[0].Content)
	assert.Equal(t, "T2", adds[2].Metadata["timestamp"])
}

func TestIngest_BatchSizeOption(t *testing.T) {
	conv := testutil.NewConversationBuilder("A", "B").A("1").B("2").A("3").Build()
	w := &testutil.RecordingWriter{}

	require.NoError(t, New(w, fastRetry, func(o *Options) { o.BatchSize = 3 }).Ingest(context.Background(), conv, 0))
	assert.Len(t, w.AddsFor("A_0"), 1)
}

func TestIngest_RetriesTransientFailure(t *testing.T) {
	conv := testutil.NewConversationBuilder("A", "B").A("1").Build()
	w := &testutil.RecordingWriter{
		AddFn: func(identity string, call int, _ []core.Message) error {
			if identity == "A_0" && call == 0 {
				return errors.New("flaky")
			}
			return nil
		},
	}

	require.NoError(t, New(w, fastRetry).Ingest(context.Background(), conv, 0))
	assert.Len(t, w.AddsFor("A_0"), 2)
}

func TestIngest_FailedIdentityIsAbortedOtherContinues(t *testing.T) {
	conv := testutil.NewConversationBuilder("A", "B").
		Segment("s1", "T1").A("1").
		Segment("s2", "T2").A("2").
		Build()
	boom := errors.New("unavailable")
	w := &testutil.RecordingWriter{
		AddFn: func(identity string, _ int, _ []core.Message) error {
			if identity == "A_0" {
				return boom
			}
			return nil
		},
	}

	err := New(w, fastRetry).Ingest(context.Background(), conv, 0)
	require.Error(t, err)

	var exhausted *core.RetryExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.ErrorIs(t, err, boom)

	assert.Len(t, w.AddsFor("A_0"), 3, "only the first segment is attempted")
	assert.Len(t, w.AddsFor("B_0"), 2, "partner ingests every segment")
}

func TestIngest_PanickingWriterIsReported(t *testing.T) {
	conv := testutil.NewConversationBuilder("Ann", "Bob").
		Segment("s1", "T1").A("1").
		Segment("s2", "T2").B("2").
		Build()
	w := &testutil.RecordingWriter{
		AddFn: func(identity string, _ int, _ []core.Message) error {
			if identity == "Ann_0" {
				panic("writer bug")
			}
			return nil
		},
	}

	err := New(w, fastRetry).Ingest(context.Background(), conv, 0)
	require.Error(t, err)

	var pe *parallel.PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "writer bug", pe.Value)
	assert.ErrorContains(t, err, "identity Ann_0 segment s1")
	assert.Len(t, w.AddsFor("Ann_0"), 1, "panicked identity is aborted")
	assert.Len(t, w.AddsFor("Bob_0"), 2, "partner ingests every segment")
}

func TestIngest_UnknownSpeakerAddsNothing(t *testing.T) {
	conv := testutil.NewConversationBuilder("A", "B").A("1").Turn("C", "intruder").Build()
	w := &testutil.RecordingWriter{}

	err := New(w, fastRetry).Ingest(context.Background(), conv, 0)
	var use *core.UnknownSpeakerError
	require.ErrorAs(t, err, &use)
	assert.Equal(t, "C", use.Speaker)
	assert.Empty(t, w.Adds())
	assert.Empty(t, w.Resets())
}

func TestIngest_RerunIsIdempotent(t *testing.T) {
	conv := testutil.NewConversationBuilder("A", "B").A("1").B("2").Build()
	w := &testutil.RecordingWriter{}
	p := New(w, fastRetry)

	require.NoError(t, p.Ingest(context.Background(), conv, 0))
	require.NoError(t, p.Ingest(context.Background(), conv, 0))

	adds := w.AddsFor("A_0")
	require.Len(t, adds, 2)
	assert.Equal(t, adds[0], adds[1])
	assert.Len(t, w.Resets(), 4, "every run resets both identities first")
}

func TestIngestAll(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		err := New(&testutil.RecordingWriter{}).IngestAll(context.Background(), nil)
		assert.ErrorIs(t, err, core.ErrMissingDataset)
	})

	t.Run("failure does not stop siblings", func(t *testing.T) {
		samples := []dataset.Sample{
			{Index: 0, Conversation: testutil.NewConversationBuilder("A", "B").A("x").Build()},
			{Index: 1, Conversation: testutil.NewConversationBuilder("C", "D").Turn("X", "y").Build()},
			{Index: 2, Conversation: testutil.NewConversationBuilder("E", "F").A("z").Build()},
		}
		w := &testutil.RecordingWriter{}

		err := New(w, fastRetry, func(o *Options) { o.Workers = 2 }).IngestAll(context.Background(), samples)
		var use *core.UnknownSpeakerError
		require.ErrorAs(t, err, &use)
		assert.Len(t, w.AddsFor("A_0"), 1)
		assert.Len(t, w.AddsFor("E_2"), 1)
	})

	t.Run("malformed sample is skipped", func(t *testing.T) {
		bad := &core.MissingTimestampError{Segment: "session_1"}
		samples := []dataset.Sample{
			{Index: 0, Conversation: testutil.NewConversationBuilder("A", "B").A("x").Build()},
			{Index: 1, Err: bad},
		}
		w := &testutil.RecordingWriter{}

		err := New(w, fastRetry).IngestAll(context.Background(), samples)
		assert.ErrorIs(t, err, bad)
		assert.Len(t, w.AddsFor("A_0"), 1)
		assert.ElementsMatch(t, []string{"A_0", "B_0"}, w.Resets())
	})
}
