package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/memorybench/core"
)

func record(q string) *core.ResultRecord {
	return core.NewResultRecord(core.EvaluationItem{Question: q, Answer: "a", Category: 1}, "r", core.SpeakerOutcome{}, core.SpeakerOutcome{}, 0)
}

func TestStore_AppendFlushesEveryTime(t *testing.T) {
	sink := NewMemorySink()
	s := NewStore(sink)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, 0, record("q1")))
	require.NoError(t, s.Append(ctx, 0, record("q2")))
	assert.Equal(t, 2, sink.Writes())

	data, err := sink.Read(ctx)
	require.NoError(t, err)
	var doc map[string][]map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc["0"], 2)
	assert.Equal(t, "q1", doc["0"][0]["question"])
	assert.Equal(t, []any{}, doc["0"][0]["speaker_1_memories"])
}

func TestStore_NumericKeyOrderAndIndent(t *testing.T) {
	sink := NewMemorySink()
	s := NewStore(sink)
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, 10, record("late")))
	require.NoError(t, s.Append(ctx, 2, record("early")))

	data, err := sink.Read(ctx)
	require.NoError(t, err)
	doc := string(data)
	assert.Less(t, strings.Index(doc, `"2": [`), strings.Index(doc, `"10": [`))
	assert.True(t, strings.HasPrefix(doc, "{\n    \"2\": [\n        {\n            \"question\": \"early\""), doc)
	assert.True(t, json.Valid(data))
}

func TestStore_EmptyDocument(t *testing.T) {
	sink := NewMemorySink()
	require.NoError(t, NewStore(sink).Flush(context.Background()))
	data, err := sink.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestStore_ConcurrentAppends(t *testing.T) {
	sink := NewMemorySink()
	s := NewStore(sink)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Append(ctx, i%3, record(fmt.Sprintf("q%d", i))))
		}(i)
	}
	wg.Wait()

	reopened, err := Open(ctx, sink)
	require.NoError(t, err)
	assert.Equal(t, 50, reopened.Len())
	assert.True(t, reopened.Has(1, "q1"))
	assert.False(t, reopened.Has(0, "q1"))
}

type failingSink struct {
	MemorySink
	fail bool
}

func (f *failingSink) Write(ctx context.Context, data []byte) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.MemorySink.Write(ctx, data)
}

func TestStore_FailedFlushKeepsRecord(t *testing.T) {
	sink := &failingSink{fail: true}
	s := NewStore(sink)
	ctx := context.Background()

	require.Error(t, s.Append(ctx, 0, record("q1")))
	assert.Equal(t, 1, s.Len())

	sink.fail = false
	require.NoError(t, s.Flush(ctx))
	reopened, err := Open(ctx, sink)
	require.NoError(t, err)
	assert.True(t, reopened.Has(0, "q1"))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("missing document", func(t *testing.T) {
		s, err := Open(ctx, NewFileSink(filepath.Join(t.TempDir(), "none.json")))
		require.NoError(t, err)
		assert.Equal(t, 0, s.Len())
	})

	t.Run("round trip through file", func(t *testing.T) {
		sink := NewFileSink(filepath.Join(t.TempDir(), "out", "results.json"))
		s := NewStore(sink)
		require.NoError(t, s.Append(ctx, 3, record("q")))

		reopened, err := Open(ctx, sink)
		require.NoError(t, err)
		recs := reopened.Records(3)
		require.Len(t, recs, 1)
		assert.Equal(t, "q", recs[0].Question)
		assert.Equal(t, "r", recs[0].Response)
	})

	t.Run("invalid key", func(t *testing.T) {
		sink := NewMemorySink()
		require.NoError(t, sink.Write(ctx, []byte(`{"x": []}`)))
		_, err := Open(ctx, sink)
		assert.ErrorContains(t, err, "invalid conversation key")
	})
}
