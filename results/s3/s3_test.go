package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/memorybench/core"
	"github.com/hupe1980/memorybench/results"
)

type fakeS3 struct {
	objects map[string][]byte
	puts    int
	putErr  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	f.puts++
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestSink_StoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := &fakeS3{objects: map[string][]byte{}}
	sink := newSink(fake, "bench", "runs/r1/results.json")

	store, err := results.Open(ctx, sink)
	require.NoError(t, err, "missing object starts an empty store")
	require.NoError(t, store.Append(ctx, 0, core.NewResultRecord(core.EvaluationItem{Question: "q"}, "a", core.SpeakerOutcome{}, core.SpeakerOutcome{}, 0)))
	assert.Equal(t, 1, fake.puts)
	assert.Contains(t, fake.objects, "bench/runs/r1/results.json")

	reopened, err := results.Open(ctx, sink)
	require.NoError(t, err)
	assert.True(t, reopened.Has(0, "q"))
}

func TestSink_ReadNotFound(t *testing.T) {
	_, err := newSink(&fakeS3{objects: map[string][]byte{}}, "b", "k").Read(context.Background())
	assert.ErrorIs(t, err, results.ErrNotFound)
}

func TestSink_WriteError(t *testing.T) {
	boom := errors.New("throttled")
	err := newSink(&fakeS3{objects: map[string][]byte{}, putErr: boom}, "b", "k").Write(context.Background(), []byte("{}"))
	assert.ErrorIs(t, err, boom)
}

func TestNewSink_Validation(t *testing.T) {
	_, err := NewSink(context.Background())
	assert.ErrorIs(t, err, ErrEmptyBucket)

	_, err = NewSink(context.Background(), func(o *Options) { o.Bucket = "b" })
	assert.ErrorIs(t, err, ErrEmptyKey)
}
