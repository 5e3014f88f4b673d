package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/memorybench/core"
)

func TestLimited(t *testing.T) {
	l := NewLimited(NewMockModel("m"), 2)
	assert.Equal(t, 2, l.Remaining())

	for i := 0; i < 2; i++ {
		_, err := l.Generate(context.Background(), Request{Prompt: "q"})
		require.NoError(t, err)
	}
	_, err := l.Generate(context.Background(), Request{Prompt: "q"})

	var limitErr *CallLimitError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, 2, limitErr.Max)
	assert.True(t, core.IsPermanent(err))
	assert.Equal(t, 2, l.Count())
	assert.Equal(t, 0, l.Remaining())
	assert.Equal(t, "m", l.Info().Name)
}

func TestLimited_Unlimited(t *testing.T) {
	l := NewLimited(NewMockModel("m"), 0)
	for i := 0; i < 5; i++ {
		_, err := l.Generate(context.Background(), Request{Prompt: "q"})
		require.NoError(t, err)
	}
	assert.Equal(t, -1, l.Remaining())
	assert.Equal(t, 5, l.Count())
}
