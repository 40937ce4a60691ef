package matcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stephrichter/tesserae-v5/ai/mock"
)

func fixedEmbedder(vectors map[string][]float32) *mock.MockEmbedder {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = vectors[text]
		}
		return out, nil
	}
	return embedder
}

func TestSemantic_Match(t *testing.T) {
	f := newFixture(t)
	embedder := fixedEmbedder(map[string][]float32{
		"a b c": {1, 0},
		"a d":   {0, 1},
		"x a b": {1, 0},
		"b":     {0.6, 0.8},
	})

	m, err := NewSemantic(f.sess, embedder, WithThreshold(0.9), WithBatchSize(2))
	require.NoError(t, err)

	matches, err := m.Match(context.Background(), 7, f.params())
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, f.sources[0].Id, matches[0].SourceUnit)
	assert.Equal(t, f.targets[0].Id, matches[0].TargetUnit)
	assert.Equal(t, []int{0, 1}, matches[0].Features)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)

	assert.Equal(t, f.sources[1].Id, matches[1].SourceUnit)
	assert.Equal(t, f.targets[1].Id, matches[1].TargetUnit)
	assert.Equal(t, []int{0, 3}, matches[1].Features)

	// one batch for two source units, two batches for three target units
	assert.Equal(t, 3, embedder.CallCount())
}

func TestSemantic_EmbedderError(t *testing.T) {
	f := newFixture(t)
	embedder := mock.NewMockEmbedder()
	boom := errors.New("embedding service unavailable")
	embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, boom
	}

	m, err := NewSemantic(f.sess, embedder)
	require.NoError(t, err)

	_, err = m.Match(context.Background(), 1, f.params())
	assert.ErrorIs(t, err, boom)
}

func TestNewSemantic_Options(t *testing.T) {
	_, err := NewSemantic(nil, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewSemantic(nil, mock.NewMockEmbedder(), WithThreshold(0))
	assert.Error(t, err)

	_, err = NewSemantic(nil, mock.NewMockEmbedder(), WithBatchSize(0))
	assert.Error(t, err)

	m, err := NewSemantic(nil, mock.NewMockEmbedder())
	require.NoError(t, err)
	assert.Equal(t, defaultSemanticThreshold, m.threshold)
	assert.Equal(t, defaultSemanticBatchSize, m.batchSize)
}
