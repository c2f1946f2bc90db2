package model

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	vectors [][]float32
	err     error
}

func (s *stubClient) EmbedDocuments(context.Context, []string) ([][]float32, error) {
	return s.vectors, s.err
}

func (s *stubClient) EmbedQuery(context.Context, string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vectors[0], nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	assert.Equal(t, []float32{0, 0}, Normalize([]float32{0, 0}))
	assert.Empty(t, Normalize(nil))
}

func TestEmbedder_NormalisesOutput(t *testing.T) {
	e := NewEmbedder(&stubClient{vectors: [][]float32{{3, 4}, {0, 2}, {1, 1}}}, nil)

	vectors, err := e.EmbedDocuments(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	for _, v := range vectors {
		assert.InDelta(t, 1.0, norm(v), 1e-6)
	}

	q, err := e.EmbedQuery(context.Background(), "a")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, norm(q), 1e-6)
}

func TestEmbedder_WrapsErrors(t *testing.T) {
	backend := errors.New("connection refused")
	e := NewEmbedder(&stubClient{err: backend}, nil)

	_, err := e.EmbedDocuments(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, backend)
	_, err = e.EmbedQuery(context.Background(), "a")
	assert.ErrorIs(t, err, backend)
}

func TestNewOllamaClient_RequiresModel(t *testing.T) {
	_, err := NewOllamaClient("http://localhost:11434", "")
	assert.Error(t, err)

	llm, err := NewOllamaClient("http://localhost:11434", "nomic-embed-text")
	require.NoError(t, err)
	assert.NotNil(t, llm)
}
