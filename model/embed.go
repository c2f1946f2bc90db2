package model

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/tmc/langchaingo/embeddings"
)

// Embedder wraps a langchaingo embedder and L2-normalises every vector it returns.
type Embedder struct {
	client embeddings.Embedder
	logger *slog.Logger
}

func NewEmbedder(client embeddings.Embedder, logger *slog.Logger) *Embedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Embedder{client: client, logger: logger}
}

// NewOllamaEmbedder builds an Embedder backed by the Ollama embedding model.
func NewOllamaEmbedder(serverURL, modelName string, logger *slog.Logger) (*Embedder, error) {
	llm, err := NewOllamaClient(serverURL, modelName)
	if err != nil {
		return nil, err
	}
	client, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	e := NewEmbedder(client, logger)
	e.logger.Info("using local Ollama for embeddings", "model", modelName)
	return e, nil
}

func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	vectors, err := e.client.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}
	for i := range vectors {
		vectors[i] = Normalize(vectors[i])
	}
	e.logger.Debug("embedded documents", "count", len(texts), "took", time.Since(start))
	return vectors, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vector, err := e.client.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return Normalize(vector), nil
}

// Normalize scales vec to unit length in place. A zero vector is returned unchanged.
func Normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return vec
	}

	for i, x := range vec {
		vec[i] = float32(float64(x) / norm)
	}
	return vec
}
