package store

import (
	"context"
	"errors"

	"docsum/types"
)

var (
	// ErrCollectionNotFound is returned when a named index does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrCollectionExists is returned when Create is called twice with the same name.
	ErrCollectionExists = errors.New("collection already exists")
)

// Entry is a chunk together with its embedding.
type Entry struct {
	Chunk     types.Chunk
	Embedding []float32
}

// Match is a stored entry returned by a nearest-neighbour query.
type Match struct {
	Entry
	Similarity float64
}

// VectorStore keeps embeddings in isolated named collections. Every call names the
// collection explicitly so concurrent requests never share data.
type VectorStore interface {
	Create(ctx context.Context, name string) error
	Add(ctx context.Context, name string, entries []Entry) error
	// Nearest returns up to n entries ordered by descending cosine similarity, with
	// their stored embeddings.
	Nearest(ctx context.Context, name string, query []float32, n int) ([]Match, error)
	Drop(ctx context.Context, name string) error
}
