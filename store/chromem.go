package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"

	"docsum/types"
)

const (
	metaSeq    = "seq"
	metaDoc    = "doc"
	metaOffset = "offset"
)

var _ VectorStore = (*ChromemStore)(nil)

// errNoEmbedder guards against chromem falling back to its default remote embedder;
// every document and query arrives already embedded.
var errNoEmbedder = errors.New("chromem collection has no embedding function")

func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, errNoEmbedder
}

// ChromemStore keeps collections in process memory. It is the default backend.
type ChromemStore struct {
	db     *chromem.DB
	logger *slog.Logger
}

func NewChromemStore(logger *slog.Logger) *ChromemStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChromemStore{
		db:     chromem.NewDB(),
		logger: logger,
	}
}

func (s *ChromemStore) Create(ctx context.Context, name string) error {
	if s.db.GetCollection(name, noEmbedding) != nil {
		return fmt.Errorf("%w: %s", ErrCollectionExists, name)
	}
	if _, err := s.db.CreateCollection(name, nil, noEmbedding); err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	return nil
}

func (s *ChromemStore) Add(ctx context.Context, name string, entries []Entry) error {
	c := s.db.GetCollection(name, noEmbedding)
	if c == nil {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	if len(entries) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(entries))
	for i, e := range entries {
		docs[i] = chromem.Document{
			ID: strconv.Itoa(e.Chunk.Seq),
			Metadata: map[string]string{
				metaSeq:    strconv.Itoa(e.Chunk.Seq),
				metaDoc:    strconv.Itoa(e.Chunk.DocIndex),
				metaOffset: strconv.Itoa(e.Chunk.Offset),
			},
			Embedding: e.Embedding,
			Content:   e.Chunk.Text,
		}
	}
	if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("add documents to %s: %w", name, err)
	}

	s.logger.Debug("added entries to chromem collection", "collection", name, "count", len(entries))
	return nil
}

func (s *ChromemStore) Nearest(ctx context.Context, name string, query []float32, n int) ([]Match, error) {
	c := s.db.GetCollection(name, noEmbedding)
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	// chromem rejects nResults above the collection size
	n = min(n, c.Count())
	if n <= 0 {
		return nil, nil
	}

	results, err := c.QueryEmbedding(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection %s: %w", name, err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		chunk, err := chunkFromMetadata(r.Metadata, r.Content)
		if err != nil {
			return nil, fmt.Errorf("decode result %s: %w", r.ID, err)
		}
		matches = append(matches, Match{
			Entry:      Entry{Chunk: chunk, Embedding: r.Embedding},
			Similarity: float64(r.Similarity),
		})
	}
	return matches, nil
}

func (s *ChromemStore) Drop(ctx context.Context, name string) error {
	if err := s.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("delete collection %s: %w", name, err)
	}
	return nil
}

func chunkFromMetadata(meta map[string]string, content string) (types.Chunk, error) {
	seq, err := strconv.Atoi(meta[metaSeq])
	if err != nil {
		return types.Chunk{}, err
	}
	doc, err := strconv.Atoi(meta[metaDoc])
	if err != nil {
		return types.Chunk{}, err
	}
	offset, err := strconv.Atoi(meta[metaOffset])
	if err != nil {
		return types.Chunk{}, err
	}
	return types.Chunk{Text: content, Offset: offset, DocIndex: doc, Seq: seq}, nil
}
