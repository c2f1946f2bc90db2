package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"docsum/store"
	"docsum/types"
)

const (
	DefaultFetchK = 20
	DefaultLambda = 0.5
)

// Embedder is the subset of the langchaingo embeddings.Embedder contract the index needs.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type Options struct {
	// FetchK is the number of nearest candidates handed to MMR when it exceeds k.
	FetchK int
	// Lambda trades relevance (1) against diversity (0).
	Lambda float64
}

// Index is an ephemeral vector index owned by a single request.
type Index struct {
	name     string
	store    store.VectorStore
	embedder Embedder
	opts     Options
	logger   *slog.Logger

	mu        sync.Mutex
	size      int
	destroyed bool
}

// New creates an empty collection under a fresh name. The caller must Destroy it.
func New(ctx context.Context, s store.VectorStore, e Embedder, opts Options, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.FetchK <= 0 {
		opts.FetchK = DefaultFetchK
	}
	if opts.Lambda <= 0 || opts.Lambda > 1 {
		opts.Lambda = DefaultLambda
	}

	name := "docsum-" + uuid.NewString()
	if err := s.Create(ctx, name); err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	logger.Debug("index created", "index", name)

	return &Index{
		name:     name,
		store:    s,
		embedder: e,
		opts:     opts,
		logger:   logger,
	}, nil
}

func (ix *Index) Name() string {
	return ix.name
}

// Len returns the number of embedded chunks.
func (ix *Index) Len() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.size
}

// Build embeds every chunk and stores it. Building with no chunks leaves the index empty.
func (ix *Index) Build(ctx context.Context, chunks []types.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := ix.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	entries := make([]store.Entry, len(chunks))
	for i, c := range chunks {
		if len(vectors[i]) == 0 {
			return fmt.Errorf("embed chunks: empty vector for chunk %d", c.Seq)
		}
		entries[i] = store.Entry{Chunk: c, Embedding: vectors[i]}
	}
	if err := ix.store.Add(ctx, ix.name, entries); err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}

	ix.mu.Lock()
	ix.size += len(entries)
	ix.mu.Unlock()

	ix.logger.Debug("index built", "index", ix.name, "chunks", len(entries))
	return nil
}

// Retrieve returns at most k chunks chosen by MMR among the FetchK nearest candidates.
func (ix *Index) Retrieve(ctx context.Context, query string, k int) ([]types.Chunk, error) {
	if ix.Len() == 0 {
		return nil, types.ErrEmptyIndex
	}
	if k <= 0 {
		return nil, nil
	}

	qv, err := ix.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := ix.store.Nearest(ctx, ix.name, qv, max(k, ix.opts.FetchK))
	if err != nil {
		return nil, fmt.Errorf("nearest neighbours: %w", err)
	}

	candidates := make([]store.Entry, len(matches))
	for i, m := range matches {
		candidates[i] = m.Entry
	}
	chunks := MMR(qv, candidates, k, ix.opts.Lambda)

	ix.logger.Debug("retrieved chunks", "index", ix.name, "candidates", len(candidates), "selected", len(chunks))
	return chunks, nil
}

// Destroy drops the collection. Calling it again is a no-op.
func (ix *Index) Destroy(ctx context.Context) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.destroyed {
		return nil
	}
	if err := ix.store.Drop(ctx, ix.name); err != nil {
		return fmt.Errorf("destroy index %s: %w", ix.name, err)
	}
	ix.destroyed = true
	ix.size = 0
	ix.logger.Debug("index destroyed", "index", ix.name)
	return nil
}
