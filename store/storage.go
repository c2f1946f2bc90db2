package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

var _ VectorStore = (*PostgresStore)(nil)

// PostgresStore keeps collections in one pgvector table, isolated by the
// collection name column. Rows live only as long as the request that created them.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPostgresStore(ctx context.Context, connStr string, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{
		pool:   pool,
		logger: logger,
	}, nil
}

func (p *PostgresStore) Init(ctx context.Context) error {
	query := `
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS index_collections (
		name TEXT PRIMARY KEY,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS index_chunks (
		collection TEXT NOT NULL REFERENCES index_collections(name) ON DELETE CASCADE,
		seq INT NOT NULL,
		doc_index INT NOT NULL,
		chunk_offset INT NOT NULL,
		content TEXT NOT NULL,
		embedding vector NOT NULL,
		PRIMARY KEY (collection, seq)
	);
	`
	_, err := p.pool.Exec(ctx, query)
	return err
}

func (p *PostgresStore) Create(ctx context.Context, name string) error {
	tag, err := p.pool.Exec(ctx,
		"INSERT INTO index_collections (name) VALUES ($1) ON CONFLICT (name) DO NOTHING", name)
	if err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrCollectionExists, name)
	}
	return nil
}

func (p *PostgresStore) Add(ctx context.Context, name string, entries []Entry) error {
	if err := p.ensureCollection(ctx, name); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(`
			INSERT INTO index_chunks (collection, seq, doc_index, chunk_offset, content, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			name, e.Chunk.Seq, e.Chunk.DocIndex, e.Chunk.Offset, e.Chunk.Text, pgvector.NewVector(e.Embedding),
		)
	}
	if err := p.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert chunks into %s: %w", name, err)
	}

	p.logger.Debug("added entries to pgvector collection", "collection", name, "count", len(entries))
	return nil
}

func (p *PostgresStore) Nearest(ctx context.Context, name string, query []float32, n int) ([]Match, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}
	if err := p.ensureCollection(ctx, name); err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx, `
		SELECT seq, doc_index, chunk_offset, content, embedding,
		       1 - (embedding <=> $2) AS similarity
		FROM index_chunks
		WHERE collection = $1
		ORDER BY embedding <=> $2, seq
		LIMIT $3`,
		name, pgvector.NewVector(query), n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			m   Match
			vec pgvector.Vector
		)
		if err := rows.Scan(
			&m.Chunk.Seq,
			&m.Chunk.DocIndex,
			&m.Chunk.Offset,
			&m.Chunk.Text,
			&vec,
			&m.Similarity); err != nil {
			return nil, err
		}
		m.Embedding = vec.Slice()
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// Drop removes the collection and, by cascade, its chunks. Missing collections are ignored.
func (p *PostgresStore) Drop(ctx context.Context, name string) error {
	_, err := p.pool.Exec(ctx, "DELETE FROM index_collections WHERE name = $1", name)
	if err != nil {
		return fmt.Errorf("drop collection %s: %w", name, err)
	}
	return nil
}

func (p *PostgresStore) ensureCollection(ctx context.Context, name string) error {
	var exists bool
	err := p.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM index_collections WHERE name = $1)", name).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return nil
}

// Close closes the connection pool.
func (p *PostgresStore) Close() error {
	if p.pool != nil {
		p.pool.Close()
		p.logger.Info("postgres connection pool is closed")
	}
	return nil
}
