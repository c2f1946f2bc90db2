// Package pipeline runs a document through load, chunk, index, retrieve, prompt and generate.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"docsum/app/agent"
	"docsum/chunker"
	"docsum/config"
	"docsum/index"
	"docsum/metrics"
	"docsum/store"
	"docsum/types"
)

// DocumentLoader turns a file on disk into documents. *loader.Registry satisfies it.
type DocumentLoader interface {
	Load(path string) ([]types.Document, error)
}

type Deps struct {
	Loader    DocumentLoader
	Store     store.VectorStore
	Embedder  index.Embedder
	Generator agent.Generator
	// Counter is optional. Without it prompts are neither measured nor trimmed.
	Counter agent.Counter
	Logger  *slog.Logger
}

type Pipeline struct {
	cfg       config.PipelineConfig
	chunker   *chunker.Chunker
	assembler *agent.Assembler
	deps      Deps
	logger    *slog.Logger
}

func New(cfg config.PipelineConfig, deps Deps) (*Pipeline, error) {
	if deps.Loader == nil || deps.Store == nil || deps.Embedder == nil || deps.Generator == nil {
		return nil, errors.New("pipeline: loader, store, embedder and generator are required")
	}
	c, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	a, err := agent.NewAssembler(cfg.PromptStyle, cfg.PromptLanguage)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:       cfg,
		chunker:   c,
		assembler: a,
		deps:      deps,
		logger:    logger,
	}, nil
}

// Run summarizes the file at path. Stages run strictly in order; a failure is returned as
// a *types.StageError naming the stage and wrapping the cause. The index is destroyed on
// every exit path.
func (p *Pipeline) Run(ctx context.Context, path string) (summary string, err error) {
	defer func() {
		if err != nil {
			metrics.StageFailures.WithLabelValues(string(types.FailedStage(err))).Inc()
		}
	}()

	start := time.Now()
	docs, err := p.deps.Loader.Load(path)
	if err != nil {
		return "", types.NewStageError(types.StageLoaded, err)
	}
	metrics.ObserveStage(string(types.StageLoaded), start)
	p.logger.Info("document loaded", "documents", len(docs), "took", time.Since(start))

	start = time.Now()
	chunks := p.chunker.Split(docs)
	if len(chunks) == 0 {
		return "", types.NewStageError(types.StageChunked, types.ErrExtractionFailed)
	}
	metrics.ObserveStage(string(types.StageChunked), start)
	p.logger.Info("document chunked", "chunks", len(chunks), "size", p.chunker.Size(), "overlap", p.chunker.Overlap())

	start = time.Now()
	ix, err := index.New(ctx, p.deps.Store, p.deps.Embedder, index.Options{
		FetchK: p.cfg.FetchK,
		Lambda: p.cfg.Lambda,
	}, p.logger)
	if err != nil {
		return "", types.NewStageError(types.StageIndexed, err)
	}
	defer func() {
		// cleanup must survive a cancelled request context
		if derr := ix.Destroy(context.WithoutCancel(ctx)); derr != nil {
			p.logger.Error("failed to destroy index", "index", ix.Name(), "err", derr)
		}
	}()
	if err := ix.Build(ctx, chunks); err != nil {
		return "", types.NewStageError(types.StageIndexed, err)
	}
	metrics.ObserveStage(string(types.StageIndexed), start)
	metrics.ChunksIndexed.Observe(float64(ix.Len()))
	p.logger.Info("index built", "index", ix.Name(), "chunks", ix.Len(), "took", time.Since(start))

	start = time.Now()
	retrieved, err := ix.Retrieve(ctx, p.cfg.Question, p.cfg.RetrievalK)
	if err != nil {
		return "", types.NewStageError(types.StageRetrieved, err)
	}
	metrics.ObserveStage(string(types.StageRetrieved), start)

	start = time.Now()
	kept := agent.TrimToBudget(retrieved, p.cfg.MaxContextTokens, p.deps.Counter)
	if len(kept) < len(retrieved) {
		p.logger.Info("context trimmed to token budget", "budget", p.cfg.MaxContextTokens, "from", len(retrieved), "to", len(kept))
	}
	prompt, err := p.assembler.Render(kept, p.cfg.Question)
	if err != nil {
		return "", types.NewStageError(types.StagePrompted, err)
	}
	if p.deps.Counter != nil {
		tokens := p.deps.Counter.Count(prompt)
		metrics.PromptTokens.Observe(float64(tokens))
		p.logger.Debug("prompt rendered", "style", p.assembler.Style(), "tokens", tokens, "symbols", len(prompt))
	}
	metrics.ObserveStage(string(types.StagePrompted), start)

	start = time.Now()
	summary, err = p.deps.Generator.Generate(ctx, prompt)
	if err != nil {
		return "", types.NewStageError(types.StageGenerated, err)
	}
	metrics.ObserveStage(string(types.StageGenerated), start)
	p.logger.Info("summary generated", "chars", len(summary), "took", time.Since(start))

	return summary, nil
}
