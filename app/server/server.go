package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docsum/app/agent"
	"docsum/app/api"
	"docsum/app/middleware"
	"docsum/config"
	"docsum/loader"
	"docsum/model"
	"docsum/pipeline"
	"docsum/store"
)

type Server struct {
	cfg     config.Config
	app     *fiber.App
	logger  *slog.Logger
	closers []io.Closer
}

// NewServer wires the HTTP routes around summarizer. It does not start listening.
func NewServer(cfg config.Config, summarizer api.Summarizer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		app = fiber.New(fiber.Config{
			ErrorHandler:          api.ErrorHandler,
			BodyLimit:             cfg.BodyLimit,
			DisableStartupMessage: true,
		})
		checkHandler     = api.NewCheckHandler()
		summarizeHandler = api.NewSummarizeHandler(summarizer, cfg.RequestTimeout, "", logger)
		apiGroup         = app.Group("/api")
	)

	app.Use(middleware.CORS())

	apiGroup.Get("/health", checkHandler.HandleHealth)
	apiGroup.Post("/summarize", summarizeHandler.HandleSummarize)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Use(middleware.PlugStatic("/api", "/.well-known"))
	if cfg.StaticDir != "" {
		if _, err := os.Stat(cfg.StaticDir); err != nil {
			logger.Warn("static directory is not available", "dir", cfg.StaticDir, "err", err)
		}
		app.Static("/", cfg.StaticDir, fiber.Static{Index: "index.html"})
	}

	return &Server{
		cfg:    cfg,
		app:    app,
		logger: logger,
	}
}

// New builds the full service from cfg: vector store backend, Ollama clients, loaders
// and the generation pipeline.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	vs, closer, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	embedder, err := model.NewOllamaEmbedder(cfg.LLM.URL, cfg.LLM.EmbeddingModel, logger)
	if err != nil {
		closeAll(closer)
		return nil, err
	}
	generator, err := agent.NewOllamaGenerator(cfg.LLM.URL, cfg.LLM.Model, cfg.LLM.Temperature, logger)
	if err != nil {
		closeAll(closer)
		return nil, err
	}

	deps := pipeline.Deps{
		Loader: loader.DefaultRegistry(loader.Options{
			CropTop:    cfg.Pipeline.CropTop,
			CropBottom: cfg.Pipeline.CropBottom,
		}, logger),
		Store:     vs,
		Embedder:  embedder,
		Generator: generator,
		Logger:    logger,
	}
	if counter, err := agent.NewTiktokenCounter(); err != nil {
		logger.Warn("token counting disabled", "err", err)
	} else {
		deps.Counter = counter
	}

	p, err := pipeline.New(cfg.Pipeline, deps)
	if err != nil {
		closeAll(closer)
		return nil, err
	}

	s := NewServer(cfg, p, logger)
	if closer != nil {
		s.closers = append(s.closers, closer)
	}
	logger.Info("summarizer configured",
		"store", cfg.VectorStore,
		"model", cfg.LLM.Model,
		"embedding_model", cfg.LLM.EmbeddingModel,
		"prompt_style", cfg.Pipeline.PromptStyle,
	)
	return s, nil
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store.VectorStore, io.Closer, error) {
	switch cfg.VectorStore {
	case config.StorePgvector:
		pg, err := store.NewPostgresStore(ctx, cfg.Postgres.DSN(), logger)
		if err != nil {
			return nil, nil, fmt.Errorf("error to connect to Postgres database: %w", err)
		}
		if err := pg.Init(ctx); err != nil {
			pg.Close()
			return nil, nil, fmt.Errorf("error to create tables: %w", err)
		}
		return pg, pg, nil
	default:
		return store.NewChromemStore(logger), nil, nil
	}
}

func closeAll(closers ...io.Closer) {
	for _, c := range closers {
		if c != nil {
			c.Close()
		}
	}
}

func (s *Server) App() *fiber.App {
	return s.app
}

// Run blocks serving HTTP until Stop is called or the listener fails.
func (s *Server) Run() error {
	s.logger.Info("server started", "addr", s.cfg.ListenAddr)
	if err := s.app.Listen(s.cfg.ListenAddr); err != nil {
		s.logger.Error("error to start server", "error", err.Error())
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)
	closeAll(s.closers...)
	s.logger.Info("server stopped")
	return err
}
