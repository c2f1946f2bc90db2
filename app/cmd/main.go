package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"docsum/app/server"
	"docsum/config"
)

func init() {
	loadEnvVariables()
}

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal("error to load configuration: ", err)
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	s, err := server.New(context.Background(), cfg, logger)
	if err != nil {
		log.Fatal("error to build server: ", err)
	}

	go func() {
		if err := s.Run(); err != nil {
			log.Fatal("server failed: ", err)
		}
	}()

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
	<-sigch
	logger.Info("received shutdown signal, shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
}

// loadEnvVariables reads .env when present. Plain environment variables work without it.
func loadEnvVariables() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatal("Error loading .env file: ", err)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
