// Package config reads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	StoreMemory   = "memory"
	StorePgvector = "pgvector"
)

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// DSN builds a libpq-style connection string the same way for the server and tests.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		p.Host, p.Port, p.User, p.Password, p.DBName)
}

type LLMConfig struct {
	URL            string  `validate:"required,url"`
	Model          string  `validate:"required"`
	EmbeddingModel string  `validate:"required"`
	Temperature    float64 `validate:"gte=0,lte=2"`
}

type PipelineConfig struct {
	ChunkSize        int     `validate:"gte=3"`
	ChunkOverlap     int     `validate:"gte=0,ltfield=ChunkSize"`
	RetrievalK       int     `validate:"gt=0"`
	FetchK           int     `validate:"gt=0"`
	Lambda           float64 `validate:"gt=0,lt=1"`
	PromptStyle      string  `validate:"oneof=brief study"`
	PromptLanguage   string  `validate:"required"`
	Question         string  `validate:"required"`
	MaxContextTokens int     `validate:"gte=0"`
	CropTop          float64 `validate:"gte=0"`
	CropBottom       float64 `validate:"gte=0"`
}

type Config struct {
	ListenAddr     string `validate:"required"`
	StaticDir      string
	BodyLimit      int           `validate:"gt=10485760"`
	RequestTimeout time.Duration `validate:"gte=0"`
	LogLevel       string        `validate:"oneof=debug info warn error"`
	LogFormat      string        `validate:"oneof=text json"`
	VectorStore    string        `validate:"oneof=memory pgvector"`

	LLM      LLMConfig
	Pipeline PipelineConfig
	Postgres PostgresConfig
}

// Default mirrors the values the summarizer has always shipped with.
func Default() Config {
	return Config{
		ListenAddr:  ":5000",
		StaticDir:   "./web",
		BodyLimit:   32 << 20,
		LogLevel:    "info",
		LogFormat:   "text",
		VectorStore: StoreMemory,
		LLM: LLMConfig{
			URL:            "http://localhost:11434",
			Model:          "llama3.2",
			EmbeddingModel: "nomic-embed-text",
			Temperature:    0.2,
		},
		Pipeline: PipelineConfig{
			ChunkSize:      1200,
			ChunkOverlap:   300,
			RetrievalK:     5,
			FetchK:         20,
			Lambda:         0.5,
			PromptStyle:    "brief",
			PromptLanguage: "English",
			Question:       "Summarize the document.",
		},
		Postgres: PostgresConfig{
			Host:   "localhost",
			Port:   5432,
			User:   "postgres",
			DBName: "docsum",
		},
	}
}

// FromEnv overlays environment variables on Default and validates the result.
func FromEnv() (Config, error) {
	cfg := Default()
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("SERVER_ADDR", &cfg.ListenAddr)
	str("STATIC_DIR", &cfg.StaticDir)
	num("BODY_LIMIT", &cfg.BodyLimit)
	duration("REQUEST_TIMEOUT", &cfg.RequestTimeout)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)
	str("VECTOR_STORE", &cfg.VectorStore)

	str("OLLAMA_URL", &cfg.LLM.URL)
	str("LLM_MODEL", &cfg.LLM.Model)
	str("EMBEDDING_MODEL", &cfg.LLM.EmbeddingModel)
	float("LLM_TEMPERATURE", &cfg.LLM.Temperature)

	num("CHUNK_SIZE", &cfg.Pipeline.ChunkSize)
	num("CHUNK_OVERLAP", &cfg.Pipeline.ChunkOverlap)
	num("RETRIEVAL_K", &cfg.Pipeline.RetrievalK)
	num("RETRIEVAL_FETCH_K", &cfg.Pipeline.FetchK)
	float("MMR_LAMBDA", &cfg.Pipeline.Lambda)
	str("PROMPT_STYLE", &cfg.Pipeline.PromptStyle)
	str("PROMPT_LANGUAGE", &cfg.Pipeline.PromptLanguage)
	str("SUMMARY_QUESTION", &cfg.Pipeline.Question)
	num("MAX_CONTEXT_TOKENS", &cfg.Pipeline.MaxContextTokens)
	float("PDF_CROP_TOP", &cfg.Pipeline.CropTop)
	float("PDF_CROP_BOTTOM", &cfg.Pipeline.CropBottom)

	str("PG_HOST", &cfg.Postgres.Host)
	num("PG_PORT", &cfg.Postgres.Port)
	str("PG_USER", &cfg.Postgres.User)
	str("PG_PASS", &cfg.Postgres.Password)
	str("PG_DB_NAME", &cfg.Postgres.DBName)

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("parse config: %w", errors.Join(errs...))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			msgs := make(map[string]string, len(errs))
			for _, e := range errs {
				msgs[e.Namespace()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
			}
			return fmt.Errorf("invalid config: %v", msgs)
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
