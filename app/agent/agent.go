package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"

	"docsum/model"
	"docsum/types"
)

// Generator produces the answer for a rendered prompt in a single call.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type OllamaGenerator struct {
	llm         llms.Model
	temperature float64
	logger      *slog.Logger
}

func NewGenerator(llm llms.Model, temperature float64, logger *slog.Logger) *OllamaGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &OllamaGenerator{
		llm:         llm,
		temperature: temperature,
		logger:      logger,
	}
}

func NewOllamaGenerator(serverURL, modelName string, temperature float64, logger *slog.Logger) (*OllamaGenerator, error) {
	llm, err := model.NewOllamaClient(serverURL, modelName)
	if err != nil {
		return nil, err
	}
	return NewGenerator(llm, temperature, logger), nil
}

func (g *OllamaGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	defer func() {
		g.logger.Debug("llm answer", "took", time.Since(start))
	}()

	answer, err := llms.GenerateFromSinglePrompt(ctx, g.llm, prompt, llms.WithTemperature(g.temperature))
	if err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrGenerationFailed, err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", fmt.Errorf("%w: empty answer", types.ErrGenerationFailed)
	}
	return answer, nil
}
