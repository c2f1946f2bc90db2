package model

import (
	"fmt"

	"github.com/tmc/langchaingo/llms/ollama"
)

// NewOllamaClient returns a langchaingo Ollama client bound to one model. The same
// client type serves both generation and embeddings.
func NewOllamaClient(serverURL, modelName string) (*ollama.LLM, error) {
	if modelName == "" {
		return nil, fmt.Errorf("ollama model name is empty")
	}
	llm, err := ollama.New(
		ollama.WithServerURL(serverURL),
		ollama.WithModel(modelName),
	)
	if err != nil {
		return nil, fmt.Errorf("create ollama client for %s: %w", modelName, err)
	}
	return llm, nil
}
