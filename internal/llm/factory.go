package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

type Settings struct {
	Provider string
	Ollama   OllamaConfig
	Gemini   GeminiConfig
}

// Open returns the client for s.Provider: ollama (default), gemini or none.
func Open(ctx context.Context, s Settings, logger *zap.Logger) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(s.Provider)) {
	case "", "ollama":
		return NewOllamaClient(s.Ollama, logger), nil
	case "gemini":
		return NewGeminiClient(ctx, s.Gemini, logger)
	case "none", "off":
		return Disabled{}, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", s.Provider)
	}
}
