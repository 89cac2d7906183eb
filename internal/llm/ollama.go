package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
)

// OllamaClient talks to a local Ollama server over its JSON HTTP API.
type OllamaClient struct {
	host       string
	priority   []string
	httpClient *http.Client
	logger     *zap.Logger
}

type OllamaConfig struct {
	Host          string
	ModelPriority []string
	Timeout       time.Duration
}

func NewOllamaClient(cfg OllamaConfig, logger *zap.Logger) *OllamaClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	host := strings.TrimRight(strings.TrimSpace(cfg.Host), "/")
	if host == "" {
		host = "http://127.0.0.1:11434"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &OllamaClient{
		host:       host,
		priority:   cfg.ModelPriority,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type ollamaTags struct {
	Models []struct {
		Model string `json:"model"`
	} `json:"models"`
}

// ListModels returns installed model names; errors yield an empty list.
func (c *OllamaClient) ListModels(ctx context.Context) []string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/api/tags", nil)
	if err != nil {
		return nil
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("ollama tags failed", zap.Error(err))
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil
	}
	var tags ollamaTags
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil
	}
	out := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		out = append(out, m.Model)
	}
	return out
}

// PickModel returns the first installed model in priority order, else any installed model.
func (c *OllamaClient) PickModel(ctx context.Context) (string, error) {
	have := c.ListModels(ctx)
	for _, m := range c.priority {
		if slices.Contains(have, m) {
			return m, nil
		}
	}
	if len(have) > 0 {
		return have[0], nil
	}
	return "", fmt.Errorf("%w: run `ollama pull llama3.2:latest`", ErrNoModel)
}

type ollamaChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Format   string    `json:"format,omitempty"`
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

func (c *OllamaClient) Complete(ctx context.Context, req Request) (string, error) {
	model, err := c.PickModel(ctx)
	if err != nil {
		return "", err
	}

	msgs := make([]Message, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, Message{Role: "system", Content: req.System})
	}
	msgs = append(msgs, req.Messages...)

	body := ollamaChatRequest{Model: model, Messages: msgs}
	if req.JSON {
		body.Format = "json"
	}
	b, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("ollama chat: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("ollama chat: decode: %w", err)
	}
	c.logger.Debug("ollama chat",
		zap.String("model", model),
		zap.Int("messages", len(msgs)),
		zap.Duration("took", time.Since(start)))

	if strings.TrimSpace(out.Message.Content) == "" {
		return "", ErrEmptyContent
	}
	return out.Message.Content, nil
}
