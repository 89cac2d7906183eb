// Package llm is the transport to a chat-style text model. It knows nothing
// about tasks; generator, grader and chat build prompts on top of it.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Request struct {
	System   string
	Messages []Message
	// JSON asks the model for a single JSON object when the backend supports it.
	JSON bool
}

type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

var (
	ErrNoModel      = errors.New("no model available")
	ErrDisabled     = errors.New("llm provider disabled")
	ErrUnparseable  = errors.New("model output is not valid JSON")
	ErrEmptyContent = errors.New("model returned empty content")
)

// ExtractJSON returns the span from the first '{' to the last '}' of content,
// or content itself when no such span exists.
func ExtractJSON(content string) string {
	a := strings.Index(content, "{")
	b := strings.LastIndex(content, "}")
	if a != -1 && b > a {
		return content[a : b+1]
	}
	return content
}

// DecodeJSON extracts and decodes the JSON object in content into out.
func DecodeJSON(content string, out any) error {
	if err := json.Unmarshal([]byte(ExtractJSON(content)), out); err != nil {
		return fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	return nil
}

// CompleteJSON sends a single-turn prompt and decodes the JSON reply into out.
// schemaHint, when set, is appended to the user prompt.
func CompleteJSON(ctx context.Context, c Client, system, user, schemaHint string, out any) error {
	if schemaHint != "" {
		user += "\n\nReturn ONLY JSON matching this shape (no code fences, no commentary):\n" + schemaHint
	}
	content, err := c.Complete(ctx, Request{
		System:   system,
		Messages: []Message{{Role: RoleUser, Content: user}},
		JSON:     true,
	})
	if err != nil {
		return err
	}
	return DecodeJSON(content, out)
}

// Disabled is the client used when no provider is configured; every call fails.
type Disabled struct{}

func (Disabled) Complete(context.Context, Request) (string, error) {
	return "", ErrDisabled
}
