package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, ExtractJSON("Sure! ```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":{"b":2}}`, ExtractJSON(`x {"a":{"b":2}} y`))
	assert.Equal(t, "no braces", ExtractJSON("no braces"))
	assert.Equal(t, "} backwards {", ExtractJSON("} backwards {"))
}

func TestDecodeJSON_Unparseable(t *testing.T) {
	var out map[string]any
	err := DecodeJSON("I cannot answer that", &out)
	assert.ErrorIs(t, err, ErrUnparseable)
}

func newFakeOllama(t *testing.T, models []string, reply string) (*httptest.Server, *ollamaChatRequest) {
	t.Helper()
	var last ollamaChatRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		var tags ollamaTags
		for _, m := range models {
			tags.Models = append(tags.Models, struct {
				Model string `json:"model"`
			}{Model: m})
		}
		_ = json.NewEncoder(w).Encode(tags)
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&last))
		var resp ollamaChatResponse
		resp.Message.Content = reply
		_ = json.NewEncoder(w).Encode(resp)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &last
}

func TestOllamaClient_PicksPriorityModelAndSendsSystem(t *testing.T) {
	srv, last := newFakeOllama(t, []string{"mistral:latest", "llama3.2:latest"}, `{"title":"x"}`)
	c := NewOllamaClient(OllamaConfig{Host: srv.URL, ModelPriority: []string{"llama3.2:latest"}}, nil)

	var out struct {
		Title string `json:"title"`
	}
	require.NoError(t, CompleteJSON(context.Background(), c, "JSON only.", "make a task", "type T = {title:string}", &out))
	assert.Equal(t, "x", out.Title)

	assert.Equal(t, "llama3.2:latest", last.Model)
	assert.Equal(t, "json", last.Format)
	assert.False(t, last.Stream)
	require.Len(t, last.Messages, 2)
	assert.Equal(t, Role("system"), last.Messages[0].Role)
	assert.Contains(t, last.Messages[1].Content, "type T = {title:string}")
}

func TestOllamaClient_FallsBackToAnyModel(t *testing.T) {
	srv, last := newFakeOllama(t, []string{"phi3:mini"}, "hello")
	c := NewOllamaClient(OllamaConfig{Host: srv.URL, ModelPriority: []string{"llama3.2:latest"}}, nil)

	out, err := c.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Equal(t, "phi3:mini", last.Model)
	assert.Empty(t, last.Format)
}

func TestOllamaClient_NoModels(t *testing.T) {
	srv, _ := newFakeOllama(t, nil, "")
	c := NewOllamaClient(OllamaConfig{Host: srv.URL}, nil)

	_, err := c.Complete(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrNoModel)
}

func TestOpen_Providers(t *testing.T) {
	ctx := context.Background()

	c, err := Open(ctx, Settings{Provider: "none"}, nil)
	require.NoError(t, err)
	_, err = c.Complete(ctx, Request{})
	assert.ErrorIs(t, err, ErrDisabled)

	c, err = Open(ctx, Settings{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &OllamaClient{}, c)

	_, err = Open(ctx, Settings{Provider: "gemini"}, nil)
	assert.Error(t, err)

	_, err = Open(ctx, Settings{Provider: "gpt"}, nil)
	assert.Error(t, err)
}
