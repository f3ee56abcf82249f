package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalist/signalist/internal/config"
)

// ════════════════════════════════════════════════════════════════════
// provider.go
// ════════════════════════════════════════════════════════════════════

func TestUserMessage(t *testing.T) {
	user := UserMessage("summarize")
	assert.Equal(t, RoleUser, user.Role)
	assert.Equal(t, "summarize", user.Content)
}

func TestDefaultModel(t *testing.T) {
	assert.Equal(t, DefaultGeminiModel, DefaultModel(""))
	assert.Equal(t, DefaultGeminiModel, DefaultModel("gemini"))
	assert.Equal(t, DefaultOllamaModel, DefaultModel("Ollama"))
}

func TestResponseString(t *testing.T) {
	r := &Response{
		Content:  strings.Repeat("x", 150),
		Model:    "gemini-2.5-flash-lite",
		Provider: "gemini",
		Usage:    Usage{TotalTokens: 42},
		Latency:  1500 * time.Millisecond,
	}
	s := r.String()
	assert.Contains(t, s, "[gemini/gemini-2.5-flash-lite]")
	assert.Contains(t, s, "...")
	assert.Contains(t, s, "42 tokens")
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(ErrNoAPIKey))
	assert.False(t, IsRetryable(ErrInvalidModel))
	assert.False(t, IsRetryable(fmt.Errorf("ollama: %w", ErrEmptyResponse)))
	assert.False(t, IsRetryable(context.Canceled))
	assert.True(t, IsRetryable(ErrRateLimit))
	assert.True(t, IsRetryable(ErrProviderDown))
	assert.True(t, IsRetryable(errors.New("gemini: HTTP 500")))
}

func TestNewFromConfig(t *testing.T) {
	p, err := New(config.LLMConfig{Provider: "gemini", GeminiKey: "gm-key", Model: "gemini-2.5-pro"})
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, p.Name())
	assert.Equal(t, "gemini-2.5-pro", p.(*GeminiProvider).model)

	p, err = New(config.LLMConfig{Provider: "Ollama", OllamaURL: "http://ollama:11434/"})
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, p.Name())
	assert.Equal(t, "http://ollama:11434", p.(*OllamaProvider).baseURL)

	p, err = New(config.LLMConfig{Provider: "gemini", GeminiKey: "gm-key"})
	require.NoError(t, err)
	assert.Equal(t, DefaultGeminiModel, p.(*GeminiProvider).model)

	_, err = New(config.LLMConfig{Provider: "gemini"})
	assert.ErrorIs(t, err, ErrNoAPIKey)

	_, err = New(config.LLMConfig{Provider: "openai"})
	assert.Error(t, err)
}

func TestNewFromDefaultConfigOllamaModel(t *testing.T) {
	var (
		mu  sync.Mutex
		got ollamaChatRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		_ = json.NewDecoder(r.Body).Decode(&got)
		mu.Unlock()
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"ok"},"done":true}`))
	}))
	defer server.Close()

	t.Setenv("SIGNALIST_LLM_MODEL", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "llm:\n  provider: ollama\n  ollama_url: " + server.URL + "\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	cfg, err := config.LoadFromFile(path)
	require.NoError(t, err)

	p, err := New(cfg.LLM)
	require.NoError(t, err)
	resp, err := p.Chat(context.Background(), []Message{UserMessage("hi")}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultOllamaModel, resp.Model)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, DefaultOllamaModel, got.Model)
}

// ════════════════════════════════════════════════════════════════════
// gemini.go
// ════════════════════════════════════════════════════════════════════

func TestGeminiProviderNew(t *testing.T) {
	_, err := NewGeminiProvider("")
	assert.ErrorIs(t, err, ErrNoAPIKey)

	p, err := NewGeminiProvider("test-key")
	require.NoError(t, err)
	assert.Equal(t, DefaultGeminiModel, p.model)
}

func TestGeminiChat(t *testing.T) {
	var (
		mu  sync.Mutex
		got geminiRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-2.5-flash-lite:generateContent") {
			http.Error(w, "bad path "+r.URL.Path, http.StatusTeapot)
			return
		}
		if r.URL.Query().Get("key") != "gem-key" {
			http.Error(w, "missing key", http.StatusTeapot)
			return
		}
		mu.Lock()
		_ = json.NewDecoder(r.Body).Decode(&got)
		mu.Unlock()

		_ = json.NewEncoder(w).Encode(geminiResponse{
			Candidates: []geminiCandidate{{
				Content:      geminiContent{Role: "model", Parts: []geminiPart{{Text: "Stocks rallied "}, {Text: "on earnings."}}},
				FinishReason: "STOP",
			}},
			UsageMetadata: geminiUsageMetadata{PromptTokenCount: 10, CandidatesTokenCount: 8, TotalTokenCount: 18},
		})
	}))
	defer server.Close()

	p, _ := NewGeminiProvider("gem-key")
	p.baseURL = server.URL

	resp, err := p.Chat(context.Background(),
		[]Message{{Role: RoleSystem, Content: "Market analyst"}, UserMessage("Summarize today's news")},
		&ChatOptions{Temperature: 0.3, MaxTokens: 512})
	require.NoError(t, err)
	assert.Equal(t, "Stocks rallied on earnings.", resp.Content)
	assert.Equal(t, ProviderGemini, resp.Provider)
	assert.Equal(t, 18, resp.Usage.TotalTokens)

	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, got.SystemInstruction)
	assert.Equal(t, "Market analyst", got.SystemInstruction.Parts[0].Text)
	require.Len(t, got.Contents, 1)
	assert.Equal(t, "user", got.Contents[0].Role)
	require.NotNil(t, got.GenerationConfig)
	assert.Equal(t, 512, got.GenerationConfig.MaxOutputTokens)
}

func TestGeminiChatErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"forbidden", http.StatusForbidden, `{"error":{"code":403,"message":"API key not valid"}}`, ErrNoAPIKey},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"code":429,"message":"quota"}}`, ErrRateLimit},
		{"bad model", http.StatusNotFound, `{"error":{"code":404,"message":"model not found"}}`, ErrInvalidModel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			p, _ := NewGeminiProvider("gem-key")
			p.baseURL = server.URL
			_, err := p.Chat(context.Background(), []Message{UserMessage("hi")}, nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGeminiChatPlainError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer server.Close()

	p, _ := NewGeminiProvider("gem-key")
	p.baseURL = server.URL
	_, err := p.Chat(context.Background(), []Message{UserMessage("hi")}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 502")
	assert.True(t, IsRetryable(err))
}

func TestGeminiChatEmptyResponse(t *testing.T) {
	bodies := map[string]string{
		"no candidates": `{"candidates":[]}`,
		"blank text":    `{"candidates":[{"content":{"role":"model","parts":[{"text":"  "}]},"finishReason":"SAFETY"}]}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer server.Close()

			p, _ := NewGeminiProvider("gem-key")
			p.baseURL = server.URL
			_, err := p.Chat(context.Background(), []Message{UserMessage("hi")}, nil)
			assert.ErrorIs(t, err, ErrEmptyResponse)
			assert.False(t, IsRetryable(err))
		})
	}
}

func TestGeminiPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "good" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer server.Close()

	p, _ := NewGeminiProvider("good")
	p.baseURL = server.URL
	assert.NoError(t, p.Ping(context.Background()))

	bad, _ := NewGeminiProvider("bad")
	bad.baseURL = server.URL
	assert.ErrorIs(t, bad.Ping(context.Background()), ErrNoAPIKey)
}

func TestGeminiRedactsKey(t *testing.T) {
	p, _ := NewGeminiProvider("secret-key-123")
	p.baseURL = "http://127.0.0.1:1"
	_, err := p.Chat(context.Background(), []Message{UserMessage("hi")}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderDown)
	assert.NotContains(t, err.Error(), "secret-key-123")
}

func TestBuildGeminiRequestRoles(t *testing.T) {
	r := buildGeminiRequest([]Message{
		UserMessage("q1"),
		{Role: RoleAssistant, Content: "a1"},
		UserMessage("q2"),
	}, nil)
	require.Len(t, r.Contents, 3)
	assert.Equal(t, "model", r.Contents[1].Role)
	assert.Nil(t, r.SystemInstruction)
	assert.Nil(t, r.GenerationConfig)
}

// ════════════════════════════════════════════════════════════════════
// ollama.go
// ════════════════════════════════════════════════════════════════════

func TestOllamaProviderNew(t *testing.T) {
	p, err := NewOllamaProvider("", WithOllamaModel("qwen2.5:7b"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434", p.baseURL)
	assert.Equal(t, "qwen2.5:7b", p.model)
	assert.Equal(t, "ollama", p.Name())
}

func TestOllamaChat(t *testing.T) {
	var (
		mu  sync.Mutex
		got ollamaChatRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		mu.Lock()
		_ = json.NewDecoder(r.Body).Decode(&got)
		mu.Unlock()

		_ = json.NewEncoder(w).Encode(ollamaChatResponse{
			Model:           "qwen2.5:7b",
			Message:         ollamaMessage{Role: "assistant", Content: "Tech led the market higher."},
			Done:            true,
			PromptEvalCount: 15,
			EvalCount:       8,
		})
	}))
	defer server.Close()

	p, _ := NewOllamaProvider(server.URL, WithOllamaModel("qwen2.5:7b"))
	resp, err := p.Chat(context.Background(), []Message{UserMessage("Summarize")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Tech led the market higher.", resp.Content)
	assert.Equal(t, 23, resp.Usage.TotalTokens)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "qwen2.5:7b", got.Model)
	assert.False(t, got.Stream)
	assert.Nil(t, got.Options)
}

func TestOllamaChatUnknownModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	p, _ := NewOllamaProvider(server.URL)
	_, err := p.Chat(context.Background(), []Message{UserMessage("hi")}, nil)
	assert.ErrorIs(t, err, ErrInvalidModel)
}

func TestOllamaChatEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":""},"done":true}`))
	}))
	defer server.Close()

	p, _ := NewOllamaProvider(server.URL)
	_, err := p.Chat(context.Background(), []Message{UserMessage("hi")}, nil)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOllamaPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models":[]}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	p, _ := NewOllamaProvider(server.URL)
	assert.NoError(t, p.Ping(context.Background()))
}
