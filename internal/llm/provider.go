// Package llm provides a small chat-completion interface with Gemini and
// Ollama backends. The digest job uses it to summarize market news.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/signalist/signalist/internal/config"
)

// Provider names for configuration.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// Common errors returned by LLM providers.
var (
	ErrNoAPIKey      = errors.New("llm: API key not configured")
	ErrRateLimit     = errors.New("llm: rate limit exceeded")
	ErrProviderDown  = errors.New("llm: provider unavailable")
	ErrInvalidModel  = errors.New("llm: invalid model")
	ErrEmptyResponse = errors.New("llm: empty response")
)

// Role represents the role of a message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single message in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Response represents a complete response from the LLM.
type Response struct {
	Content  string        `json:"content"`
	Usage    Usage         `json:"usage"`
	Model    string        `json:"model"`
	Provider string        `json:"provider"`
	Latency  time.Duration `json:"latency"`
}

// Usage tracks token consumption for a request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatOptions configures a single chat request.
type ChatOptions struct {
	Model       string  `json:"model,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// Provider is the interface every LLM backend implements.
type Provider interface {
	// Name returns the provider identifier ("gemini", "ollama").
	Name() string

	// Chat sends a conversation and returns a complete response.
	Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error)

	// Ping checks that the provider is reachable and the key is valid.
	Ping(ctx context.Context) error
}

// DefaultModel returns the model a provider uses when none is configured.
func DefaultModel(provider string) string {
	if strings.EqualFold(provider, ProviderOllama) {
		return DefaultOllamaModel
	}
	return DefaultGeminiModel
}

// New builds the provider selected by cfg.Provider. An empty cfg.Model
// leaves the provider on its own default.
func New(cfg config.LLMConfig) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderGemini:
		var opts []GeminiOption
		if cfg.Model != "" {
			opts = append(opts, WithGeminiModel(cfg.Model))
		}
		p, err := NewGeminiProvider(cfg.GeminiKey, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	case ProviderOllama:
		var opts []OllamaOption
		if cfg.Model != "" {
			opts = append(opts, WithOllamaModel(cfg.Model))
		}
		p, err := NewOllamaProvider(cfg.OllamaURL, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// String returns a human-readable summary of the response.
func (r *Response) String() string {
	truncated := r.Content
	if len(truncated) > 100 {
		truncated = truncated[:100] + "..."
	}
	return fmt.Sprintf("[%s/%s] %q, %d tokens, %v",
		r.Provider, r.Model, truncated, r.Usage.TotalTokens, r.Latency.Round(time.Millisecond))
}

// IsRetryable reports whether err is worth retrying. Missing keys, bad
// model names and empty replies are permanent.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNoAPIKey) || errors.Is(err, ErrInvalidModel) || errors.Is(err, ErrEmptyResponse) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
