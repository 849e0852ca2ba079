// Package planner turns natural-language prompts into validated project plans
// and feature configurations using CloudWeGo Eino chat models.
package planner

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// Provider identifies the LLM provider to use.
type Provider string

const (
	// ProviderOpenAI represents the OpenAI provider
	ProviderOpenAI Provider = "openai"
	// ProviderOllama represents the Ollama provider
	ProviderOllama Provider = "ollama"
	// ProviderAnthropic represents the Anthropic provider
	ProviderAnthropic Provider = "anthropic"
	// ProviderGemini represents the Google Gemini provider
	ProviderGemini Provider = "gemini"

	// DefaultProvider is the default LLM provider
	DefaultProvider = ProviderOllama

	// DefaultOllamaURL is the default URL for a local Ollama server
	DefaultOllamaURL = "http://localhost:11434"

	// defaultClaudeMaxTokens caps Anthropic responses when no limit is set
	defaultClaudeMaxTokens = 4096
)

// Config holds configuration for creating an LLM client.
type Config struct {
	Provider  Provider
	Model     string
	APIKey    string // Required for OpenAI, Anthropic, Gemini
	BaseURL   string // Required for Ollama (default: http://localhost:11434)
	MaxTokens int    // Optional response cap
}

// DefaultModelForProvider returns the default model ID for a given provider.
func DefaultModelForProvider(p Provider) string {
	switch p {
	case ProviderOpenAI:
		return "gpt-4o-mini"
	case ProviderAnthropic:
		return "claude-3-5-sonnet-latest"
	case ProviderGemini:
		return "gemini-2.0-flash"
	case ProviderOllama:
		return "mistral"
	default:
		return ""
	}
}

// ValidateProvider checks if the given provider string is supported.
func ValidateProvider(p string) (Provider, error) {
	switch Provider(p) {
	case ProviderOpenAI:
		return ProviderOpenAI, nil
	case ProviderOllama:
		return ProviderOllama, nil
	case ProviderAnthropic:
		return ProviderAnthropic, nil
	case ProviderGemini:
		return ProviderGemini, nil
	default:
		return "", fmt.Errorf("unsupported provider: %s", p)
	}
}

// NewChatModel creates a ChatModel instance based on the provider configuration.
// It returns an Eino BaseChatModel that can be used for Generate() or Stream() calls.
func NewChatModel(ctx context.Context, cfg Config) (model.BaseChatModel, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModelForProvider(cfg.Provider)
	}

	switch cfg.Provider {
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required")
		}
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			Model:  cfg.Model,
			APIKey: cfg.APIKey,
		})

	case ProviderOllama:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = DefaultOllamaURL
		}
		return ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: baseURL,
			Model:   cfg.Model,
		})

	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic API key is required")
		}
		maxTokens := cfg.MaxTokens
		if maxTokens == 0 {
			maxTokens = defaultClaudeMaxTokens
		}
		return claude.NewChatModel(ctx, &claude.Config{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: maxTokens,
		})

	case ProviderGemini:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini API key is required")
		}
		// The Gemini extension reads its key from the environment
		_ = os.Setenv("GOOGLE_API_KEY", cfg.APIKey)
		_ = os.Setenv("GEMINI_API_KEY", cfg.APIKey)

		return gemini.NewChatModel(ctx, &gemini.Config{
			Model: cfg.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s (supported: openai, ollama, anthropic, gemini)", cfg.Provider)
	}
}

// CloseableChatModel wraps a chat model with resource cleanup.
type CloseableChatModel struct {
	model.BaseChatModel
	closeFn func() error
}

// NewCloseableChatModel creates the provider's chat model behind a closeable
// handle.
func NewCloseableChatModel(ctx context.Context, cfg Config) (*CloseableChatModel, error) {
	m, err := NewChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &CloseableChatModel{BaseChatModel: m}, nil
}

// Close releases provider resources, if the model holds any.
func (m *CloseableChatModel) Close() error {
	if m.closeFn != nil {
		return m.closeFn()
	}
	return nil
}
