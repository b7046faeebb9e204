// Package llm turns source code into PlantUML activity diagrams and parameter
// summaries with a chat language model.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"github.com/ironsheep/doc-tools-mcp/internal/config"
)

// DashScopeErrorDocs lists DashScope error codes; it is quoted in errors from
// that endpoint.
const DashScopeErrorDocs = "https://help.aliyun.com/zh/model-studio/developer-reference/error-code"

// ErrNoAPIKey is returned when a provider is built without credentials.
var ErrNoAPIKey = errors.New("llm api key is not set")

// Provider sends one system+user exchange and returns the reply text.
type Provider interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// NewProvider builds the provider selected by cfg.Provider.
func NewProvider(ctx context.Context, cfg config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case "", "openai":
		return NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.Model)
	case "gemini":
		return NewGeminiProvider(ctx, cfg.APIKey, cfg.Model)
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
}

// OpenAIProvider talks to any OpenAI-compatible chat completions endpoint,
// DashScope's compatible mode included.
type OpenAIProvider struct {
	client  *openai.Client
	model   string
	baseURL string
}

// NewOpenAIProvider creates a provider. An empty baseURL uses DashScope and an
// empty model uses qwen-plus.
func NewOpenAIProvider(apiKey, baseURL, model string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set llm.api_key or DASHSCOPE_API_KEY", ErrNoAPIKey)
	}
	if baseURL == "" {
		baseURL = config.DashScopeBaseURL
	}
	if model == "" {
		model = config.DefaultOpenAIModel
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &OpenAIProvider{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		baseURL: baseURL,
	}, nil
}

// Complete implements Provider.
func (p *OpenAIProvider) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		if strings.Contains(p.baseURL, "dashscope") {
			return "", fmt.Errorf("chat completion failed (see %s): %w", DashScopeErrorDocs, err)
		}
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// GeminiProvider uses the Gemini API through google.golang.org/genai.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a Gemini provider. An empty model uses
// gemini-2.0-flash.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set llm.api_key or GEMINI_API_KEY", ErrNoAPIKey)
	}
	if model == "" {
		model = config.DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiProvider{client: client, model: model}, nil
}

// Complete implements Provider.
func (p *GeminiProvider) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := p.client.Models.GenerateContent(ctx, p.model,
		[]*genai.Content{genai.NewContentFromText(user, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		},
	)
	if err != nil {
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("gemini returned an empty response")
	}
	return text, nil
}
