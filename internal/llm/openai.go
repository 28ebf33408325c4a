package llm

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/gilbertlabs/gilbert/internal/config"
)

// OpenAI implements Provider on the official OpenAI Go SDK.
// A custom base URL makes it usable against any OpenAI-compatible endpoint.
type OpenAI struct {
	client    openai.Client
	model     string
	maxTokens int
}

// NewOpenAI creates a provider from configuration.
func NewOpenAI(cfg config.OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o"
	}

	return &OpenAI{
		client:    openai.NewClient(opts...),
		model:     model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

// Name returns the backend identifier.
func (p *OpenAI) Name() string {
	return "openai"
}

// Complete sends a chat completion request and returns the first choice's text.
func (p *OpenAI) Complete(ctx context.Context, messages []Message, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = p.maxTokens
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.model),
		Messages: toOpenAIMessages(messages),
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", wrapErr(p.Name(), err)
	}
	if len(completion.Choices) == 0 {
		return "", wrapErr(p.Name(), errors.New("empty completion response"))
	}

	return completion.Choices[0].Message.Content, nil
}

// Ping verifies credentials and reachability with a lightweight model listing.
func (p *OpenAI) Ping(ctx context.Context) error {
	_, err := p.client.Models.List(ctx)
	return wrapErr(p.Name(), err)
}

// toOpenAIMessages converts our message format to the SDK's union type.
func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}
