package openai

import (
	"context"
	"errors"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// ErrNoChoices is returned when a chat completion has no choices.
var ErrNoChoices = errors.New("openai: no choices in chat completion")

const (
	defaultChatModel   = "llama-3.1-8b-instant"
	defaultTemperature = 0.2
	defaultMaxTokens   = 300
)

// ChatClient calls an OpenAI-compatible chat completions endpoint (default Groq).
type ChatClient struct {
	sdk         openaisdk.Client
	model       string
	temperature float64
	maxTokens   int64
}

// ChatOption configures the ChatClient.
type ChatOption func(*chatSettings)

type chatSettings struct {
	baseURL     string
	model       string
	temperature float64
	maxTokens   int64
	extra       []option.RequestOption
}

// WithChatBaseURL points the client at an OpenAI-compatible API root.
func WithChatBaseURL(url string) ChatOption {
	return func(s *chatSettings) {
		s.baseURL = url
	}
}

// WithChatModel sets the chat model. Empty uses the default.
func WithChatModel(model string) ChatOption {
	return func(s *chatSettings) {
		if model != "" {
			s.model = model
		}
	}
}

// WithChatRequestOptions appends raw SDK request options.
func WithChatRequestOptions(opts ...option.RequestOption) ChatOption {
	return func(s *chatSettings) {
		s.extra = append(s.extra, opts...)
	}
}

// NewChatClient creates a chat completions client with temperature 0.2 and a 300 token cap.
func NewChatClient(apiKey string, opts ...ChatOption) *ChatClient {
	settings := chatSettings{
		model:       defaultChatModel,
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
	}

	for _, opt := range opts {
		opt(&settings)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if settings.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(settings.baseURL))
	}

	reqOpts = append(reqOpts, settings.extra...)

	return &ChatClient{
		sdk:         openaisdk.NewClient(reqOpts...),
		model:       settings.model,
		temperature: settings.temperature,
		maxTokens:   settings.maxTokens,
	}
}

// Generate runs one system+user completion and returns the first choice's content.
// Empty content is returned as "" without error; the caller decides the fallback.
func (c *ChatClient) Generate(ctx context.Context, system, user string) (string, error) {
	resp, err := c.sdk.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(system),
			openaisdk.UserMessage(user),
		},
		Model:       openaisdk.ChatModel(c.model),
		Temperature: openaisdk.Float(c.temperature),
		MaxTokens:   openaisdk.Int(c.maxTokens),
	})
	if err != nil {
		return "", upstreamError("chat", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	return resp.Choices[0].Message.Content, nil
}
