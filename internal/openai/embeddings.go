// Package openai wraps the official OpenAI Go SDK for OpenAI-compatible embedding and chat endpoints
// (Jina, Groq, OpenAI). SDK retries are disabled; callers own the retry policy.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"

	"github.com/formbricks/support-hub/internal/huberrors"
	"github.com/formbricks/support-hub/pkg/embeddings"
)

var (
	// ErrEmptyInput is returned when an embedding is requested for empty input.
	ErrEmptyInput = errors.New("openai: input text is empty")
	// ErrInvalidDims is returned when dimensions is not positive.
	ErrInvalidDims = errors.New("openai: embedding dimensions must be positive")
	// ErrNoEmbeddingInResponse is returned when the API response contains no embedding data.
	ErrNoEmbeddingInResponse = errors.New("openai: no embedding in response")
	// ErrDimensionMismatch is returned when the response embedding length does not match configured dimensions.
	ErrDimensionMismatch = errors.New("openai: embedding dimension mismatch")
)

const (
	defaultEmbeddingModel = "jina-embeddings-v3"
	defaultDimension      = 1024
)

// EmbeddingClient calls an OpenAI-compatible embeddings endpoint.
type EmbeddingClient struct {
	sdk        openaisdk.Client
	model      string
	dimensions int
}

// EmbeddingOption configures the EmbeddingClient.
type EmbeddingOption func(*embeddingSettings)

type embeddingSettings struct {
	baseURL    string
	model      string
	dimensions int
	extra      []option.RequestOption
}

// WithBaseURL points the client at an OpenAI-compatible API root, e.g. https://api.jina.ai/v1.
func WithBaseURL(url string) EmbeddingOption {
	return func(s *embeddingSettings) {
		s.baseURL = url
	}
}

// WithModel sets the embedding model name. Empty uses the default.
func WithModel(model string) EmbeddingOption {
	return func(s *embeddingSettings) {
		if model != "" {
			s.model = model
		}
	}
}

// WithDimensions sets the requested embedding dimension (must match DB column).
func WithDimensions(dim int) EmbeddingOption {
	return func(s *embeddingSettings) {
		s.dimensions = dim
	}
}

// WithRequestOptions appends raw SDK request options (used by tests to swap the HTTP client).
func WithRequestOptions(opts ...option.RequestOption) EmbeddingOption {
	return func(s *embeddingSettings) {
		s.extra = append(s.extra, opts...)
	}
}

// NewEmbeddingClient creates an embeddings client. Jina-specific body fields
// (embedding_type, normalized) are sent on every request; other providers ignore them.
func NewEmbeddingClient(apiKey string, opts ...EmbeddingOption) *EmbeddingClient {
	settings := embeddingSettings{
		model:      defaultEmbeddingModel,
		dimensions: defaultDimension,
	}

	for _, opt := range opts {
		opt(&settings)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithJSONSet("embedding_type", "float"),
		option.WithJSONSet("normalized", true),
	}
	if settings.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(settings.baseURL))
	}

	reqOpts = append(reqOpts, settings.extra...)

	return &EmbeddingClient{
		sdk:        openaisdk.NewClient(reqOpts...),
		model:      settings.model,
		dimensions: settings.dimensions,
	}
}

// CreateEmbedding returns the embedding vector for a single text.
func (c *EmbeddingClient) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	vectors, err := c.CreateEmbeddings(ctx, []string{input})
	if err != nil {
		return nil, err
	}

	return vectors[0], nil
}

// CreateEmbeddings embeds a batch of texts in one request. Results follow input order.
// Non-2xx responses are returned as *huberrors.UpstreamError carrying the status code.
func (c *EmbeddingClient) CreateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, ErrEmptyInput
	}

	trimmed := make([]string, len(inputs))
	for i, in := range inputs {
		trimmed[i] = strings.TrimSpace(in)
		if trimmed[i] == "" {
			return nil, ErrEmptyInput
		}
	}

	if c.dimensions <= 0 {
		return nil, ErrInvalidDims
	}

	resp, err := c.sdk.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: trimmed,
		},
		Model:      openaisdk.EmbeddingModel(c.model),
		Dimensions: param.NewOpt(int64(c.dimensions)),
	})
	if err != nil {
		return nil, upstreamError("embeddings", err)
	}

	if len(resp.Data) < len(trimmed) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrNoEmbeddingInResponse, len(resp.Data), len(trimmed))
	}

	out := make([][]float32, len(trimmed))

	for i, d := range resp.Data {
		idx := int(d.Index)
		if idx < 0 || idx >= len(out) {
			idx = i
		}

		if len(d.Embedding) != c.dimensions {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(d.Embedding), c.dimensions)
		}

		out[idx] = embeddings.FromFloat64(d.Embedding)
	}

	for _, vec := range out {
		if vec == nil {
			return nil, ErrNoEmbeddingInResponse
		}
	}

	return out, nil
}

// upstreamError attaches the HTTP status of SDK API errors so retry policies can classify them.
func upstreamError(provider string, err error) error {
	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) {
		return huberrors.NewUpstreamError(provider, apiErr.StatusCode, err)
	}

	return huberrors.NewUpstreamError(provider, 0, err)
}
