package service

import "context"

// EmbeddingClient generates embedding vectors for text.
// Implemented by provider-specific clients (OpenAI-compatible, Google Gemini).
type EmbeddingClient interface {
	CreateEmbedding(ctx context.Context, input string) ([]float32, error)
}

// Generator produces a chat completion for a system and a user message.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}
