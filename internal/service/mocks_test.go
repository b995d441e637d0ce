package service

import (
	"context"
	"sync"

	"github.com/formbricks/support-hub/internal/huberrors"
	"github.com/formbricks/support-hub/internal/models"
)

type mockEmbeddingClient struct {
	createFunc func(ctx context.Context, input string) ([]float32, error)
}

func (m *mockEmbeddingClient) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, input)
	}

	return []float32{1, 0, 0}, nil
}

type mockVectorizer struct {
	embedFunc func(ctx context.Context, text string) ([]float32, error)
	calls     int
}

func (m *mockVectorizer) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls++

	if m.embedFunc != nil {
		return m.embedFunc(ctx, text)
	}

	return []float32{1, 0, 0}, nil
}

type mockRetriever struct {
	matchFunc  func(ctx context.Context, embedding []float32, matchCount int, threshold float64) ([]models.MatchCandidate, error)
	anchorFunc func(ctx context.Context, anchor string) (*models.MatchCandidate, error)
}

func (m *mockRetriever) MatchFAQs(
	ctx context.Context, embedding []float32, matchCount int, threshold float64,
) ([]models.MatchCandidate, error) {
	if m.matchFunc != nil {
		return m.matchFunc(ctx, embedding, matchCount, threshold)
	}

	return nil, nil
}

func (m *mockRetriever) FindByAnchor(ctx context.Context, anchor string) (*models.MatchCandidate, error) {
	if m.anchorFunc != nil {
		return m.anchorFunc(ctx, anchor)
	}

	return nil, huberrors.NewNotFoundError("faq", "")
}

type mockGenerator struct {
	generateFunc func(ctx context.Context, system, user string) (string, error)
	calls        int
}

func (m *mockGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	m.calls++

	if m.generateFunc != nil {
		return m.generateFunc(ctx, system, user)
	}

	return "", nil
}

// recordingSink collects logged entries synchronously.
type recordingSink struct {
	mu      sync.Mutex
	entries []models.SupportLogEntry
}

func (s *recordingSink) Log(_ context.Context, entry models.SupportLogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, entry)
}

func (s *recordingSink) all() []models.SupportLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]models.SupportLogEntry(nil), s.entries...)
}

type mockSupportLogWriter struct {
	insertFunc func(ctx context.Context, entry *models.SupportLogEntry) error
}

func (m *mockSupportLogWriter) Insert(ctx context.Context, entry *models.SupportLogEntry) error {
	if m.insertFunc != nil {
		return m.insertFunc(ctx, entry)
	}

	return nil
}
