package service

import (
	"context"
	"fmt"

	"github.com/formbricks/support-hub/internal/models"
)

// DefaultSupportLogLimit is the page size when the caller sets none.
const DefaultSupportLogLimit = 50

// SupportLogReader lists answered questions.
type SupportLogReader interface {
	List(ctx context.Context, filters *models.ListSupportLogFilters) ([]models.SupportLogEntry, error)
}

// SupportLogService serves the support log listing.
type SupportLogService struct {
	repo SupportLogReader
}

// NewSupportLogService creates a new support log service.
func NewSupportLogService(repo SupportLogReader) *SupportLogService {
	return &SupportLogService{repo: repo}
}

// List returns one page of entries, newest first.
func (s *SupportLogService) List(
	ctx context.Context, filters *models.ListSupportLogFilters,
) (*models.ListSupportLogResponse, error) {
	if filters.Limit <= 0 {
		filters.Limit = DefaultSupportLogLimit
	}

	entries, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("list support log: %w", err)
	}

	if entries == nil {
		entries = []models.SupportLogEntry{}
	}

	return &models.ListSupportLogResponse{
		Data:   entries,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	}, nil
}
