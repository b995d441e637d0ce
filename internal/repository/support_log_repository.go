package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/formbricks/support-hub/internal/models"
)

// SupportLogRepository handles data access for support_log.
type SupportLogRepository struct {
	db *pgxpool.Pool
}

// NewSupportLogRepository creates a new support log repository.
func NewSupportLogRepository(db *pgxpool.Pool) *SupportLogRepository {
	return &SupportLogRepository{db: db}
}

// Insert writes one entry. ID and CreatedAt are set from the database.
func (r *SupportLogRepository) Insert(ctx context.Context, entry *models.SupportLogEntry) error {
	sources := entry.Sources
	if sources == nil {
		sources = []string{}
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO support_log (question, reply, top_sim, used_context, handoff, latency_ms, sources)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		entry.Question, entry.Reply, entry.TopSim, entry.UsedContext, entry.Handoff, entry.LatencyMS, sources,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert support log: %w", err)
	}

	return nil
}

// buildListSupportLogQuery returns the page query for filters, newest first.
func buildListSupportLogQuery(filters *models.ListSupportLogFilters) (query string, args []any) {
	var conditions []string

	argCount := 1

	if filters.Handoff != nil {
		conditions = append(conditions, fmt.Sprintf("handoff = $%d", argCount))
		args = append(args, *filters.Handoff)
		argCount++
	}

	query = `
		SELECT id, question, reply, top_sim, used_context, handoff, latency_ms, sources, created_at
		FROM support_log`

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY created_at DESC"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argCount)
		args = append(args, filters.Limit)
		argCount++
	}

	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argCount)
		args = append(args, filters.Offset)
	}

	return query, args
}

// List returns entries matching filters, newest first.
func (r *SupportLogRepository) List(
	ctx context.Context, filters *models.ListSupportLogFilters,
) ([]models.SupportLogEntry, error) {
	query, args := buildListSupportLogQuery(filters)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list support log: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.SupportLogEntry, error) {
		var e models.SupportLogEntry
		err := row.Scan(&e.ID, &e.Question, &e.Reply, &e.TopSim, &e.UsedContext, &e.Handoff,
			&e.LatencyMS, &e.Sources, &e.CreatedAt)

		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan support log: %w", err)
	}

	return entries, nil
}
