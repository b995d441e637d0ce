package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/formbricks/support-hub/internal/models"
)

func TestBuildListSupportLogQuery(t *testing.T) {
	t.Run("no filters", func(t *testing.T) {
		query, args := buildListSupportLogQuery(&models.ListSupportLogFilters{})

		assert.NotContains(t, query, "WHERE")
		assert.Contains(t, query, "ORDER BY created_at DESC")
		assert.NotContains(t, query, "LIMIT")
		assert.Empty(t, args)
	})

	t.Run("limit and offset", func(t *testing.T) {
		query, args := buildListSupportLogQuery(&models.ListSupportLogFilters{Limit: 50, Offset: 100})

		assert.Contains(t, query, "LIMIT $1")
		assert.Contains(t, query, "OFFSET $2")
		assert.Equal(t, []any{50, 100}, args)
	})

	t.Run("handoff filter comes first", func(t *testing.T) {
		handoff := true
		query, args := buildListSupportLogQuery(&models.ListSupportLogFilters{Limit: 10, Handoff: &handoff})

		assert.Contains(t, query, "WHERE handoff = $1")
		assert.Contains(t, query, "LIMIT $2")
		assert.Equal(t, []any{true, 10}, args)
	})
}
