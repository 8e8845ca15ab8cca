package query

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/logistics/internal/domain"
)

func TestFromDocument(t *testing.T) {
	q, err := FromDocument(map[string]any{
		"filter": []any{
			map[string]any{"field": "weight.gross", "operation": "greater", "value": float64(1000)},
			map[string]any{"field": "status", "operation": "EQUAL", "value": "NEW"},
		},
		"sort": map[string]any{"field": "createdAt", "direction": "desc"},
		"page": map[string]any{"limit": float64(10), "offset": 5},
	})
	require.NoError(t, err)

	require.Equal(t, []domain.FilterClause{
		{Field: "weight.gross", Operation: domain.OpGreater, Value: "1000"},
		{Field: "status", Operation: domain.OpEqual, Value: "NEW"},
	}, q.Filter)
	require.Equal(t, &domain.SortSpec{Field: "createdAt", Direction: domain.SortDescending}, q.Sort)
	require.Equal(t, &domain.PageSpec{Limit: 10, Offset: 5}, q.Page)
}

func TestFromDocument_Empty(t *testing.T) {
	q, err := FromDocument(map[string]any{})
	require.NoError(t, err)
	require.Nil(t, q.Filter)
	require.Nil(t, q.Sort)
	require.Nil(t, q.Page)
}

func TestFromDocument_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  map[string]any
	}{
		{name: "filter not a list", doc: map[string]any{"filter": "status:EQUAL:NEW"}},
		{name: "clause not an object", doc: map[string]any{"filter": []any{"x"}}},
		{name: "sort not an object", doc: map[string]any{"sort": "name"}},
		{name: "bad direction", doc: map[string]any{"sort": map[string]any{"field": "name", "direction": "UP"}}},
		{name: "fractional limit", doc: map[string]any{"page": map[string]any{"limit": 1.5}}},
		{name: "string offset", doc: map[string]any{"page": map[string]any{"offset": "2"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromDocument(tt.doc)
			require.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}
