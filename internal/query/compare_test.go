package query

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/logistics/internal/domain"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want int
	}{
		{"numbers", 9.0, 10.0, -1},
		{"equal numbers", 3.0, 3, 0},
		{"strings", "10", "9", -1},
		{"nil first", nil, "a", -1},
		{"bool before number", true, 0.0, -1},
		{"false before true", false, true, -1},
		{"number before string", 100.0, "1", -1},
		{"string before object", "z", map[string]any{}, -1},
		{"both nil", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Compare(tt.a, tt.b))
			require.Equal(t, -tt.want, Compare(tt.b, tt.a))
		})
	}
}

func TestSortDocs_DirectionInversion(t *testing.T) {
	items := []container{
		containerFixture("AAAU0000001", "dry", 5),
		containerFixture("BBBU0000002", "dry", 1),
		containerFixture("CCCU0000003", "dry", 3),
	}

	asc := append([]container(nil), items...)
	SortDocs(asc, containerDoc, domain.SortSpec{Field: "weight.gross", Direction: domain.SortAscending})
	desc := append([]container(nil), items...)
	SortDocs(desc, containerDoc, domain.SortSpec{Field: "weight.gross", Direction: domain.SortDescending})

	require.Equal(t, []string{"BBBU0000002", "CCCU0000003", "AAAU0000001"}, numbers(asc))
	ascNumbers := numbers(asc)
	descNumbers := numbers(desc)
	for i := range ascNumbers {
		require.Equal(t, ascNumbers[i], descNumbers[len(descNumbers)-1-i])
	}
}

func TestSortDocs_GroupsTiesAndMissingFields(t *testing.T) {
	items := []container{
		containerFixture("AAAU0000001", "reefer", 1),
		containerFixture("BBBU0000002", "dry", 2),
		{number: "CCCU0000003", doc: map[string]any{"containerNumber": "CCCU0000003"}},
		containerFixture("DDDU0000004", "reefer", 3),
		containerFixture("EEEU0000005", "dry", 4),
	}

	SortDocs(items, containerDoc, domain.SortSpec{Field: "type", Direction: domain.SortAscending})

	types := make([]any, 0, len(items))
	for _, item := range items {
		v, _ := Resolve(item.doc, "type")
		types = append(types, v)
	}
	require.Equal(t, []any{nil, "dry", "dry", "reefer", "reefer"}, types)
}
