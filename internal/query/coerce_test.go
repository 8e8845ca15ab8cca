package query

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultRulesKindOf(t *testing.T) {
	tests := map[string]ValueKind{
		"quantity":                            KindNumber,
		"value":                               KindNumber,
		"weight.gross":                        KindNumber,
		"weight.unit":                         KindString,
		"cargo.palletCount":                   KindNumber,
		"cargo.packaging.dimensions.length":   KindNumber,
		"createdAt":                           KindDate,
		"route.schedule.loadingDate":          KindDate,
		"route.schedule.estimatedArrivalDate": KindDate,
		"client.createdAt":                    KindString,
		"status":                              KindString,
		"declaredValueCurrency":               KindString,
		"meta.valueNote":                      KindNumber,
	}

	for path, want := range tests {
		require.Equalf(t, want, DefaultRules.KindOf(path), "path %s", path)
	}
}

func TestCoerce(t *testing.T) {
	num := DefaultRules.Coerce("quantity", "10")
	require.True(t, num.Valid)
	require.Equal(t, KindNumber, num.Kind)
	require.Equal(t, 10.0, num.Num)

	fromJSON := DefaultRules.Coerce("weight.gross", 12000.5)
	require.True(t, fromJSON.Valid)
	require.Equal(t, 12000.5, fromJSON.Num)

	bad := DefaultRules.Coerce("quantity", "ten")
	require.False(t, bad.Valid)

	// Число с единицей измерения не усекается до префикса.
	withUnit := DefaultRules.Coerce("quantity", "12kg")
	require.False(t, withUnit.Valid)
	require.Equal(t, "12kg", withUnit.Raw)
	require.False(t, DefaultRules.Coerce("weight.gross", "12.5 t").Valid)
	require.True(t, DefaultRules.Coerce("weight.gross", " 12.5 ").Valid)

	day := DefaultRules.Coerce("createdAt", "2024-03-01")
	stamp := DefaultRules.Coerce("createdAt", "2024-03-01T00:00:00Z")
	require.True(t, day.Valid)
	require.Equal(t, day.Num, stamp.Num)

	str := DefaultRules.Coerce("status", 42.0)
	require.Equal(t, KindString, str.Kind)
	require.Equal(t, "42", str.Str)
}

func TestCustomRulesTable(t *testing.T) {
	rules := Rules{NumericSubstrings: []string{"score"}}
	require.Equal(t, KindNumber, rules.KindOf("score"))
	require.Equal(t, KindString, rules.KindOf("quantity"))
	require.Equal(t, KindString, rules.KindOf("createdAt"))
}

func TestStringify(t *testing.T) {
	require.Equal(t, "", Stringify(nil))
	require.Equal(t, "true", Stringify(true))
	require.Equal(t, "1.5", Stringify(1.5))
	require.Equal(t, "12000", Stringify(float64(12000)))
	require.Equal(t, `{"a":1}`, Stringify(map[string]any{"a": 1}))
}
