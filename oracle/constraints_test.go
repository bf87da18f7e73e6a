package oracle

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/sme/dataset"
)

func TestFromMap(t *testing.T) {
	c, err := FromMap(map[string]any{
		"session_start_time": "2024-08-21 13:28:14",
		"hour":               13,
		"is_weekend":         false,
		"page_views":         6.132344927823966,
		"search_queries":     nil,
		"clicks":             int32(2),
	})
	require.NoError(t, err)

	assert.Equal(t, dataset.String("2024-08-21 13:28:14"), c["session_start_time"])
	assert.Equal(t, dataset.Int(13), c["hour"])
	assert.Equal(t, dataset.Int(0), c["is_weekend"])
	assert.Equal(t, dataset.Float(6.132344927823966), c["page_views"])
	assert.True(t, c["search_queries"].IsAbsent())
	assert.Equal(t, dataset.Int(2), c["clicks"])

	_, err = FromMap(map[string]any{"tags": []string{"a"}})
	assert.ErrorIs(t, err, ErrInvalidConstraint)
}

func TestFromMapRejectsUnrepresentableNumbers(t *testing.T) {
	c, err := FromMap(map[string]any{"a": uint64(math.MaxInt64), "b": uint(7)})
	require.NoError(t, err)
	assert.Equal(t, dataset.Int(math.MaxInt64), c["a"])
	assert.Equal(t, dataset.Int(7), c["b"])

	for name, raw := range map[string]any{
		"uint overflow":   uint(math.MaxUint64),
		"uint64 overflow": uint64(math.MaxInt64) + 1,
		"nan":             math.NaN(),
		"inf":             math.Inf(1),
		"float32 inf":     float32(math.Inf(-1)),
	} {
		_, err := FromMap(map[string]any{"hour": raw})
		assert.ErrorIs(t, err, ErrInvalidConstraint, name)
	}
}

func TestParseJSON(t *testing.T) {
	c, err := ParseJSON([]byte(`{"plan":"basic","price":9.99,"hour":13,"ratio":1e-3,"search_queries":null}`))
	require.NoError(t, err)

	assert.Equal(t, dataset.String("basic"), c["plan"])
	assert.Equal(t, dataset.Float(9.99), c["price"])
	assert.Equal(t, dataset.Int(13), c["hour"])
	assert.Equal(t, dataset.Float(0.001), c["ratio"])
	assert.True(t, c["search_queries"].IsAbsent())

	c, err = ParseJSON([]byte("{\"plan\":\"pro\"}\n  "))
	require.NoError(t, err, "trailing whitespace is fine")
	assert.Equal(t, dataset.String("pro"), c["plan"])

	for _, bad := range []string{
		``, `null`, `[1,2]`, `{"plan":`, `{"plan":{"tier":"basic"}}`,
		`{"plan":"basic"} garbage`, `{"plan":"basic"}}`, `{"plan":"basic"} {"plan":"pro"}`,
	} {
		_, err := ParseJSON([]byte(bad))
		assert.ErrorIs(t, err, ErrInvalidConstraint, "input %q", bad)
	}
}

func TestParseAssignments(t *testing.T) {
	c, err := ParseAssignments([]string{
		"plan=basic",
		"price=9.99",
		"hour=13",
		`code="13"`,
		"notes=",
		"agent=Mozilla/5.0 (X11; Linux)",
		"formula=a=b",
		"tier=inf",
		"score=NaN",
		"limit=-Infinity",
	})
	require.NoError(t, err)

	assert.Equal(t, dataset.String("basic"), c["plan"])
	assert.Equal(t, dataset.Float(9.99), c["price"])
	assert.Equal(t, dataset.Int(13), c["hour"])
	assert.Equal(t, dataset.String("13"), c["code"])
	assert.True(t, c["notes"].IsAbsent())
	assert.Equal(t, dataset.String("Mozilla/5.0 (X11; Linux)"), c["agent"])
	assert.Equal(t, dataset.String("a=b"), c["formula"])
	assert.Equal(t, dataset.String("inf"), c["tier"])
	assert.Equal(t, dataset.String("NaN"), c["score"])
	assert.Equal(t, dataset.String("-Infinity"), c["limit"])

	for _, bad := range []string{"plan", "=basic"} {
		_, err := ParseAssignments([]string{bad})
		assert.ErrorIs(t, err, ErrInvalidConstraint)
	}
}

func TestBuildPredicateSortsAndFilters(t *testing.T) {
	tbl := churnTable(t)

	p := BuildPredicate(tbl, Constraints{
		"price":   dataset.Float(9.99),
		"plan":    dataset.String("basic"),
		"churn":   Unset,
		"country": dataset.String("SG"),
	})
	assert.False(t, p.Empty())
	assert.Equal(t, []Term{
		{Column: "plan", Value: dataset.String("basic")},
		{Column: "price", Value: dataset.Float(9.99)},
	}, p.Terms())

	assert.Equal(t, []int{0, 1}, tbl.Select(p).Indices())
	assert.Equal(t, 0, tbl.Select(BuildPredicate(tbl, nil)).Len(), "empty predicate matches nothing")
}
