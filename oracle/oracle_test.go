package oracle

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/sme/dataset"
	"github.com/spektr-org/sme/schema"
)

// ============================================================================
// FIXTURES
// ============================================================================

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// churnTable is the three-row plan/price/churn dataset.
func churnTable(t *testing.T) *dataset.Table {
	t.Helper()
	tbl, err := dataset.New(
		[]string{"plan", "price", "churn"},
		[][]dataset.Value{
			{dataset.String("basic"), dataset.Float(9.99), dataset.Int(1)},
			{dataset.String("basic"), dataset.Float(9.99), dataset.Int(0)},
			{dataset.String("pro"), dataset.Float(19.99), dataset.Int(0)},
		},
		"churn",
	)
	require.NoError(t, err)
	return tbl
}

func newOracle(t *testing.T, opts ...Option) *Oracle {
	t.Helper()
	o, err := New(churnTable(t), append([]Option{WithLogger(quiet)}, opts...)...)
	require.NoError(t, err)
	return o
}

// ============================================================================
// ASK
// ============================================================================

func TestAskChurnScenario(t *testing.T) {
	o := newOracle(t)

	p, err := o.Ask(Constraints{"plan": dataset.String("basic"), "price": dataset.Float(9.99)})
	require.NoError(t, err)
	assert.Equal(t, 0.5, p)

	_, err = o.Ask(Constraints{"plan": dataset.String("enterprise")})
	assert.ErrorIs(t, err, ErrNoMatch)

	_, err = o.Ask(Constraints{"unset_field": Unset})
	assert.ErrorIs(t, err, ErrEmptyQuery)

	assert.Equal(t, int64(3), o.Calls(), "failing calls are charged too")
}

func TestAskIsExactMean(t *testing.T) {
	o := newOracle(t)

	cases := []struct {
		name string
		c    Constraints
		want float64
	}{
		{"single row", Constraints{"plan": dataset.String("pro")}, 0},
		{"by outcome", Constraints{"churn": dataset.Int(1)}, 1},
		{"price as float", Constraints{"price": dataset.Float(9.99)}, 0.5},
		{"plan only", Constraints{"plan": dataset.String("basic")}, 0.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := o.Ask(tc.c)
			require.NoError(t, err)
			assert.Equal(t, tc.want, p)
			assert.GreaterOrEqual(t, p, 0.0)
			assert.LessOrEqual(t, p, 1.0)
		})
	}
}

func TestAskOverProbabilityOutcomes(t *testing.T) {
	tbl, err := dataset.New(
		[]string{"segment", "region", "p"},
		[][]dataset.Value{
			{dataset.String("a"), dataset.String("EU"), dataset.Float(0.25)},
			{dataset.String("a"), dataset.String("US"), dataset.Float(0.75)},
			{dataset.String("a"), dataset.String("EU"), dataset.Float(0.1)},
			{dataset.String("b"), dataset.String("EU"), dataset.Float(1)},
		},
		"p",
	)
	require.NoError(t, err)
	o, err := New(tbl, WithLogger(quiet))
	require.NoError(t, err)

	cases := []struct {
		name    string
		c       Constraints
		mean    float64
		stddev  float64
		matched int
	}{
		{"three rows", Constraints{"segment": dataset.String("a")}, (0.25 + 0.75 + 0.1) / 3, 0.277889, 3},
		{"two rows", Constraints{"segment": dataset.String("a"), "region": dataset.String("EU")}, 0.175, 0.075, 2},
		{"single row", Constraints{"region": dataset.String("US")}, 0.75, 0, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, err := o.AskDetailed(tc.c)
			require.NoError(t, err)
			assert.InDelta(t, tc.mean, a.Probability, 1e-12)
			assert.InDelta(t, tc.stddev, a.StdDev, 1e-5)
			assert.Equal(t, tc.matched, a.Matched)
		})
	}
}

func TestAskOverLoadedFloatOutcomes(t *testing.T) {
	x := stringSource{"x.csv", "segment\na\na\na\nb\n"}
	y := stringSource{"y.csv", "p\n0.25\n0.75\n0.1\n1\n"}

	o, err := Open(context.Background(), x, y, "p", WithLogger(quiet))
	require.NoError(t, err)

	col, ok := o.Store().Schema().Lookup("p")
	require.True(t, ok)
	assert.Equal(t, schema.KindFloat, col.Kind)

	p, err := o.Ask(Constraints{"segment": dataset.String("a")})
	require.NoError(t, err)
	assert.InDelta(t, (0.25+0.75+0.1)/3, p, 1e-12)

	v, err := o.AskByPosition(3)
	require.NoError(t, err)
	assert.Equal(t, dataset.Float(1), v)
}

func TestAskUnaffectedByCallerRows(t *testing.T) {
	rows := [][]dataset.Value{
		{dataset.String("basic"), dataset.Int(1)},
		{dataset.String("basic"), dataset.Int(0)},
	}
	tbl, err := dataset.New([]string{"plan", "churn"}, rows, "churn")
	require.NoError(t, err)
	o, err := New(tbl, WithLogger(quiet))
	require.NoError(t, err)

	c := Constraints{"plan": dataset.String("basic")}
	before, err := o.Ask(c)
	require.NoError(t, err)

	rows[1][1] = dataset.Int(7)
	rows[0][0] = dataset.String("pro")

	after, err := o.Ask(c)
	require.NoError(t, err)
	assert.Equal(t, 0.5, before)
	assert.Equal(t, before, after)
}

func TestAskOverEmptyDataset(t *testing.T) {
	x := stringSource{"x.csv", "plan,price\n"}
	y := stringSource{"y.csv", "churn\n"}

	o, err := Open(context.Background(), x, y, "churn", WithLogger(quiet))
	require.NoError(t, err)
	assert.Equal(t, 0, o.Store().RowCount())

	_, err = o.Ask(Constraints{"plan": dataset.String("basic")})
	assert.ErrorIs(t, err, ErrNoMatch)
	_, err = o.Ask(Constraints{"nothing": Unset})
	assert.ErrorIs(t, err, ErrEmptyQuery)
	_, err = o.AskByPosition(0)
	assert.ErrorIs(t, err, dataset.ErrIndexOutOfRange)
}

func TestAskDropsUnsetAndUnknownColumns(t *testing.T) {
	o := newOracle(t)

	a, err := o.AskDetailed(Constraints{
		"plan":       dataset.String("basic"),
		"price":      Unset,
		"user_agent": dataset.String("Mozilla/5.0"),
	})
	require.NoError(t, err)
	assert.Equal(t, 0.5, a.Probability)
	assert.Equal(t, 2, a.Matched)
	assert.Equal(t, 0.5, a.StdDev)
	assert.Equal(t, int64(1), a.Call)
	assert.Equal(t, []Term{{Column: "plan", Value: dataset.String("basic")}}, a.Terms)
}

func TestAskEmptyQueryRegardlessOfData(t *testing.T) {
	o := newOracle(t)

	for _, c := range []Constraints{
		{},
		nil,
		{"plan": Unset, "price": Unset},
		{"region": dataset.String("EU"), "device": Unset},
	} {
		_, err := o.Ask(c)
		assert.ErrorIs(t, err, ErrEmptyQuery)
	}
}

func TestAskNeverCoercesKinds(t *testing.T) {
	o := newOracle(t)

	_, err := o.Ask(Constraints{"plan": dataset.Int(1)})
	assert.ErrorIs(t, err, ErrNoMatch)

	_, err = o.Ask(Constraints{"price": dataset.String("9.99")})
	assert.ErrorIs(t, err, ErrNoMatch)

	p, err := o.Ask(Constraints{"churn": dataset.Float(0)})
	require.NoError(t, err, "numeric kinds compare by value")
	assert.Equal(t, 0.0, p)
}

func TestAskAbsentCellsNeverMatch(t *testing.T) {
	tbl, err := dataset.New(
		[]string{"search", "y"},
		[][]dataset.Value{
			{dataset.Absent(), dataset.Int(1)},
			{dataset.String(""), dataset.Int(0)},
		},
		"y",
	)
	require.NoError(t, err)
	o, err := New(tbl, WithLogger(quiet))
	require.NoError(t, err)

	p, err := o.Ask(Constraints{"search": dataset.String("")})
	require.NoError(t, err)
	assert.Equal(t, 0.0, p)
}

func TestAskIsIdempotent(t *testing.T) {
	o := newOracle(t)
	c := Constraints{"plan": dataset.String("basic")}

	first, err := o.Ask(c)
	require.NoError(t, err)
	second, err := o.Ask(c)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// ============================================================================
// BUDGET
// ============================================================================

func TestBudgetExactlyEnforced(t *testing.T) {
	o := newOracle(t)
	c := Constraints{"plan": dataset.String("basic")}

	for i := 0; i < DefaultBudget; i++ {
		_, err := o.Ask(c)
		require.NoError(t, err, "call %d", i+1)
	}
	assert.Equal(t, int64(0), o.Remaining())

	for i := 0; i < 3; i++ {
		_, err := o.Ask(c)
		assert.ErrorIs(t, err, ErrBudgetExhausted)
		assert.ErrorContains(t, err, "500 query limit")
	}
	assert.Equal(t, int64(DefaultBudget+3), o.Calls(), "counter keeps climbing")
	assert.Equal(t, int64(0), o.Remaining())
}

func TestBudgetCheckedBeforeQuery(t *testing.T) {
	o := newOracle(t, WithBudget(1))

	_, err := o.Ask(Constraints{"nothing": Unset})
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = o.Ask(Constraints{"plan": dataset.String("basic")})
	assert.ErrorIs(t, err, ErrBudgetExhausted, "refused even though the query is valid")
}

func TestBudgetsAreIndependent(t *testing.T) {
	tbl := churnTable(t)
	a, err := New(tbl, WithBudget(1), WithLogger(quiet))
	require.NoError(t, err)
	b, err := New(tbl, WithBudget(1), WithLogger(quiet))
	require.NoError(t, err)

	c := Constraints{"plan": dataset.String("pro")}
	_, err = a.Ask(c)
	require.NoError(t, err)
	_, err = b.Ask(c)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestBudgetUnderConcurrency(t *testing.T) {
	const budget, callers, each = 100, 16, 25
	o := newOracle(t, WithBudget(budget))
	c := Constraints{"plan": dataset.String("basic")}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		refused int
	)
	for g := 0; g < callers; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				_, err := o.Ask(c)
				mu.Lock()
				if err == nil {
					ok++
				} else {
					assert.ErrorIs(t, err, ErrBudgetExhausted)
					refused++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, budget, ok)
	assert.Equal(t, callers*each-budget, refused)
	assert.Equal(t, int64(callers*each), o.Calls())
}

func TestNewRejectsBadArguments(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New(churnTable(t), WithBudget(0))
	assert.ErrorContains(t, err, "budget must be positive")
}

// ============================================================================
// ASK BY POSITION
// ============================================================================

func TestAskByPosition(t *testing.T) {
	o := newOracle(t)

	for i, want := range []int64{1, 0, 0} {
		v, err := o.AskByPosition(i)
		require.NoError(t, err)
		assert.Equal(t, dataset.Int(want), v)
	}

	_, err := o.AskByPosition(3)
	assert.ErrorIs(t, err, dataset.ErrIndexOutOfRange)
	_, err = o.AskByPosition(-1)
	assert.ErrorIs(t, err, dataset.ErrIndexOutOfRange)

	assert.Equal(t, int64(0), o.Calls(), "positional lookups are free")
}

func TestAskByPositionAfterBudget(t *testing.T) {
	o := newOracle(t, WithBudget(1))
	_, _ = o.Ask(Constraints{"plan": dataset.String("pro")})
	_, err := o.Ask(Constraints{"plan": dataset.String("pro")})
	require.ErrorIs(t, err, ErrBudgetExhausted)

	v, err := o.AskByPosition(2)
	require.NoError(t, err)
	assert.Equal(t, dataset.Int(0), v)
}

// ============================================================================
// OPEN + LOGGING
// ============================================================================

type stringSource struct{ name, data string }

func (s stringSource) Name() string { return s.name }

func (s stringSource) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(s.data)), nil
}

func TestOpenLoadsAndFails(t *testing.T) {
	x := stringSource{"x.csv", "plan,price\nbasic,9.99\nbasic,9.99\npro,19.99\n"}
	y := stringSource{"y.csv", "churn\n1\n0\n0\n"}

	o, err := Open(context.Background(), x, y, "churn", WithLogger(quiet))
	require.NoError(t, err)
	p, err := o.Ask(Constraints{"plan": dataset.String("basic"), "price": dataset.Float(9.99)})
	require.NoError(t, err)
	assert.Equal(t, 0.5, p)

	_, err = Open(context.Background(), x, stringSource{"y.csv", "churn\n1\n"}, "churn")
	assert.ErrorIs(t, err, dataset.ErrDataUnavailable)
}

func TestAskLogsEffectiveTerms(t *testing.T) {
	var buf bytes.Buffer
	o := newOracle(t, WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	_, err := o.Ask(Constraints{"price": dataset.Float(9.99), "plan": dataset.String("basic"), "browser": dataset.String("Chrome")})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "query parameters")
	assert.Contains(t, out, `plan == \"basic\"`)
	assert.Contains(t, out, "price == 9.99")
	assert.NotContains(t, out, "Chrome")
	assert.Contains(t, out, "oracle_id="+o.ID().String())
}
