package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/liposome-ivr/pkg/errors"
)

func singleColumn(t *testing.T, name string, vals ...interface{}) *Table {
	t.Helper()
	rows := make([][]interface{}, len(vals))
	for i, v := range vals {
		rows[i] = []interface{}{v}
	}
	return buildTable(t, []string{name}, rows...)
}

func TestValueDistribution_ThreeValues(t *testing.T) {
	d, err := ValueDistribution(singleColumn(t, "API_name", "A", "A", "B"), "API_name")
	require.NoError(t, err)

	require.Len(t, d.Categories, 2)
	assert.Equal(t, Category{Value: "A", Count: 2, Percent: 66.67}, d.Categories[0])
	assert.Equal(t, Category{Value: "B", Count: 1, Percent: 33.33}, d.Categories[1])
	assert.Equal(t, 3, d.Rows)
}

func TestValueDistribution_NullsAreACategory(t *testing.T) {
	d, err := ValueDistribution(singleColumn(t, "m", "x", nil, "y", nil, nil), "m")
	require.NoError(t, err)

	require.Len(t, d.Categories, 3)
	assert.Nil(t, d.Categories[0].Value)
	assert.Equal(t, 3, d.Categories[0].Count)
	assert.Equal(t, 60.0, d.Categories[0].Percent)

	c, ok := d.Lookup(nil)
	assert.True(t, ok)
	assert.Equal(t, 3, c.Count)
}

func TestValueDistribution_TiesKeepFirstAppearance(t *testing.T) {
	d, err := ValueDistribution(singleColumn(t, "m", "b", "a", "c", "a", "b"), "m")
	require.NoError(t, err)

	var order []interface{}
	for _, c := range d.Categories {
		order = append(order, c.Value)
	}
	assert.Equal(t, []interface{}{"b", "a", "c"}, order)
}

func TestValueDistribution_Invariants(t *testing.T) {
	vals := []interface{}{"a", "b", "c", "a", "b", "a", nil, "d", "e", "f", "g"}
	d, err := ValueDistribution(singleColumn(t, "m", vals...), "m")
	require.NoError(t, err)

	assert.Equal(t, len(vals), d.TotalCount())
	assert.InDelta(t, 100.0, d.PercentSum(), 0.01*float64(len(d.Categories)))
	for _, c := range d.Categories {
		assert.GreaterOrEqual(t, c.Count, 1)
	}
}

func TestValueDistribution_ExactPercentagesUnchanged(t *testing.T) {
	// 1/16 and 1/8 are exact in binary; rounding must not disturb them.
	vals := make([]interface{}, 16)
	for i := range vals {
		vals[i] = "z"
	}
	vals[0] = "a"
	d, err := ValueDistribution(singleColumn(t, "m", vals...), "m")
	require.NoError(t, err)
	c, _ := d.Lookup("a")
	assert.Equal(t, 6.25, c.Percent)

	vals = []interface{}{"a", "b", "b", "b", "b", "b", "b", "b"}
	d, err = ValueDistribution(singleColumn(t, "m", vals...), "m")
	require.NoError(t, err)
	c, _ = d.Lookup("a")
	assert.Equal(t, 12.5, c.Percent)
}

func TestValueDistribution_Errors(t *testing.T) {
	_, err := ValueDistribution(MustNewTable("m"), "m")
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
	assert.True(t, errors.IsCode(err, errors.ErrCodeEmptyTable))

	_, err = ValueDistribution(singleColumn(t, "m", "a"), "other")
	assert.True(t, errors.IsCode(err, errors.ErrCodeColumnNotFound))
}

func TestDistribution_Table(t *testing.T) {
	d, err := ValueDistribution(singleColumn(t, "release_method", "dialysis", "USP4", "dialysis"), "release_method")
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"release_method", "Count", "Percent"},
		{"dialysis", "2", "66.67"},
		{"USP4", "1", "33.33"},
	}, d.Table().Records(false))

	d, err = ValueDistribution(singleColumn(t, "Count", "x"), "Count")
	require.NoError(t, err)
	assert.Equal(t, []string{"value", "Count", "Percent"}, d.Table().Columns())
}
