package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/liposome-ivr/pkg/errors"
)

func buildTable(t *testing.T, cols []string, rows ...[]interface{}) *Table {
	t.Helper()
	tbl, err := NewTable(cols...)
	require.NoError(t, err)
	for _, r := range rows {
		require.NoError(t, tbl.AppendRow(r...))
	}
	return tbl
}

func TestNewTable_DuplicateColumn(t *testing.T) {
	_, err := NewTable("a", "b", "a")
	assert.True(t, errors.IsCode(err, errors.ErrCodeDuplicateColumn))
	assert.Panics(t, func() { MustNewTable("x", "x") })
}

func TestTable_AppendRowNormalizes(t *testing.T) {
	tbl := buildTable(t, []string{"a", "b", "c", "d"}, []interface{}{7, []byte("txt"), float32(1.5), nil})

	assert.Equal(t, []interface{}{int64(7), "txt", 1.5, nil}, tbl.Row(0))
	assert.Error(t, tbl.AppendRow(1, 2))
	assert.Equal(t, 1, tbl.Len())
	assert.Equal(t, 4, tbl.Width())
}

func TestTable_ColumnAndValue(t *testing.T) {
	tbl := buildTable(t, []string{"id", "name"},
		[]interface{}{1, "a"},
		[]interface{}{2, "b"},
	)

	col, err := tbl.Column("name")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"a", "b"}, col)

	v, err := tbl.Value(1, "id")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	_, err = tbl.Column("nope")
	assert.True(t, errors.IsCode(err, errors.ErrCodeColumnNotFound))
	_, err = tbl.Value(5, "id")
	assert.Error(t, err)
}

func TestTable_SelectDropRename(t *testing.T) {
	tbl := buildTable(t, []string{"a", "b", "c"}, []interface{}{1, 2, 3})

	sel, err := tbl.Select("c", "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, sel.Columns())
	assert.Equal(t, []interface{}{int64(3), int64(1)}, sel.Row(0))

	dropped, err := tbl.Drop("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, dropped.Columns())

	_, err = tbl.Drop("zz")
	assert.Error(t, err)

	ren, err := tbl.Rename(map[string]string{"a": "A", "missing": "M"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "b", "c"}, ren.Columns())

	_, err = tbl.Rename(map[string]string{"a": "b"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeDuplicateColumn))

	// source untouched
	assert.Equal(t, []string{"a", "b", "c"}, tbl.Columns())
}

func TestTable_InnerJoin(t *testing.T) {
	left := buildTable(t, []string{"IVR_ID", "API_ID", "API_name"},
		[]interface{}{1, 10, "dox"},
		[]interface{}{2, 20, "cyt"},
		[]interface{}{3, nil, "none"},
		[]interface{}{4, 10, "dox"},
	)
	right := buildTable(t, []string{"API_ID", "API_name", "MolWt"},
		[]interface{}{10.0, "dox", 543.5},
		[]interface{}{30, "other", 1.0},
		[]interface{}{20, "cyt", 243.2},
	)

	joined, err := left.InnerJoin(right, "API_ID")
	require.NoError(t, err)

	assert.Equal(t, []string{"IVR_ID", "API_ID", "API_name_x", "API_name_y", "MolWt"}, joined.Columns())
	require.Equal(t, 3, joined.Len())
	assert.Equal(t, []interface{}{int64(1), int64(10), "dox", "dox", 543.5}, joined.Row(0))
	assert.Equal(t, []interface{}{int64(2), int64(20), "cyt", "cyt", 243.2}, joined.Row(1))
	assert.Equal(t, int64(4), joined.Row(2)[0])
}

func TestTable_InnerJoinOneToMany(t *testing.T) {
	left := buildTable(t, []string{"k", "l"}, []interface{}{1, "a"})
	right := buildTable(t, []string{"k", "r"}, []interface{}{1, "x"}, []interface{}{1, "y"})

	joined, err := left.InnerJoin(right, "k")
	require.NoError(t, err)
	assert.Equal(t, 2, joined.Len())
	assert.Equal(t, "x", joined.Row(0)[2])
	assert.Equal(t, "y", joined.Row(1)[2])

	_, err = left.InnerJoin(right, "missing")
	assert.True(t, errors.IsCode(err, errors.ErrCodeColumnNotFound))
}

func TestTable_Records(t *testing.T) {
	tbl := buildTable(t, []string{"name", "pH", "n", "ok"},
		[]interface{}{"a", 7.4, 3, true},
		[]interface{}{nil, 37.0, nil, false},
	)

	assert.Equal(t, [][]string{
		{"name", "pH", "n", "ok"},
		{"a", "7.4", "3", "True"},
		{"", "37.0", "", "False"},
	}, tbl.Records(false))

	withIdx := tbl.Records(true)
	assert.Equal(t, []string{"", "name", "pH", "n", "ok"}, withIdx[0])
	assert.Equal(t, "0", withIdx[1][0])
	assert.Equal(t, "1", withIdx[2][0])
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "", FormatValue(nil))
	assert.Equal(t, "0.1", FormatValue(0.1))
	assert.Equal(t, "100.0", FormatValue(100.0))
	assert.Equal(t, "-5.0", FormatValue(-5.0))
	assert.Equal(t, "1e+20", FormatValue(1e20))
	assert.Equal(t, "42", FormatValue(int64(42)))
}

func TestCompareValues(t *testing.T) {
	assert.Equal(t, -1, compareValues(int64(2), 10.0))
	assert.Equal(t, 0, compareValues(int64(2), 2.0))
	assert.Equal(t, -1, compareValues(int64(99), "a"))
	assert.Equal(t, 1, compareValues("b", "a"))
}
