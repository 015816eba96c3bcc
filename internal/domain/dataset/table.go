// Package dataset holds the in-memory tabular model used by the build
// pipeline together with the aggregations computed over it: value
// distributions, drug × method heatmap counts and missing-value summaries.
//
// Cells are dynamically typed.  A nil cell is a null.  Non-null cells are one
// of int64, float64, string or bool; Normalize maps driver values onto that
// set.
package dataset

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/turtacn/liposome-ivr/pkg/errors"
)

// Table is an ordered set of named columns over rows of nullable cells.
// Tables returned by the transformation methods never share row storage with
// their source.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]interface{}
}

// NewTable creates an empty table with the given column names.  Names must be
// unique.
func NewTable(columns ...string) (*Table, error) {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := idx[c]; dup {
			return nil, errors.Newf(errors.ErrCodeDuplicateColumn, "duplicate column %q", c)
		}
		idx[c] = i
	}
	return &Table{
		columns: append([]string(nil), columns...),
		index:   idx,
	}, nil
}

// MustNewTable is NewTable for literal column lists; it panics on duplicates.
func MustNewTable(columns ...string) *Table {
	t, err := NewTable(columns...)
	if err != nil {
		panic(err)
	}
	return t
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.columns) }

// HasColumn reports whether name is a column of t.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// AppendRow adds one row.  Values are normalized; the count must match the
// column count.
func (t *Table) AppendRow(values ...interface{}) error {
	if len(values) != len(t.columns) {
		return errors.Newf(errors.CodeInvalidParam, "row has %d values, table has %d columns", len(values), len(t.columns))
	}
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = Normalize(v)
	}
	t.rows = append(t.rows, row)
	return nil
}

// Row returns a copy of row i.
func (t *Table) Row(i int) []interface{} {
	return append([]interface{}(nil), t.rows[i]...)
}

// Value returns the cell at row i, column col.
func (t *Table) Value(i int, col string) (interface{}, error) {
	j, ok := t.index[col]
	if !ok {
		return nil, columnNotFound(col)
	}
	if i < 0 || i >= len(t.rows) {
		return nil, errors.Newf(errors.CodeInvalidParam, "row %d out of range [0,%d)", i, len(t.rows))
	}
	return t.rows[i][j], nil
}

// Column returns a copy of every cell in the named column.
func (t *Table) Column(name string) ([]interface{}, error) {
	j, ok := t.index[name]
	if !ok {
		return nil, columnNotFound(name)
	}
	out := make([]interface{}, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[j]
	}
	return out, nil
}

// Select returns a table holding only the named columns, in the given order.
func (t *Table) Select(columns ...string) (*Table, error) {
	pos := make([]int, len(columns))
	for i, c := range columns {
		j, ok := t.index[c]
		if !ok {
			return nil, columnNotFound(c)
		}
		pos[i] = j
	}
	out, err := NewTable(columns...)
	if err != nil {
		return nil, err
	}
	out.rows = make([][]interface{}, len(t.rows))
	for i, r := range t.rows {
		nr := make([]interface{}, len(pos))
		for k, j := range pos {
			nr[k] = r[j]
		}
		out.rows[i] = nr
	}
	return out, nil
}

// Drop returns a table without the named columns.  Every name must exist.
func (t *Table) Drop(columns ...string) (*Table, error) {
	drop := make(map[string]bool, len(columns))
	for _, c := range columns {
		if !t.HasColumn(c) {
			return nil, columnNotFound(c)
		}
		drop[c] = true
	}
	keep := make([]string, 0, len(t.columns))
	for _, c := range t.columns {
		if !drop[c] {
			keep = append(keep, c)
		}
	}
	return t.Select(keep...)
}

// Rename returns a table with columns renamed per mapping.  Keys that are not
// columns of t are ignored.  A rename that produces duplicate names fails.
func (t *Table) Rename(mapping map[string]string) (*Table, error) {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		if n, ok := mapping[c]; ok {
			names[i] = n
		} else {
			names[i] = c
		}
	}
	out, err := NewTable(names...)
	if err != nil {
		return nil, err
	}
	out.rows = t.cloneRows()
	return out, nil
}

// InnerJoin matches rows of t and other whose key cells are equal.  Output
// rows follow t's order and, within one left row, other's order.  The key
// column keeps its position in t; other's remaining columns follow t's.
// Non-key names present on both sides get "_x" (left) and "_y" (right)
// suffixes.  Null keys never match.  Integer and integral float keys compare
// equal.
func (t *Table) InnerJoin(other *Table, key string) (*Table, error) {
	lk, ok := t.index[key]
	if !ok {
		return nil, columnNotFound(key)
	}
	rk, ok := other.index[key]
	if !ok {
		return nil, columnNotFound(key)
	}

	names := make([]string, 0, len(t.columns)+len(other.columns)-1)
	for _, c := range t.columns {
		if c != key && other.HasColumn(c) {
			c += "_x"
		}
		names = append(names, c)
	}
	rightPos := make([]int, 0, len(other.columns)-1)
	for j, c := range other.columns {
		if j == rk {
			continue
		}
		if t.HasColumn(c) {
			c += "_y"
		}
		names = append(names, c)
		rightPos = append(rightPos, j)
	}
	out, err := NewTable(names...)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string][]int, len(other.rows))
	for i, r := range other.rows {
		if r[rk] == nil {
			continue
		}
		k := keyOf(r[rk])
		byKey[k] = append(byKey[k], i)
	}

	for _, lr := range t.rows {
		if lr[lk] == nil {
			continue
		}
		for _, ri := range byKey[keyOf(lr[lk])] {
			rr := other.rows[ri]
			row := make([]interface{}, 0, len(names))
			row = append(row, lr...)
			for _, j := range rightPos {
				row = append(row, rr[j])
			}
			out.rows = append(out.rows, row)
		}
	}
	return out, nil
}

func (t *Table) cloneRows() [][]interface{} {
	rows := make([][]interface{}, len(t.rows))
	for i, r := range t.rows {
		rows[i] = append([]interface{}(nil), r...)
	}
	return rows
}

// Records renders the table as CSV records, header first.  With withIndex a
// leading unnamed column holds the 0-based row position.
func (t *Table) Records(withIndex bool) [][]string {
	out := make([][]string, 0, len(t.rows)+1)
	header := make([]string, 0, len(t.columns)+1)
	if withIndex {
		header = append(header, "")
	}
	header = append(header, t.columns...)
	out = append(out, header)

	for i, r := range t.rows {
		rec := make([]string, 0, len(header))
		if withIndex {
			rec = append(rec, strconv.Itoa(i))
		}
		for _, v := range r {
			rec = append(rec, FormatValue(v))
		}
		out = append(out, rec)
	}
	return out
}

// Normalize converts a driver value into the cell type set.
func Normalize(v interface{}) interface{} {
	switch x := v.(type) {
	case nil:
		return nil
	case int64, float64, string, bool:
		return x
	case []byte:
		return string(x)
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case int16:
		return int64(x)
	case int8:
		return int64(x)
	case uint32:
		return int64(x)
	case uint16:
		return int64(x)
	case uint8:
		return int64(x)
	case float32:
		return float64(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}

// IsNull reports whether a cell is null.  NaN floats count as null.
func IsNull(v interface{}) bool {
	if v == nil {
		return true
	}
	f, ok := v.(float64)
	return ok && math.IsNaN(f)
}

// FormatValue renders a cell for CSV output.  Nulls are empty; integral floats
// keep a trailing ".0" so float columns stay recognisable.
func FormatValue(v interface{}) string {
	if IsNull(v) {
		return ""
	}
	switch x := v.(type) {
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e16 {
			return strconv.FormatFloat(x, 'f', 1, 64)
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return x
	case bool:
		if x {
			return "True"
		}
		return "False"
	default:
		return fmt.Sprint(x)
	}
}

// keyOf returns a grouping key under which equal cells collide.
func keyOf(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "n:"
	case int64:
		return "i:" + strconv.FormatInt(x, 10)
	case float64:
		if math.IsNaN(x) {
			return "n:"
		}
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return "i:" + strconv.FormatInt(int64(x), 10)
		}
		return "f:" + strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return "s:" + x
	case bool:
		return "b:" + strconv.FormatBool(x)
	default:
		return "o:" + fmt.Sprint(x)
	}
}

// compareValues orders two non-null cells: numbers numerically, numbers
// before strings, strings lexically.
func compareValues(a, b interface{}) int {
	af, aNum := asFloat(a)
	bf, bNum := asFloat(b)
	switch {
	case aNum && bNum:
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	case aNum:
		return -1
	case bNum:
		return 1
	}
	as, bs := FormatValue(a), FormatValue(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}

func asFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

func columnNotFound(name string) error {
	return errors.Newf(errors.ErrCodeColumnNotFound, "column %q not found", name)
}
