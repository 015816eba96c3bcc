package dataset

import (
	"sort"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/turtacn/liposome-ivr/pkg/errors"
)

// PercentPrecision is the number of decimals kept in distribution percentages.
const PercentPrecision = 2

// Category is one distinct value of a column with its frequency.
type Category struct {
	Value   interface{} // nil for the null category
	Count   int
	Percent float64
}

// Distribution is the value distribution of one column.
type Distribution struct {
	Column     string
	Rows       int
	Categories []Category
}

// ValueDistribution counts each distinct value of column, nulls included as
// their own category.  Categories are ordered by count descending; equal
// counts keep first-appearance order.  Percent is count/rows×100 rounded
// half-to-even to PercentPrecision decimals.
func ValueDistribution(t *Table, column string) (*Distribution, error) {
	values, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, errors.Newf(errors.CodeInvalidParam, "value distribution of %q over an empty table", column).
			WithCause(errors.New(errors.ErrCodeEmptyTable, "table has no rows"))
	}

	pos := make(map[string]int)
	var cats []Category
	for _, v := range values {
		if IsNull(v) {
			v = nil
		}
		k := keyOf(v)
		if i, ok := pos[k]; ok {
			cats[i].Count++
			continue
		}
		pos[k] = len(cats)
		cats = append(cats, Category{Value: v, Count: 1})
	}

	sort.SliceStable(cats, func(i, j int) bool { return cats[i].Count > cats[j].Count })

	n := float64(len(values))
	for i := range cats {
		cats[i].Percent = scalar.RoundEven(float64(cats[i].Count)/n*100, PercentPrecision)
	}

	return &Distribution{Column: column, Rows: len(values), Categories: cats}, nil
}

// Lookup returns the category holding value, if any.  Pass nil for nulls.
func (d *Distribution) Lookup(value interface{}) (Category, bool) {
	k := keyOf(Normalize(value))
	for _, c := range d.Categories {
		if keyOf(c.Value) == k {
			return c, true
		}
	}
	return Category{}, false
}

// TotalCount returns the sum of category counts, always equal to Rows.
func (d *Distribution) TotalCount() int {
	n := 0
	for _, c := range d.Categories {
		n += c.Count
	}
	return n
}

// PercentSum returns the sum of the rounded percentages.
func (d *Distribution) PercentSum() float64 {
	s := 0.0
	for _, c := range d.Categories {
		s += c.Percent
	}
	return s
}

// Table renders the distribution as [<column>, Count, Percent].  A column
// itself named Count or Percent is rendered as "value".
func (d *Distribution) Table() *Table {
	t, err := NewTable(d.Column, "Count", "Percent")
	if err != nil {
		t = MustNewTable("value", "Count", "Percent")
	}
	for _, c := range d.Categories {
		t.rows = append(t.rows, []interface{}{c.Value, int64(c.Count), c.Percent})
	}
	return t
}
