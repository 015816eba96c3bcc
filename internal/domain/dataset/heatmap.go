package dataset

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// TotalLabel names the totals row and column of a heatmap matrix.
const TotalLabel = "Total"

// PairCount is the number of rows holding one (drug, method) combination.
type PairCount struct {
	Drug   interface{}
	Method interface{}
	Count  int
}

// PairCounts is the long form of a drug × method co-occurrence count: one
// entry per element of the cartesian product of observed drugs and observed
// methods, zero-filled.
type PairCounts struct {
	DrugColumn   string
	MethodColumn string
	Drugs        []interface{} // first-appearance order
	Methods      []interface{} // first-appearance order
	Pairs        []PairCount   // drug-major over Drugs × Methods
}

// HeatmapCounts counts (drug, method) pairs in t.  A row with a null drug or
// method is not counted, but its non-null side still becomes a category, so
// a drug only ever seen without a method shows up as an all-zero row.
func HeatmapCounts(t *Table, drugCol, methodCol string) (*PairCounts, error) {
	drugs, err := t.Column(drugCol)
	if err != nil {
		return nil, err
	}
	methods, err := t.Column(methodCol)
	if err != nil {
		return nil, err
	}

	pc := &PairCounts{DrugColumn: drugCol, MethodColumn: methodCol}
	drugPos := map[string]int{}
	methodPos := map[string]int{}
	observed := map[[2]int]int{}

	for i := range drugs {
		di := register(drugPos, &pc.Drugs, drugs[i])
		mi := register(methodPos, &pc.Methods, methods[i])
		if di < 0 || mi < 0 {
			continue
		}
		observed[[2]int{di, mi}]++
	}

	pc.Pairs = make([]PairCount, 0, len(pc.Drugs)*len(pc.Methods))
	for di, d := range pc.Drugs {
		for mi, m := range pc.Methods {
			pc.Pairs = append(pc.Pairs, PairCount{Drug: d, Method: m, Count: observed[[2]int{di, mi}]})
		}
	}
	return pc, nil
}

// register returns the position of v in values, appending it on first sight.
// Null values are never registered and report -1.
func register(pos map[string]int, values *[]interface{}, v interface{}) int {
	if IsNull(v) {
		return -1
	}
	k := keyOf(v)
	if i, ok := pos[k]; ok {
		return i
	}
	pos[k] = len(*values)
	*values = append(*values, v)
	return pos[k]
}

// Total returns the number of counted rows.
func (p *PairCounts) Total() int {
	n := 0
	for _, c := range p.Pairs {
		n += c.Count
	}
	return n
}

// Table renders the long form as [<drug>, <method>, count].
func (p *PairCounts) Table() *Table {
	t, err := NewTable(p.DrugColumn, p.MethodColumn, "count")
	if err != nil {
		t = MustNewTable("drug", "method", "count")
	}
	for _, c := range p.Pairs {
		t.rows = append(t.rows, []interface{}{c.Drug, c.Method, int64(c.Count)})
	}
	return t
}

// Pivot reshapes the counts into a matrix with drugs as rows and methods as
// columns, both sorted.
func (p *PairCounts) Pivot() *Matrix {
	drugs := sortedCopy(p.Drugs)
	methods := sortedCopy(p.Methods)

	rowOf := make(map[string]int, len(drugs))
	for i, d := range drugs {
		rowOf[keyOf(d)] = i
	}
	colOf := make(map[string]int, len(methods))
	for j, m := range methods {
		colOf[keyOf(m)] = j
	}

	m := &Matrix{
		RowName: p.DrugColumn,
		ColName: p.MethodColumn,
		Rows:    labels(drugs),
		Cols:    labels(methods),
	}
	if len(drugs) == 0 || len(methods) == 0 {
		return m
	}
	m.Data = mat.NewDense(len(drugs), len(methods), nil)
	for _, c := range p.Pairs {
		m.Data.Set(rowOf[keyOf(c.Drug)], colOf[keyOf(c.Method)], float64(c.Count))
	}
	return m
}

// Matrix is a dense labelled count matrix.  Data is nil when either dimension
// is zero.
type Matrix struct {
	RowName string
	ColName string
	Rows    []string
	Cols    []string
	Data    *mat.Dense
}

// At returns the cell for the given labels.
func (m *Matrix) At(row, col string) (float64, bool) {
	i, j := indexOf(m.Rows, row), indexOf(m.Cols, col)
	if i < 0 || j < 0 || m.Data == nil {
		return 0, false
	}
	return m.Data.At(i, j), true
}

// Sum returns the sum of all cells.
func (m *Matrix) Sum() float64 {
	if m.Data == nil {
		return 0
	}
	return mat.Sum(m.Data)
}

// WithTotals returns a copy with a Total column of row sums and a Total row of
// column sums.  The bottom-right cell is the grand total.
func (m *Matrix) WithTotals() *Matrix {
	r, c := len(m.Rows), len(m.Cols)
	out := &Matrix{
		RowName: m.RowName,
		ColName: m.ColName,
		Rows:    append(append([]string(nil), m.Rows...), TotalLabel),
		Cols:    append(append([]string(nil), m.Cols...), TotalLabel),
		Data:    mat.NewDense(r+1, c+1, nil),
	}
	if m.Data != nil {
		out.Data.Slice(0, r, 0, c).(*mat.Dense).Copy(m.Data)
	}
	for i := 0; i < r; i++ {
		sum := 0.0
		for j := 0; j < c; j++ {
			sum += out.Data.At(i, j)
		}
		out.Data.Set(i, c, sum)
	}
	for j := 0; j <= c; j++ {
		sum := 0.0
		for i := 0; i < r; i++ {
			sum += out.Data.At(i, j)
		}
		out.Data.Set(r, j, sum)
	}
	return out
}

// Table renders the matrix with the row labels in a leading column named
// after the drug column.
func (m *Matrix) Table() *Table {
	t, err := NewTable(append([]string{m.RowName}, m.Cols...)...)
	if err != nil {
		t = MustNewTable(append([]string{""}, uniqueLabels(m.Cols)...)...)
	}
	for i, label := range m.Rows {
		row := make([]interface{}, 0, len(m.Cols)+1)
		row = append(row, label)
		for j := range m.Cols {
			row = append(row, int64(m.Data.At(i, j)))
		}
		t.rows = append(t.rows, row)
	}
	return t
}

func sortedCopy(vals []interface{}) []interface{} {
	out := append([]interface{}(nil), vals...)
	sort.SliceStable(out, func(i, j int) bool { return compareValues(out[i], out[j]) < 0 })
	return out
}

func labels(vals []interface{}) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = FormatValue(v)
	}
	return out
}

func uniqueLabels(cols []string) []string {
	seen := map[string]int{}
	out := make([]string, len(cols))
	for i, c := range cols {
		n := seen[c]
		seen[c] = n + 1
		if n > 0 {
			c = c + "." + FormatValue(int64(n))
		}
		out[i] = c
	}
	return out
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
