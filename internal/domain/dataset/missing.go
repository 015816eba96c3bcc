package dataset

import (
	"sort"

	"github.com/turtacn/liposome-ivr/pkg/errors"
)

// DefaultMissingLabels are the display names used in the missing-value
// report for the standard numeric columns.
var DefaultMissingLabels = map[string]string{
	"media_pH":        "Media pH",
	"media_temp_oC":   "Media temp / °C",
	"media_volume_mL": "Media volume / mL",
	"drug_loading":    "Drug-lipid / %",
	"Z_average_nm":    "Particle size / nm",
	"zeta_potential":  "Zeta potential / mV",
}

// MissingEntry is the missing-value count of one column.
type MissingEntry struct {
	Column  string
	Label   string
	Total   int
	Percent float64
}

// MissingReport lists missing-value counts per column, most missing first.
type MissingReport struct {
	Rows    int
	Entries []MissingEntry
}

// MissingSummary counts null cells in each named column.  Percent is
// missing/rows×100, unrounded.  Columns with equal totals keep the order in
// which they were requested.  labels maps column names to display labels;
// columns without a label are shown under their own name.
func MissingSummary(t *Table, columns []string, labels map[string]string) (*MissingReport, error) {
	if len(columns) == 0 {
		return nil, errors.New(errors.CodeInvalidParam, "missing-value summary needs at least one column")
	}
	if t.Len() == 0 {
		return nil, errors.New(errors.ErrCodeEmptyTable, "missing-value summary over an empty table")
	}

	rep := &MissingReport{Rows: t.Len(), Entries: make([]MissingEntry, 0, len(columns))}
	for _, c := range columns {
		vals, err := t.Column(c)
		if err != nil {
			return nil, err
		}
		n := 0
		for _, v := range vals {
			if IsNull(v) {
				n++
			}
		}
		label := c
		if l, ok := labels[c]; ok && l != "" {
			label = l
		}
		rep.Entries = append(rep.Entries, MissingEntry{
			Column:  c,
			Label:   label,
			Total:   n,
			Percent: float64(n) / float64(t.Len()) * 100,
		})
	}

	sort.SliceStable(rep.Entries, func(i, j int) bool { return rep.Entries[i].Total > rep.Entries[j].Total })
	return rep, nil
}

// Table renders the report as [Column, Total, Percent] using display labels.
func (r *MissingReport) Table() *Table {
	t := MustNewTable("Column", "Total", "Percent")
	for _, e := range r.Entries {
		t.rows = append(t.rows, []interface{}{e.Label, int64(e.Total), e.Percent})
	}
	return t
}
