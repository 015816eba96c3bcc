package repositories

import (
	"strings"

	"github.com/turtacn/liposome-ivr/pkg/errors"
)

// Table names of the IVR store.
const (
	TableIVR = "IVR"
	TableCQA = "formulation_CPPs_CQAs"
)

// ivrColumns is the allow-list of experiment-table columns.
var ivrColumns = columnSet(
	"ID", "image_name", "formulation_ID", "formulation_name", "release_method",
	"drug_addition_vol_mL", "stirring_rpm", "aliquot_vol_mL", "test_duration_Hrs",
	"dilution_media", "dilution_factor", "post_sampling_treatment", "centrifuge_rpm",
	"centrifuge_time_min", "supernatant_aliquot_uL", "detection_method",
	"media_volume_mL", "media_pH", "media_temp_oC", "media_comp", "Time_units",
)

// cqaColumns is the allow-list of quality-attribute columns.
var cqaColumns = columnSet(
	"ID", "formulation_ID", "drug_loading", "preparation_method", "encapsulation_method",
	"incubation_temp_oC", "incubation_time_Hrs", "comments", "PS_instrument",
	"size_distribution", "measurement_angle_0", "structure_type", "Z_average_nm",
	"PDI", "zeta_potential", "weighted_Tm",
)

func columnSet(cols ...string) map[string]bool {
	m := make(map[string]bool, len(cols))
	for _, c := range cols {
		m[c] = true
	}
	return m
}

// ParseColumnList splits a comma-separated column list such as
// "IVR.ID, release_method" into trimmed, non-empty names.
func ParseColumnList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// projection is one validated SELECT item.
type projection struct {
	expr  string // as written into the query
	alias string // result column name
}

func (p projection) sql() string {
	return p.expr + ` AS "` + p.alias + `"`
}

// resolveIVRFeature validates an experiment-side feature.  Accepted forms are
// "IVR.col", "formulation_CPPs_CQAs.col" and a bare column of either table.
// A bare name present in both tables is passed through unqualified and left
// for the store to reject as ambiguous.
func resolveIVRFeature(name string) (projection, error) {
	if table, col, ok := strings.Cut(name, "."); ok {
		switch {
		case table == TableIVR && ivrColumns[col]:
			return projection{expr: TableIVR + "." + col, alias: col}, nil
		case table == TableCQA && cqaColumns[col]:
			return projection{expr: TableCQA + "." + col, alias: col}, nil
		}
		return projection{}, unknownColumn(name)
	}
	if ivrColumns[name] || cqaColumns[name] {
		return projection{expr: name, alias: name}, nil
	}
	return projection{}, unknownColumn(name)
}

// resolveCQAFeature validates a quality-attribute feature and qualifies it
// with the quality-attribute table.
func resolveCQAFeature(name string) (projection, error) {
	col := strings.TrimPrefix(name, TableCQA+".")
	if !cqaColumns[col] {
		return projection{}, unknownColumn(name)
	}
	return projection{expr: TableCQA + "." + col, alias: col}, nil
}

func unknownColumn(name string) error {
	return errors.Newf(errors.ErrCodeInvalidColumn, "unknown column %q", name)
}
