// Package repositories implements the read-only queries the build pipeline
// runs against the IVR store.
package repositories

import (
	"context"
	"strings"
	"time"

	"github.com/turtacn/liposome-ivr/internal/domain/dataset"
	"github.com/turtacn/liposome-ivr/internal/infrastructure/database"
	"github.com/turtacn/liposome-ivr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/liposome-ivr/pkg/errors"
)

// CardinalityViolation is a formulation with more than one quality-attribute
// row.  Joining on such a formulation duplicates experiment rows.
type CardinalityViolation struct {
	FormulationID int64
	Rows          int
}

// IVRRepository reads experiment, quality-attribute and API records.
type IVRRepository struct {
	db       queryExecutor
	logger   logging.Logger
	observer QueryObserver
}

// NewIVRRepository constructs a ready-to-use IVRRepository over conn.
func NewIVRRepository(conn *database.Connection, logger logging.Logger) *IVRRepository {
	return &IVRRepository{db: conn.DB(), logger: logger.Named("ivr_repo")}
}

// WithObserver returns the repository reporting every query to obs.
func (r *IVRRepository) WithObserver(obs QueryObserver) *IVRRepository {
	clone := *r
	clone.observer = obs
	return &clone
}

// ─────────────────────────────────────────────────────────────────────────────
// CombinedFeatures
// ─────────────────────────────────────────────────────────────────────────────

// CombinedFeatures inner-joins IVR with formulation_CPPs_CQAs on
// formulation_ID and projects formulation_ID followed by the requested
// experiment and quality-attribute columns.
//
// Every name is checked against the schema before it reaches the query text.
// On any failure, whether an unknown name or a store error, the cause is
// logged and the table is nil.  Callers must check for a nil table.
func (r *IVRRepository) CombinedFeatures(ctx context.Context, ivrFeatures, cqaFeatures []string) (*dataset.Table, error) {
	query, err := buildCombinedQuery(ivrFeatures, cqaFeatures)
	if err != nil {
		r.logger.Error("SQL Error", logging.String("query", "combined_features"), logging.Err(err))
		return nil, err
	}
	return r.queryTable(ctx, "combined_features", query)
}

func buildCombinedQuery(ivrFeatures, cqaFeatures []string) (string, error) {
	if len(ivrFeatures) == 0 || len(cqaFeatures) == 0 {
		return "", errors.New(errors.ErrCodeInvalidColumn, "experiment and quality-attribute feature lists must not be empty")
	}

	items := []projection{{expr: TableIVR + ".formulation_ID", alias: "formulation_ID"}}
	for _, f := range ivrFeatures {
		p, err := resolveIVRFeature(strings.TrimSpace(f))
		if err != nil {
			return "", err
		}
		items = append(items, p)
	}
	for _, f := range cqaFeatures {
		p, err := resolveCQAFeature(strings.TrimSpace(f))
		if err != nil {
			return "", err
		}
		items = append(items, p)
	}

	seen := make(map[string]bool, len(items))
	exprs := make([]string, len(items))
	for i, p := range items {
		if seen[p.alias] {
			return "", errors.Newf(errors.ErrCodeInvalidColumn, "column %q selected twice", p.alias)
		}
		seen[p.alias] = true
		exprs[i] = p.sql()
	}

	return `SELECT ` + strings.Join(exprs, ", ") + `
FROM IVR
JOIN formulation_CPPs_CQAs ON formulation_CPPs_CQAs.formulation_ID = IVR.formulation_ID
ORDER BY IVR.ID, formulation_CPPs_CQAs.ID`, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// API and experiment lookups
// ─────────────────────────────────────────────────────────────────────────────

// APIFrame returns [ID, formulation_ID, API_ID]: each experiment with the API
// of its formulation.
func (r *IVRRepository) APIFrame(ctx context.Context) (*dataset.Table, error) {
	return r.queryTable(ctx, "api_frame", `SELECT IVR.ID AS "ID", IVR.formulation_ID AS "formulation_ID", formulation.API_ID AS "API_ID"
FROM IVR
JOIN formulation ON formulation.ID = IVR.formulation_ID
ORDER BY IVR.ID`)
}

// APINames returns [ID, API_name, SMILES] for every API record.
func (r *IVRRepository) APINames(ctx context.Context) (*dataset.Table, error) {
	return r.queryTable(ctx, "api_names", `SELECT ID AS "ID", API_name AS "API_name", SMILES AS "SMILES"
FROM API_name
ORDER BY ID`)
}

// TimeUnits returns [ID, Time_units] for every experiment.
func (r *IVRRepository) TimeUnits(ctx context.Context) (*dataset.Table, error) {
	return r.queryTable(ctx, "time_units", `SELECT ID AS "ID", Time_units AS "Time_units"
FROM IVR
ORDER BY ID`)
}

// CQACardinality lists formulations with more than one quality-attribute row.
func (r *IVRRepository) CQACardinality(ctx context.Context) ([]CardinalityViolation, error) {
	t, err := r.queryTable(ctx, "cqa_cardinality", `SELECT formulation_ID AS "formulation_ID", COUNT(*) AS "rows"
FROM formulation_CPPs_CQAs
GROUP BY formulation_ID
HAVING COUNT(*) > 1
ORDER BY formulation_ID`)
	if err != nil {
		return nil, err
	}

	out := make([]CardinalityViolation, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		row := t.Row(i)
		fid, _ := row[0].(int64)
		n, _ := row[1].(int64)
		out = append(out, CardinalityViolation{FormulationID: fid, Rows: int(n)})
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

// queryTable runs query and materialises the result.  Store errors are logged
// with the driver message and surfaced as ErrCodeQueryFailed; the driver
// error stays reachable through Unwrap.
func (r *IVRRepository) queryTable(ctx context.Context, name, query string, args ...interface{}) (t *dataset.Table, err error) {
	start := time.Now()
	defer func() {
		if r.observer != nil {
			r.observer.ObserveQuery(name, time.Since(start), err)
		}
	}()

	r.logger.Debug("Running query", logging.String("query", name))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.queryFailed(name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, r.queryFailed(name, err)
	}
	t, err = dataset.NewTable(cols...)
	if err != nil {
		return nil, r.queryFailed(name, err)
	}

	vals := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, r.queryFailed(name, err)
		}
		if err := t.AppendRow(vals...); err != nil {
			return nil, r.queryFailed(name, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, r.queryFailed(name, err)
	}

	r.logger.Debug("Query complete", logging.String("query", name), logging.Int("rows", t.Len()))
	return t, nil
}

func (r *IVRRepository) queryFailed(name string, cause error) error {
	r.logger.Error("SQL Error", logging.String("query", name), logging.Err(cause))
	return errors.Wrap(cause, errors.ErrCodeQueryFailed, "query "+name+" failed")
}
