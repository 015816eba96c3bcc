package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/turtacn/liposome-ivr/internal/config"
	"github.com/turtacn/liposome-ivr/internal/infrastructure/database"
	"github.com/turtacn/liposome-ivr/internal/infrastructure/monitoring/logging"
)

// Fixture SMILES.  MysterySMILES does not parse.
const (
	DoxorubicinSMILES = "CC1C(C(CC(O1)OC2CC(CC3=C2C(=C4C(=C3O)C(=O)C5=C(C4=O)C=CC=C5OC)O)(C(=O)CO)O)N)O"
	CytarabineSMILES  = "C1=CN(C(=O)N=C1N)C2C(C(C(O2)CO)O)O"
	MysterySMILES     = "C1CC(("
)

// FixtureSeed populates a migrated store with five IVR experiments over four
// formulations and three APIs.
//
//	IVR  formulation  API          release_method
//	1    1            Doxorubicin  dialysis
//	2    1            Doxorubicin  sample and separate
//	3    2            Doxorubicin  dialysis
//	4    3            Cytarabine   dialysis
//	5    4            Mystery      USP4
const FixtureSeed = `
INSERT INTO API_name (ID, API_name, SMILES) VALUES
    (1, 'Doxorubicin', '` + DoxorubicinSMILES + `'),
    (2, 'Cytarabine', '` + CytarabineSMILES + `'),
    (3, 'Mystery', '` + MysterySMILES + `');

INSERT INTO formulation (ID, API_ID, formulation_type) VALUES
    (1, 1, 'liposome'),
    (2, 1, 'liposome'),
    (3, 2, 'liposome'),
    (4, 3, 'liposome');

INSERT INTO formulation_CPPs_CQAs (ID, formulation_ID, drug_loading, structure_type, Z_average_nm, PDI, zeta_potential) VALUES
    (1, 1, 0.1, 'LUV', 100.0, 0.1, -10.0),
    (2, 2, 0.2, 'SUV', 80.0, NULL, NULL),
    (3, 3, 0.05, 'MLV', NULL, 0.3, -5.0),
    (4, 4, 0.15, 'LUV', 120.0, 0.2, NULL);

INSERT INTO IVR (ID, formulation_ID, release_method, media_pH, media_temp_oC, media_volume_mL, Time_units) VALUES
    (1, 1, 'dialysis', 7.4, 37.0, 50.0, 'h'),
    (2, 1, 'sample and separate', 5.5, 37.0, NULL, 'h'),
    (3, 2, 'dialysis', 7.4, 37.0, 100.0, 'min'),
    (4, 3, 'dialysis', 7.4, NULL, 200.0, 'h'),
    (5, 4, 'USP4', NULL, 37.0, 10.0, 'days');
`

// DuplicateCQASeed adds a second quality-attribute row for formulation 1.
const DuplicateCQASeed = `
INSERT INTO formulation_CPPs_CQAs (ID, formulation_ID, drug_loading, structure_type, Z_average_nm, PDI, zeta_potential)
VALUES (5, 1, 0.1, 'LUV', 105.0, 0.12, -11.0);
`

// NewFixtureStore creates a migrated SQLite file under t.TempDir(), applies
// each seed script and returns the file path.
func NewFixtureStore(t testing.TB, seeds ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "liposome_IVR.db")
	opts := database.Options{Driver: config.DriverSQLite, Path: path}

	mg, err := database.NewMigrator(opts, logging.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, mg.Up())
	require.NoError(t, mg.Close())

	if len(seeds) > 0 {
		opts.CreateIfMissing = true
		conn, err := database.Open(context.Background(), opts, logging.NewNopLogger())
		require.NoError(t, err)
		for _, s := range seeds {
			_, err := conn.DB().Exec(s)
			require.NoError(t, err)
		}
		require.NoError(t, conn.Close())
	}
	return path
}

// OpenFixture seeds a fixture store with FixtureSeed plus extra seeds and
// opens it read-only.  The connection is closed by t.Cleanup.
func OpenFixture(t testing.TB, extra ...string) *database.Connection {
	t.Helper()

	path := NewFixtureStore(t, append([]string{FixtureSeed}, extra...)...)
	conn, err := database.Open(context.Background(), database.Options{
		Driver:   config.DriverSQLite,
		Path:     path,
		ReadOnly: true,
	}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// CountRows returns SELECT COUNT(*) FROM table.
func CountRows(t testing.TB, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}
