//go:build integration

// Integration tests against PostgreSQL.  They require Docker and are gated
// behind the "integration" build tag.
package repositories_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/liposome-ivr/internal/config"
	"github.com/turtacn/liposome-ivr/internal/infrastructure/database"
	"github.com/turtacn/liposome-ivr/internal/infrastructure/database/repositories"
	"github.com/turtacn/liposome-ivr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/liposome-ivr/internal/testutil"
)

// startPostgres launches a PostgreSQL 16 container, applies the embedded
// migrations and the fixture seed, and returns an open connection.
func startPostgres(t *testing.T) *database.Connection {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "ivr_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	opts := database.Options{
		Driver: config.DriverPGX,
		DSN:    fmt.Sprintf("postgres://test:test@%s:%s/ivr_test?sslmode=disable", host, port.Port()),
	}

	mg, err := database.NewMigrator(opts, logging.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, mg.Up())
	require.NoError(t, mg.Close())

	conn, err := database.Open(ctx, opts, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	for _, stmt := range strings.Split(testutil.FixtureSeed, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		_, err := conn.DB().ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
	return conn
}

func TestPostgres_MatchesSQLite(t *testing.T) {
	pg := startPostgres(t)
	lite := testutil.OpenFixture(t)
	ctx := context.Background()

	pgRepo := repositories.NewIVRRepository(pg, logging.NewNopLogger())
	liteRepo := repositories.NewIVRRepository(lite, logging.NewNopLogger())

	pgTbl, err := pgRepo.CombinedFeatures(ctx, config.DefaultIVRFeatures, config.DefaultCQAFeatures)
	require.NoError(t, err)
	liteTbl, err := liteRepo.CombinedFeatures(ctx, config.DefaultIVRFeatures, config.DefaultCQAFeatures)
	require.NoError(t, err)

	assert.Equal(t, liteTbl.Columns(), pgTbl.Columns())
	require.Equal(t, liteTbl.Len(), pgTbl.Len())
	for i := 0; i < liteTbl.Len(); i++ {
		assert.Equal(t, liteTbl.Row(i), pgTbl.Row(i), "row %d", i)
	}

	pgFrame, err := pgRepo.APIFrame(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "formulation_ID", "API_ID"}, pgFrame.Columns())
	assert.Equal(t, 5, pgFrame.Len())

	units, err := pgRepo.TimeUnits(ctx)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(5), "days"}, units.Row(4))
}

func TestPostgres_CardinalityAndErrors(t *testing.T) {
	pg := startPostgres(t)
	ctx := context.Background()
	repo := repositories.NewIVRRepository(pg, logging.NewNopLogger())

	violations, err := repo.CQACardinality(ctx)
	require.NoError(t, err)
	assert.Empty(t, violations)

	_, err = pg.DB().ExecContext(ctx, strings.TrimSpace(testutil.DuplicateCQASeed))
	require.NoError(t, err)

	violations, err = repo.CQACardinality(ctx)
	require.NoError(t, err)
	assert.Equal(t, []repositories.CardinalityViolation{{FormulationID: 1, Rows: 2}}, violations)

	_, err = pg.DB().ExecContext(ctx, "DROP TABLE formulation_CPPs_CQAs")
	require.NoError(t, err)
	tbl, err := repo.CombinedFeatures(ctx, config.DefaultIVRFeatures, config.DefaultCQAFeatures)
	assert.Nil(t, tbl)
	assert.Error(t, err)
}
