package repositories_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/liposome-ivr/internal/config"
	"github.com/turtacn/liposome-ivr/internal/infrastructure/database/repositories"
	"github.com/turtacn/liposome-ivr/internal/testutil"
	"github.com/turtacn/liposome-ivr/pkg/errors"
)

type recordingObserver struct {
	names []string
	errs  []error
}

func (o *recordingObserver) ObserveQuery(name string, _ time.Duration, err error) {
	o.names = append(o.names, name)
	o.errs = append(o.errs, err)
}

func TestCombinedFeatures_Default(t *testing.T) {
	conn := testutil.OpenFixture(t)
	repo := repositories.NewIVRRepository(conn, testutil.NewMockLogger())

	tbl, err := repo.CombinedFeatures(context.Background(), config.DefaultIVRFeatures, config.DefaultCQAFeatures)
	require.NoError(t, err)
	require.NotNil(t, tbl)

	assert.Equal(t, []string{
		"formulation_ID", "ID", "release_method", "media_pH", "media_temp_oC", "media_volume_mL",
		"drug_loading", "structure_type", "Z_average_nm", "PDI", "zeta_potential",
	}, tbl.Columns())
	assert.Equal(t, 5, tbl.Len())

	assert.Equal(t, []interface{}{
		int64(1), int64(1), "dialysis", 7.4, 37.0, 50.0, 0.1, "LUV", 100.0, 0.1, -10.0,
	}, tbl.Row(0))

	vol, err := tbl.Value(1, "media_volume_mL")
	require.NoError(t, err)
	assert.Nil(t, vol)
}

func TestCombinedFeatures_StringFeatureList(t *testing.T) {
	conn := testutil.OpenFixture(t)
	repo := repositories.NewIVRRepository(conn, testutil.NewMockLogger())

	tbl, err := repo.CombinedFeatures(context.Background(),
		repositories.ParseColumnList("IVR.ID, release_method"), []string{"PDI"})
	require.NoError(t, err)
	assert.Equal(t, []string{"formulation_ID", "ID", "release_method", "PDI"}, tbl.Columns())
}

func TestCombinedFeatures_OneToOneRowCount(t *testing.T) {
	var seed strings.Builder
	seed.WriteString("INSERT INTO IVR (ID, formulation_ID, release_method) VALUES ")
	for i := 6; i <= 10; i++ {
		if i > 6 {
			seed.WriteString(", ")
		}
		fmt.Fprintf(&seed, "(%d, %d, 'dialysis')", i, i%4+1)
	}
	seed.WriteString(";")

	conn := testutil.OpenFixture(t, seed.String())
	repo := repositories.NewIVRRepository(conn, testutil.NewMockLogger())

	assert.Equal(t, 10, testutil.CountRows(t, conn.DB(), "IVR"))
	tbl, err := repo.CombinedFeatures(context.Background(), config.DefaultIVRFeatures, config.DefaultCQAFeatures)
	require.NoError(t, err)
	assert.Equal(t, 10, tbl.Len())
}

func TestCombinedFeatures_DuplicateCQARowsDuplicateExperiments(t *testing.T) {
	conn := testutil.OpenFixture(t, testutil.DuplicateCQASeed)
	repo := repositories.NewIVRRepository(conn, testutil.NewMockLogger())

	tbl, err := repo.CombinedFeatures(context.Background(), config.DefaultIVRFeatures, config.DefaultCQAFeatures)
	require.NoError(t, err)
	assert.Equal(t, 7, tbl.Len())

	v, err := repo.CQACardinality(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []repositories.CardinalityViolation{{FormulationID: 1, Rows: 2}}, v)
}

func TestCombinedFeatures_UnknownColumn(t *testing.T) {
	conn := testutil.OpenFixture(t)
	log := testutil.NewMockLogger()
	repo := repositories.NewIVRRepository(conn, log)

	tbl, err := repo.CombinedFeatures(context.Background(), []string{"IVR.ID", "bogus"}, config.DefaultCQAFeatures)
	assert.Nil(t, tbl)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidColumn))
	assert.True(t, log.HasMessage("error", "SQL Error"))
}

func TestCombinedFeatures_StoreRejectsQuery(t *testing.T) {
	conn := testutil.OpenFixture(t)
	log := testutil.NewMockLogger()
	obs := &recordingObserver{}
	repo := repositories.NewIVRRepository(conn, log).WithObserver(obs)

	// ID exists in both tables, so the store reports it as ambiguous.
	tbl, err := repo.CombinedFeatures(context.Background(), []string{"ID"}, config.DefaultCQAFeatures)
	assert.Nil(t, tbl)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeQueryFailed, errors.GetCode(err))
	assert.Contains(t, err.Error(), "ambiguous")

	errs := log.MessagesAt("error")
	require.Len(t, errs, 1)
	logged, ok := errs[0].Field("error")
	require.True(t, ok)
	assert.Contains(t, fmt.Sprint(logged), "ambiguous")

	require.Equal(t, []string{"combined_features"}, obs.names)
	assert.Error(t, obs.errs[0])
}

func TestQueries_ClosedConnection(t *testing.T) {
	conn := testutil.OpenFixture(t)
	repo := repositories.NewIVRRepository(conn, testutil.NewMockLogger())
	require.NoError(t, conn.Close())

	_, err := repo.APIFrame(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeQueryFailed))
	_, err = repo.CQACardinality(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeQueryFailed))
}

func TestAPIFrameNamesAndTimeUnits(t *testing.T) {
	conn := testutil.OpenFixture(t)
	obs := &recordingObserver{}
	repo := repositories.NewIVRRepository(conn, testutil.NewMockLogger()).WithObserver(obs)
	ctx := context.Background()

	frame, err := repo.APIFrame(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "formulation_ID", "API_ID"}, frame.Columns())
	assert.Equal(t, 5, frame.Len())
	assert.Equal(t, []interface{}{int64(4), int64(3), int64(2)}, frame.Row(3))

	names, err := repo.APINames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "API_name", "SMILES"}, names.Columns())
	assert.Equal(t, 3, names.Len())
	assert.Equal(t, testutil.CytarabineSMILES, names.Row(1)[2])

	units, err := repo.TimeUnits(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "Time_units"}, units.Columns())
	assert.Equal(t, "days", units.Row(4)[1])

	none, err := repo.CQACardinality(ctx)
	require.NoError(t, err)
	assert.Empty(t, none)

	assert.Equal(t, []string{"api_frame", "api_names", "time_units", "cqa_cardinality"}, obs.names)
	for _, e := range obs.errs {
		assert.NoError(t, e)
	}
}
