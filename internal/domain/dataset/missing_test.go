package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/liposome-ivr/pkg/errors"
)

func TestMissingSummary(t *testing.T) {
	tbl := buildTable(t, []string{"media_pH", "PDI", "zeta_potential"},
		[]interface{}{7.4, nil, nil},
		[]interface{}{nil, 0.1, nil},
		[]interface{}{7.4, 0.2, nil},
		[]interface{}{5.5, nil, -3.0},
	)

	rep, err := MissingSummary(tbl, []string{"media_pH", "PDI", "zeta_potential"}, DefaultMissingLabels)
	require.NoError(t, err)

	require.Len(t, rep.Entries, 3)
	assert.Equal(t, MissingEntry{Column: "zeta_potential", Label: "Zeta potential / mV", Total: 3, Percent: 75}, rep.Entries[0])
	assert.Equal(t, MissingEntry{Column: "PDI", Label: "PDI", Total: 2, Percent: 50}, rep.Entries[1])
	assert.Equal(t, MissingEntry{Column: "media_pH", Label: "Media pH", Total: 1, Percent: 25}, rep.Entries[2])

	recs := rep.Table().Records(false)
	assert.Equal(t, []string{"Column", "Total", "Percent"}, recs[0])
	assert.Equal(t, []string{"Zeta potential / mV", "3", "75.0"}, recs[1])
}

func TestMissingSummary_Errors(t *testing.T) {
	tbl := buildTable(t, []string{"a"}, []interface{}{1})

	_, err := MissingSummary(tbl, nil, nil)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))

	_, err = MissingSummary(MustNewTable("a"), []string{"a"}, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeEmptyTable))

	_, err = MissingSummary(tbl, []string{"b"}, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeColumnNotFound))
}
