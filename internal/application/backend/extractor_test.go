package backend

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/liposome-ivr/internal/domain/molecule"
	"github.com/turtacn/liposome-ivr/internal/testutil"
)

func constant(v float64) molecule.DescriptorFunc {
	return func(*molecule.Molecule) (float64, error) { return v, nil }
}

func newTestRegistry(t *testing.T, descs ...molecule.Descriptor) *molecule.Registry {
	t.Helper()
	r, err := molecule.NewRegistry(descs...)
	require.NoError(t, err)
	return r
}

func TestExtract_FailureBecomesSentinel(t *testing.T) {
	log := testutil.NewMockLogger()
	reg := newTestRegistry(t,
		molecule.Descriptor{Name: "f1", Fn: constant(5.2)},
		molecule.Descriptor{Name: "f2", Fn: func(*molecule.Molecule) (float64, error) { return 0, fmt.Errorf("unsupported") }},
		molecule.Descriptor{Name: "f3", Fn: constant(0.1)},
	)
	e := NewDescriptorExtractor(reg, log)

	mol, err := molecule.ParseSMILES("CCO")
	require.NoError(t, err)
	vec := e.Extract(mol)

	assert.Equal(t, map[string]interface{}{"f1": 5.2, "f2": nil, "f3": 0.1}, vec.Map())
	assert.Equal(t, []string{"f1", "f2", "f3"}, vec.Names())

	errs := log.MessagesAt("error")
	require.Len(t, errs, 1)
	assert.Equal(t, "Descriptor computation failed", errs[0].Message)
	name, _ := errs[0].Field("descriptor")
	assert.Equal(t, "f2", name)
	smiles, _ := errs[0].Field("smiles")
	assert.Equal(t, "CCO", smiles)
	_, hasStack := errs[0].Field("stack")
	assert.True(t, hasStack)
}

func TestExtract_PanicIsContained(t *testing.T) {
	log := testutil.NewMockLogger()
	reg := newTestRegistry(t,
		molecule.Descriptor{Name: "boom", Fn: func(*molecule.Molecule) (float64, error) { panic("index out of range") }},
		molecule.Descriptor{Name: "ok", Fn: constant(1)},
	)
	var failed []string
	e := NewDescriptorExtractor(reg, log, WithFailureHook(func(d string) { failed = append(failed, d) }))

	var vec molecule.Vector
	require.NotPanics(t, func() { vec = e.Extract(&molecule.Molecule{SMILES: "C"}) })

	v, _ := vec.Value("boom")
	assert.Nil(t, v)
	v, _ = vec.Value("ok")
	assert.Equal(t, 1.0, v)
	assert.Equal(t, []string{"boom"}, failed)

	errs := log.MessagesAt("error")
	require.Len(t, errs, 1)
	stack, _ := errs[0].Field("stack")
	assert.Contains(t, stack, "goroutine")
}

func TestExtract_NilMoleculeKeepsAllKeys(t *testing.T) {
	log := testutil.NewMockLogger()
	e := NewDescriptorExtractor(nil, log, WithSentinel(-1.0))

	vec := e.Extract(nil)
	assert.Equal(t, molecule.DefaultRegistry().Names(), vec.Names())
	for _, v := range vec.Values() {
		assert.Equal(t, -1.0, v)
	}
	assert.Len(t, log.MessagesAt("error"), molecule.DefaultRegistry().Len())
}

func TestExtractSMILES_ParseFailure(t *testing.T) {
	log := testutil.NewMockLogger()
	reg, err := molecule.DefaultRegistry().Select([]string{"MolWt", "TPSA"})
	require.NoError(t, err)
	e := NewDescriptorExtractor(reg, log)

	vec, err := e.ExtractSMILES(testutil.MysterySMILES)
	assert.Error(t, err)
	assert.Equal(t, map[string]interface{}{"MolWt": nil, "TPSA": nil}, vec.Map())
	assert.True(t, log.HasMessage("warn", "Failed to parse SMILES"))

	errs := log.MessagesAt("error")
	require.Len(t, errs, 2)
	for _, m := range errs {
		smiles, _ := m.Field("smiles")
		assert.Equal(t, testutil.MysterySMILES, smiles)
	}
}

func TestExtractSMILES_Success(t *testing.T) {
	reg, err := molecule.DefaultRegistry().Select([]string{"MolWt"})
	require.NoError(t, err)
	e := NewDescriptorExtractor(reg, testutil.NewMockLogger())

	vec, err := e.ExtractSMILES(testutil.CytarabineSMILES)
	require.NoError(t, err)
	v, _ := vec.Value("MolWt")
	assert.InDelta(t, 243.219, v, 1e-6)
	assert.Empty(t, vec.Failures())
}

func TestParseSentinel(t *testing.T) {
	assert.Nil(t, ParseSentinel(""))
	assert.Nil(t, ParseSentinel(" NULL "))
	assert.Equal(t, -999.0, ParseSentinel("-999"))
	assert.Equal(t, "n/a", ParseSentinel("n/a"))
}
