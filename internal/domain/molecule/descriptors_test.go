package molecule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/liposome-ivr/pkg/errors"
)

const (
	doxorubicin = "CC1C(C(CC(O1)OC2CC(CC3=C2C(=C4C(=C3O)C(=O)C5=C(C4=O)C=CC=C5OC)O)(C(=O)CO)O)N)O"
	cytarabine  = "C1=CN(C(=O)N=C1N)C2C(C(C(O2)CO)O)O"
	aspirin     = "CC(=O)Oc1ccccc1C(=O)O"
)

func compute(t *testing.T, fn DescriptorFunc, smiles string) float64 {
	t.Helper()
	v, err := fn(mustParse(t, smiles))
	require.NoError(t, err, smiles)
	return v
}

func TestDescriptors_Ethanol(t *testing.T) {
	assert.InDelta(t, 46.069, compute(t, MolWt, "CCO"), 1e-9)
	assert.InDelta(t, 40.021, compute(t, HeavyAtomMolWt, "CCO"), 1e-9)
	assert.InDelta(t, 46.0418648135, compute(t, ExactMolWt, "CCO"), 1e-9)
	assert.Equal(t, 3.0, compute(t, HeavyAtomCount, "CCO"))
	assert.Equal(t, 1.0, compute(t, NumHeteroatoms, "CCO"))
	assert.Equal(t, 1.0, compute(t, NHOHCount, "CCO"))
	assert.Equal(t, 1.0, compute(t, NOCount, "CCO"))
	assert.Equal(t, 1.0, compute(t, NumHDonors, "CCO"))
	assert.Equal(t, 1.0, compute(t, NumHAcceptors, "CCO"))
	assert.Equal(t, 0.0, compute(t, NumRotatableBonds, "CCO"))
	assert.Equal(t, 0.0, compute(t, RingCount, "CCO"))
	assert.Equal(t, 1.0, compute(t, FractionCSP3, "CCO"))
	assert.InDelta(t, 20.23, compute(t, TPSA, "CCO"), 1e-9)
	assert.InDelta(t, -0.0014, compute(t, MolLogP, "CCO"), 1e-9)
}

func TestDescriptors_Benzene(t *testing.T) {
	assert.InDelta(t, 78.114, compute(t, MolWt, "c1ccccc1"), 1e-9)
	assert.Equal(t, 1.0, compute(t, RingCount, "c1ccccc1"))
	assert.Equal(t, 0.0, compute(t, FractionCSP3, "c1ccccc1"))
	assert.Equal(t, 0.0, compute(t, TPSA, "c1ccccc1"))
	assert.InDelta(t, 1.6866, compute(t, MolLogP, "c1ccccc1"), 1e-9)
}

func TestDescriptors_Aspirin(t *testing.T) {
	assert.InDelta(t, 180.159, compute(t, MolWt, aspirin), 1e-9)
	assert.Equal(t, 13.0, compute(t, HeavyAtomCount, aspirin))
	assert.InDelta(t, 63.60, compute(t, TPSA, aspirin), 1e-9)
	assert.Equal(t, 2.0, compute(t, NumRotatableBonds, aspirin))
	assert.Equal(t, 1.0, compute(t, NumHDonors, aspirin))
	assert.Equal(t, 3.0, compute(t, NumHAcceptors, aspirin))
	assert.Equal(t, 1.0, compute(t, RingCount, aspirin))
	assert.InDelta(t, 1.3101, compute(t, MolLogP, aspirin), 1e-9)
}

func TestDescriptors_Heterocycles(t *testing.T) {
	assert.InDelta(t, 12.89, compute(t, TPSA, "c1ccncc1"), 1e-9)
	assert.Equal(t, 1.0, compute(t, NumHAcceptors, "c1ccncc1"))

	assert.InDelta(t, 15.79, compute(t, TPSA, "c1cc[nH]c1"), 1e-9)
	assert.Equal(t, 1.0, compute(t, NumHDonors, "c1cc[nH]c1"))
	assert.Equal(t, 0.0, compute(t, NumHAcceptors, "c1cc[nH]c1"))

	// Kekulé input is perceived aromatic before typing.
	assert.InDelta(t, 12.89, compute(t, TPSA, "C1=CC=NC=C1"), 1e-9)
	assert.Equal(t, 1.0, compute(t, NumHAcceptors, "C1=CC=NC=C1"))
	assert.InDelta(t, 1.0816, compute(t, MolLogP, "C1=CC=NC=C1"), 1e-9)
	assert.InDelta(t, 1.0816, compute(t, MolLogP, "c1ccncc1"), 1e-9)
	assert.InDelta(t, 1.6866, compute(t, MolLogP, "C1=CC=CC=C1"), 1e-9)
}

func TestNumHAcceptors_Lipinski(t *testing.T) {
	cases := []struct {
		smiles string
		want   float64
	}{
		{"CC(=O)O", 1},      // acid hydroxyl is not an acceptor
		{"CC(N)=O", 1},      // amide nitrogen is not an acceptor
		{"CCN(CC)CC", 1},    // tertiary amine
		{"Fc1ccccc1", 1},    // fluorine
		{"COC", 1},          // ether
		{"C[O-]", 1},        // alkoxide
		{"C[N+](C)(C)C", 0}, // quaternary ammonium
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, compute(t, NumHAcceptors, tc.smiles), tc.smiles)
	}
}

func TestNumHDonors_Lipinski(t *testing.T) {
	assert.Equal(t, 1.0, compute(t, NumHDonors, "CC(N)=O"))
	assert.Equal(t, 1.0, compute(t, NumHDonors, "C[NH3+]"))
	assert.Equal(t, 0.0, compute(t, NumHDonors, "C[N+](C)(C)C"))
	assert.Equal(t, 1.0, compute(t, NumHDonors, "CS"))
	assert.Equal(t, 1.0, compute(t, NumHDonors, "C1=CNC=C1"))
}

func TestNumRotatableBonds_Strict(t *testing.T) {
	cases := []struct {
		smiles string
		want   float64
	}{
		{"CCCC", 1},
		{"CCC(F)(F)F", 0}, // CF3 cannot anchor a rotor
		{"CCC(C)(C)C", 0}, // nor can a tert-butyl centre
		{"CC(=O)OC", 0},   // ester C-O
		{"CC(=O)NC", 0},   // amide C-N
		{"CCC(=O)OCC", 2}, // the ester's outer bonds still rotate
		{"CC#CCC", 0},     // next to a triple bond
		{"c1ccccc1-c1ccccc1", 1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, compute(t, NumRotatableBonds, tc.smiles), tc.smiles)
	}
}

func TestMolLogP_Crippen(t *testing.T) {
	cases := []struct {
		smiles string
		want   float64
	}{
		{"CC(=O)O", 0.0909},
		{"CC#N", 0.52988},
		{"Nc1ccccc1", 1.2688},
		{"CCN(CC)CC", 1.3481},
		{"c1ccoc1", 1.2796},
		{"O", -0.8247},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, compute(t, MolLogP, tc.smiles), 1e-9, tc.smiles)
	}
}

func TestDescriptors_Drugs(t *testing.T) {
	assert.InDelta(t, 543.525, compute(t, MolWt, doxorubicin), 1e-6)
	assert.Equal(t, 5.0, compute(t, RingCount, doxorubicin))
	assert.Equal(t, 39.0, compute(t, HeavyAtomCount, doxorubicin))

	assert.InDelta(t, 243.219, compute(t, MolWt, cytarabine), 1e-6)
	assert.Equal(t, 2.0, compute(t, RingCount, cytarabine))
	assert.InDelta(t, 130.83, compute(t, TPSA, cytarabine), 1e-9)
	assert.Equal(t, 8.0, compute(t, NumHAcceptors, cytarabine))
	assert.Equal(t, 4.0, compute(t, NumHDonors, cytarabine))
	assert.Equal(t, 2.0, compute(t, NumRotatableBonds, cytarabine))
}

func TestDescriptors_DoxorubicinReference(t *testing.T) {
	assert.InDelta(t, 206.07, compute(t, TPSA, doxorubicin), 1e-9)
	assert.Equal(t, 12.0, compute(t, NumHAcceptors, doxorubicin))
	assert.Equal(t, 6.0, compute(t, NumHDonors, doxorubicin))
	assert.Equal(t, 5.0, compute(t, NumRotatableBonds, doxorubicin))
	assert.InDelta(t, 0.0013, compute(t, MolLogP, doxorubicin), 1e-9)
}

func TestDescriptors_ChargedExactMass(t *testing.T) {
	want := 14.0030740052 + 4*1.0078250319 - electronMass
	assert.InDelta(t, want, compute(t, ExactMolWt, "[NH4+]"), 1e-9)
}

func TestDescriptors_IsotopeMass(t *testing.T) {
	assert.InDelta(t, 13+4*1.008, compute(t, MolWt, "[13CH4]"), 1e-9)
}

func TestDescriptors_UnsupportedElement(t *testing.T) {
	_, err := MolWt(mustParse(t, "[U]"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnsupportedElement))

	_, err = MolLogP(mustParse(t, "[Gd+3]"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnsupportedElement))
}

func TestRegistry_Default(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, 14, r.Len())
	assert.Equal(t, "MolWt", r.Names()[0])
	assert.Equal(t, "MolLogP", r.Names()[13])

	for _, d := range r.Descriptors() {
		_, err := d.Fn(nil)
		assert.True(t, errors.IsCode(err, errors.ErrCodeMoleculeNil), d.Name)
	}
}

func TestRegistry_Select(t *testing.T) {
	r, err := DefaultRegistry().Select([]string{"TPSA", "MolWt"})
	require.NoError(t, err)
	assert.Equal(t, []string{"TPSA", "MolWt"}, r.Names())

	_, err = DefaultRegistry().Select([]string{"Nope"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeDescriptorUnknown))

	_, err = DefaultRegistry().Select([]string{"TPSA", "TPSA"})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestNewRegistry_Validation(t *testing.T) {
	_, err := NewRegistry(Descriptor{Name: "x"})
	assert.Error(t, err)

	fn := func(*Molecule) (float64, error) { return 1, nil }
	_, err = NewRegistry(Descriptor{Name: "x", Fn: fn}, Descriptor{Name: "x", Fn: fn})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}
