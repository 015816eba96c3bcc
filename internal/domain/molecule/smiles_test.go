package molecule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/liposome-ivr/pkg/errors"
)

func mustParse(t *testing.T, s string) *Molecule {
	t.Helper()
	m, err := ParseSMILES(s)
	require.NoError(t, err, s)
	return m
}

func hydrogens(m *Molecule) []int {
	out := make([]int, m.NumAtoms())
	for i := range m.Atoms {
		out[i] = m.HydrogenCount(i)
	}
	return out
}

func TestParseSMILES_Ethanol(t *testing.T) {
	m := mustParse(t, "CCO")
	assert.Equal(t, 3, m.NumAtoms())
	assert.Len(t, m.Bonds, 2)
	assert.Equal(t, []int{3, 2, 1}, hydrogens(m))
	assert.Equal(t, 1, m.Components())
	assert.Equal(t, "CCO", m.SMILES)
}

func TestParseSMILES_BondOrders(t *testing.T) {
	m := mustParse(t, "C=C")
	assert.Equal(t, BondDouble, m.Bonds[0].Order)
	assert.Equal(t, []int{2, 2}, hydrogens(m))

	m = mustParse(t, "C#N")
	assert.Equal(t, BondTriple, m.Bonds[0].Order)
	assert.Equal(t, []int{1, 0}, hydrogens(m))

	m = mustParse(t, "OC/C=C/C")
	assert.Equal(t, BondSingle, m.Bonds[1].Order)
	assert.Equal(t, BondDouble, m.Bonds[2].Order)
}

func TestParseSMILES_Aromatic(t *testing.T) {
	m := mustParse(t, "c1ccccc1")
	require.Equal(t, 6, m.NumAtoms())
	for i, a := range m.Atoms {
		assert.True(t, a.Aromatic)
		assert.True(t, m.InRing(i))
		assert.Equal(t, 1, m.HydrogenCount(i))
	}
	for _, b := range m.Bonds {
		assert.Equal(t, BondAromatic, b.Order)
	}

	m = mustParse(t, "c1cc[nH]c1")
	assert.Equal(t, 1, m.Atoms[3].ExplicitH)
	assert.Equal(t, "N", m.Atoms[3].Element)
}

func TestParseSMILES_KekuleRingsBecomeAromatic(t *testing.T) {
	m := mustParse(t, "C1=CC=CC=C1")
	for i, a := range m.Atoms {
		assert.True(t, a.Aromatic, i)
		assert.Equal(t, 1, m.HydrogenCount(i))
	}
	for _, b := range m.Bonds {
		assert.Equal(t, BondAromatic, b.Order)
	}

	m = mustParse(t, "C1=CNC=C1")
	assert.True(t, m.Atoms[2].Aromatic)
	assert.Equal(t, 1, m.HydrogenCount(2))
}

func TestParseSMILES_CytosineRingPerceived(t *testing.T) {
	m := mustParse(t, "C1=CN(C(=O)N=C1N)C2C(C(C(O2)CO)O)O")
	for _, i := range []int{0, 1, 2, 3, 5, 6} {
		assert.True(t, m.Atoms[i].Aromatic, i)
	}
	for _, i := range []int{4, 7, 8} {
		assert.False(t, m.Atoms[i].Aromatic, i)
	}
	for _, b := range m.Bonds {
		if b.Begin == 3 && b.End == 4 {
			assert.Equal(t, BondDouble, b.Order)
		}
	}
}

func TestParseSMILES_NonAromaticRingsStayKekule(t *testing.T) {
	for _, smiles := range []string{"O=C1C=CC(=O)C=C1", "C1=CCC=C1", "C1=CC=CC=CC=C1"} {
		m := mustParse(t, smiles)
		for i, a := range m.Atoms {
			assert.False(t, a.Aromatic, "%s atom %d", smiles, i)
		}
	}
}

func TestParseSMILES_FusedRings(t *testing.T) {
	// Azulene is aromatic only as a fused pair.
	m := mustParse(t, "C1=CC2=CC=CC=CC2=C1")
	for i, a := range m.Atoms {
		assert.True(t, a.Aromatic, i)
	}

	m = mustParse(t, doxorubicin)
	aromatic := 0
	for _, a := range m.Atoms {
		if a.Aromatic {
			aromatic++
		}
	}
	assert.Equal(t, 12, aromatic)
}

func TestParseSMILES_BiphenylLinkIsSingle(t *testing.T) {
	m := mustParse(t, "c1ccccc1c2ccccc2")
	var link *Bond
	for i := range m.Bonds {
		if !m.Bonds[i].Ring {
			link = &m.Bonds[i]
		}
	}
	require.NotNil(t, link)
	assert.Equal(t, BondSingle, link.Order)
}

func TestParseSMILES_BracketAtoms(t *testing.T) {
	m := mustParse(t, "[13CH4]")
	a := m.Atoms[0]
	assert.Equal(t, 13, a.Isotope)
	assert.Equal(t, 4, a.ExplicitH)
	assert.Equal(t, 0, a.ImplicitH)
	assert.True(t, a.Bracket)

	assert.Equal(t, 1, mustParse(t, "[NH4+]").Atoms[0].Charge)
	assert.Equal(t, -2, mustParse(t, "[O-2]").Atoms[0].Charge)
	assert.Equal(t, 2, mustParse(t, "[Fe++]").Atoms[0].Charge)
	assert.Equal(t, "Cl", mustParse(t, "[Cl-]").Atoms[0].Element)
	assert.Equal(t, 1, mustParse(t, "[C@@H](N)(C)O").Atoms[0].ExplicitH)
	assert.Equal(t, 3, mustParse(t, "[CH3:1]C").Atoms[0].ExplicitH)
	assert.Equal(t, "Se", mustParse(t, "c1cc[se]c1").Atoms[3].Element)
}

func TestParseSMILES_Components(t *testing.T) {
	m := mustParse(t, "[Na+].[Cl-]")
	assert.Equal(t, 2, m.Components())
	assert.Empty(t, m.Bonds)
}

func TestParseSMILES_RingClosures(t *testing.T) {
	m := mustParse(t, "C%10CC%10")
	assert.Len(t, m.Bonds, 3)
	assert.True(t, m.InThreeRing(0))
	assert.Equal(t, []int{2, 2, 2}, hydrogens(m))

	m = mustParse(t, "C=1CCC1")
	assert.Equal(t, BondDouble, m.Bonds[len(m.Bonds)-1].Order)
}

func TestParseSMILES_Branches(t *testing.T) {
	m := mustParse(t, "FC(F)(F)F")
	assert.Equal(t, []int{0, 0, 0, 0, 0}, hydrogens(m))
	assert.Equal(t, 4, m.HeavyDegree(1))

	m = mustParse(t, "OS(=O)(=O)O")
	assert.Equal(t, 0, m.HydrogenCount(1))
}

func TestParseSMILES_ChainBond(t *testing.T) {
	m := mustParse(t, "CCC")
	assert.False(t, m.Bonds[0].Ring)
	assert.False(t, m.InRing(1))
}

func TestParseSMILES_Errors(t *testing.T) {
	bad := []string{
		"",
		"C1CC((",
		"C(",
		"C)",
		"(C)",
		"C()",
		"C=",
		"=C",
		"C1CC",
		"cc",
		"[Xx]",
		"[C",
		"C..C",
		"C.",
		"C=1CCC#1",
		"C11",
		"C12CC12",
		"CQ",
		"C(C)(C)(C)(C)C",
		"%1C",
		"C%1",
		"[H:]",
	}
	for _, s := range bad {
		_, err := ParseSMILES(s)
		if assert.Error(t, err, s) {
			assert.True(t, errors.IsCode(err, errors.ErrCodeMoleculeInvalidSMILES), s)
		}
	}
}

func TestParseSMILES_ErrorCarriesInput(t *testing.T) {
	_, err := ParseSMILES("C1CC((")
	require.Error(t, err)
	var ae *errors.AppError
	require.True(t, errors.As(err, &ae))
	assert.Contains(t, ae.Detail, "C1CC((")
}
