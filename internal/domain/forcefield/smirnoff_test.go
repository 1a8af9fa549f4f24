package forcefield

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/forgeff/internal/domain/chem"
	"github.com/turtacn/forgeff/pkg/errors"
)

func mustPattern(t *testing.T, s string) *chem.Pattern {
	t.Helper()
	p, err := chem.ParseSMARTS(s)
	require.NoError(t, err)
	return p
}

const miniDoc = `<?xml version="1.0" encoding="utf-8"?>
<SMIRNOFF version="0.3" aromaticity_model="AROMATICITY_MDL">
    <Constraints version="0.3">
    </Constraints>
    <Bonds version="0.4" potential="harmonic">
        <Bond smirks="[#6X4:1]-[#6X4:2]" id="b1" length="1.527940216866 * angstrom" k="419.9869268191 * angstrom**-2 * mole**-1 * kilocalorie"></Bond>
        <Bond smirks="[#6X3:1]-[#6X3:2]" id="b4" length="1.466199291912 * angstrom" k="540.3345953498 * angstrom**-2 * mole**-1 * kilocalorie"></Bond>
    </Bonds>
    <Angles version="0.3" potential="harmonic">
        <Angle smirks="[*:1]~[#6X4:2]-[*:3]" angle="110.0631999136 * degree" k="121.1883270155 * mole**-1 * radian**-2 * kilocalorie" id="a1"></Angle>
    </Angles>
    <ProperTorsions version="0.4" potential="k*(1+cos(periodicity*theta-phase))" default_idivf="auto">
        <Proper smirks="[*:1]-[#6X4:2]-[#6X4:3]-[*:4]" periodicity1="3" periodicity2="2" phase1="0.0 * degree" phase2="180.0 * degree" id="t2" k1="0.42948937236 * mole**-1 * kilocalorie" k2="0.2543919562345 * mole**-1 * kilocalorie" idivf1="1.0" idivf2="1.0"></Proper>
    </ProperTorsions>
    <ImproperTorsions version="0.3" potential="k*(1+cos(periodicity*theta-phase))" default_idivf="auto">
        <Improper smirks="[*:1]~[#6X3:2](~[*:3])~[*:4]" periodicity1="2" phase1="180.0 * degree" k1="5.230790565314 * mole**-1 * kilocalorie" id="i1"></Improper>
    </ImproperTorsions>
    <vdW version="0.3" potential="Lennard-Jones-12-6" combining_rules="Lorentz-Berthelot" scale12="0.0" scale13="0.0" scale14="0.5" scale15="1.0" cutoff="9.0 * angstrom" switch_width="1.0 * angstrom" method="cutoff">
        <Atom smirks="[#1:1]" epsilon="0.0157 * mole**-1 * kilocalorie" id="n1" rmin_half="0.6 * angstrom"></Atom>
    </vdW>
    <Electrostatics version="0.3" scale12="0.0" scale13="0.0" scale14="0.8333333333" scale15="1.0" cutoff="9.0 * angstrom" switch_width="0.0 * angstrom" method="PME"></Electrostatics>
    <LibraryCharges version="0.3">
    </LibraryCharges>
    <ToolkitAM1BCC version="0.3"></ToolkitAM1BCC>
</SMIRNOFF>
`

func loadMini(t *testing.T) *ForceField {
	t.Helper()
	ff, err := Load(strings.NewReader(miniDoc))
	require.NoError(t, err)
	return ff
}

func TestLoadSections(t *testing.T) {
	ff := loadMini(t)

	assert.Equal(t, "0.3", ff.Version)
	assert.Equal(t, AromaticityMDL, ff.AromaticityModel)
	assert.True(t, ff.ToolkitAM1BCC)

	require.Len(t, ff.Bonds.Params, 2)
	require.Len(t, ff.Angles.Params, 1)
	require.Len(t, ff.Propers.Params, 1)
	require.Len(t, ff.Impropers.Params, 1)
	require.Len(t, ff.VdW.Params, 1)
	assert.Empty(t, ff.LibraryCharges.Params)

	pot, ok := ff.Bonds.Meta.Get("potential")
	require.True(t, ok)
	assert.Equal(t, "harmonic", pot)
	assert.Equal(t, 0.5, ff.VdW.Meta.Float("scale14", 1))

	b4, ok := ff.Bonds.ByID("b4")
	require.True(t, ok)
	length, ok := b4.Attr("length")
	require.True(t, ok)
	assert.InDelta(t, 1.466199291912, length.Value, 1e-12)
	assert.Equal(t, "angstrom", length.Unit())
	assert.Equal(t, 2, b4.Pattern.MappedAtoms())

	t2, ok := ff.Propers.ByID("t2")
	require.True(t, ok)
	assert.Equal(t, 2, t2.Terms())
}

func TestLoadRejectsDuplicateID(t *testing.T) {
	doc := strings.Replace(miniDoc, `id="b4"`, `id="b1"`, 1)
	_, err := Load(strings.NewReader(doc))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeForceFieldDuplicateID), "got %v", err)
}

func TestLoadRejectsBadUnit(t *testing.T) {
	doc := strings.Replace(miniDoc, "1.527940216866 * angstrom", "1.527940216866 * cubit", 1)
	_, err := Load(strings.NewReader(doc))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeForceFieldInvalidUnit), "got %v", err)
}

func TestLoadRejectsBadSMIRKS(t *testing.T) {
	doc := strings.Replace(miniDoc, "[#6X3:1]-[#6X3:2]", "[#6X3:1]-[#6X3:1]", 1)
	_, err := Load(strings.NewReader(doc))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeChemInvalidSMARTS), "got %v", err)
}

func TestKeysValueSetValue(t *testing.T) {
	ff := loadMini(t)

	keys, err := ff.Keys(ModelBonds, "b4", []string{"l"})
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, Key{Model: ModelBonds, ID: "b4", Symbol: "l"}, keys[0])

	v, err := ff.Value(keys[0])
	require.NoError(t, err)
	assert.InDelta(t, 1.466199291912, v, 1e-12)

	require.NoError(t, ff.SetValue(keys[0], 1.5))
	v, err = ff.Value(keys[0])
	require.NoError(t, err)
	assert.Equal(t, 1.5, v)

	// Unit survives the write.
	q, err := ff.quantity(keys[0])
	require.NoError(t, err)
	assert.Equal(t, "angstrom", q.Unit())

	// Torsions expand one key per periodic term.
	keys, err = ff.Keys(ModelTorsions, "t2", []string{"k", "p"})
	require.NoError(t, err)
	assert.Len(t, keys, 4)

	_, err = ff.Keys(ModelBonds, "zzz", []string{"l"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeForceFieldUnknownKey))

	_, err = ff.Value(Key{Model: ModelBonds, ID: "b4", Symbol: "q"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeForceFieldUnknownKey))
}

func TestSaveRoundTrip(t *testing.T) {
	ff := loadMini(t)
	require.NoError(t, ff.SetValue(Key{Model: ModelBonds, ID: "b4", Symbol: "l"}, 1.48))

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, ff))
	out := buf.String()
	assert.Contains(t, out, `aromaticity_model="AROMATICITY_MDL"`)
	assert.Contains(t, out, `length="1.48 * angstrom"`)

	again, err := Load(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	v, err := again.Value(Key{Model: ModelBonds, ID: "b4", Symbol: "l"})
	require.NoError(t, err)
	assert.Equal(t, 1.48, v)
	assert.Len(t, again.Bonds.Params, 2)
	assert.True(t, again.ToolkitAM1BCC)

	// Attribute order is preserved for untouched parameters.
	b1, _ := again.Bonds.ByID("b1")
	assert.Equal(t, []string{"smirks", "id", "length", "k"}, b1.AttrNames())
}

func TestValidate(t *testing.T) {
	ff := loadMini(t)
	assert.Empty(t, Validate(ff))

	ff.AromaticityModel = "AROMATICITY_RDKIT"
	issues := Validate(ff)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].String(), "aromaticity model")

	ff = loadMini(t)
	bad := NewParameter("[#6:1]", "bX", mustPattern(t, "[#6:1]"))
	bad.SetRawAttr("smirks", "[#6:1]")
	bad.SetRawAttr("id", "bX")
	require.NoError(t, ff.Bonds.Add(bad))
	issues = Validate(ff)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].String(), "maps 1 atoms, section requires 2")
}
