package sage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/forgeff/internal/domain/forcefield"
)

func TestLoadSage(t *testing.T) {
	ff, err := Load()
	require.NoError(t, err)

	assert.Equal(t, forcefield.AromaticityMDL, ff.AromaticityModel)
	assert.Len(t, ff.Bonds.Params, 90)
	assert.Len(t, ff.Angles.Params, 42)
	assert.Len(t, ff.Propers.Params, 181)
	assert.Len(t, ff.Impropers.Params, 7)
	assert.Len(t, ff.VdW.Params, 37)
	assert.Empty(t, ff.LibraryCharges.Params)
	assert.True(t, ff.ToolkitAM1BCC)

	b4, ok := ff.Bonds.ByID("b4")
	require.True(t, ok)
	assert.Equal(t, "[#6X3:1]-[#6X3:2]", b4.SMIRKS)
	length, ok := b4.Attr("length")
	require.True(t, ok)
	assert.InDelta(t, 1.466199291912, length.Value, 1e-12)

	assert.InDelta(t, 0.8333333333, ff.Electrostatics.Meta.Float("scale14", 0), 1e-12)
}

func TestSageIsClean(t *testing.T) {
	ff, err := Load()
	require.NoError(t, err)
	assert.Empty(t, forcefield.Validate(ff))
}
