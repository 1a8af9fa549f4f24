package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/forgeff/internal/domain/forcefield"
	"github.com/turtacn/forgeff/internal/domain/forcefield/sage"
	"github.com/turtacn/forgeff/internal/fitting"
)

func TestParseModels(t *testing.T) {
	models, err := parseModels("bonds=b4,b5;angles=a11")
	require.NoError(t, err)
	assert.Equal(t, map[forcefield.ModelKind][]string{
		forcefield.ModelBonds:  {"b4", "b5"},
		forcefield.ModelAngles: {"a11"},
	}, models)
}

func TestParseModelsErrors(t *testing.T) {
	tests := []string{"", "bonds", "bonds=", "planets=p1"}
	for _, s := range tests {
		_, err := parseModels(s)
		assert.Error(t, err, s)
	}
}

func TestParseTiers(t *testing.T) {
	tiers, err := parseTiers([]string{"100:3", "500:1"})
	require.NoError(t, err)
	assert.Equal(t, []fitting.Tier{{StepLimit: 100, Accept: 3}, {StepLimit: 500, Accept: 1}}, tiers)

	for _, bad := range []string{"100", "x:3", "100:y"} {
		_, err := parseTiers([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestParseObjectives(t *testing.T) {
	objs, err := parseObjectives([]string{"positions:1", "gradients:1e-9"})
	require.NoError(t, err)
	require.Len(t, objs[""], 2)
	assert.Equal(t, fitting.ObjectiveConfig{Kind: fitting.ObjectivePositions, Scale: 1}, objs[""][0])
	assert.Equal(t, fitting.ObjectiveConfig{Kind: fitting.ObjectiveGradients, Scale: 1e-9}, objs[""][1])

	objs, err = parseObjectives(nil)
	require.NoError(t, err)
	assert.Equal(t, fitting.DefaultObjectives(), objs)

	for _, bad := range []string{"positions", "warp:1", "positions:x"} {
		_, err := parseObjectives([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestLintCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sage.offxml")
	require.NoError(t, os.WriteFile(path, sage.Raw(), 0o644))

	root := NewRootCommand()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs([]string{"lint", path})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "ok")
}

func TestLintCommandRejectsBrokenDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.offxml")
	require.NoError(t, os.WriteFile(path, []byte("<SMIRNOFF"), 0o644))

	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"lint", path})

	assert.Error(t, root.Execute())
}

func TestParamsCommandLabelsWater(t *testing.T) {
	root := NewRootCommand()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs([]string{"params", "--smiles", "[O:1]([H:2])[H:3]"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "bonds:")
	assert.Contains(t, out.String(), "angles:")
	assert.Contains(t, out.String(), "vdw:")
}

func TestFitCommandRequiresInput(t *testing.T) {
	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"fit", "--models", "bonds=b4", "--symbols", "l"})

	assert.Error(t, root.Execute())
}
