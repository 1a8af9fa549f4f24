package dataset

import (
	_ "embed"
	"strings"
)

// DemoSMILES is the fully mapped furoyl chloride molecule shipped with the
// repository for demonstrations and smoke tests.
const DemoSMILES = "[C:1]1([H:9])=[C:2]([H:10])[C:3]([H:11])=[C:4]([C:5](=[O:6])[Cl:7])[O:8]1"

//go:embed testdata/positions.xyz
var demoPositions string

//go:embed testdata/gradients.xyz
var demoGradients string

// DemoPositionsXYZ returns the raw XYZ block of the demo geometry.
func DemoPositionsXYZ() string { return demoPositions }

// DemoGradientsXYZ returns the raw XYZ block of the demo gradients.
func DemoGradientsXYZ() string { return demoGradients }

// Demo builds the bundled single-entry dataset.
func Demo() (*Dataset, error) {
	pos, err := ParseXYZ(strings.NewReader(demoPositions))
	if err != nil {
		return nil, err
	}
	grad, err := ParseXYZ(strings.NewReader(demoGradients))
	if err != nil {
		return nil, err
	}
	e, err := NewEntry(DemoSMILES, pos, grad)
	if err != nil {
		return nil, err
	}
	d := New()
	if err := d.Add(e); err != nil {
		return nil, err
	}
	return d, nil
}
