// Package sage embeds the OpenFF Sage 2.1 small-molecule force field so the
// CLI and tests run without any external parameter files.
package sage

import (
	"bytes"
	_ "embed"

	"github.com/turtacn/forgeff/internal/domain/forcefield"
)

//go:embed sage-2.1.offxml
var raw []byte

// Raw returns the embedded SMIRNOFF document bytes.
func Raw() []byte {
	out := make([]byte, len(raw))
	copy(out, raw)
	return out
}

// Load parses the embedded force field.
func Load() (*forcefield.ForceField, error) {
	return forcefield.Load(bytes.NewReader(raw))
}
