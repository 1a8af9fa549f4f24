package dataset

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/turtacn/forgeff/pkg/errors"
)

// Block is one parsed XYZ block: a declared atom count, a comment line, and
// per-atom element symbols with cartesian rows.
type Block struct {
	Comment string
	Symbols []string
	Rows    [][3]float64
}

// ParseXYZ reads a single XYZ block: the atom count line, one comment line,
// then count rows of "<symbol> <x> <y> <z>". Rows must be finite.
func ParseXYZ(r io.Reader) (*Block, error) {
	sc := bufio.NewScanner(r)

	line, ok := nextLine(sc)
	if !ok {
		return nil, errors.Newf(errors.CodeDatasetInvalidXYZ, "empty XYZ block")
	}
	count, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || count <= 0 {
		return nil, errors.Newf(errors.CodeDatasetInvalidXYZ,
			"bad atom count line %q", strings.TrimSpace(line))
	}

	b := &Block{}
	if sc.Scan() {
		b.Comment = strings.TrimSpace(sc.Text())
	}

	for len(b.Rows) < count {
		line, ok = nextLine(sc)
		if !ok {
			return nil, errors.Newf(errors.CodeDatasetInvalidXYZ,
				"XYZ block declares %d atoms but has %d rows", count, len(b.Rows))
		}
		fields := strings.Fields(line)
		if len(fields) != 4 {
			return nil, errors.Newf(errors.CodeDatasetInvalidXYZ,
				"row %d has %d fields, want 4", len(b.Rows)+1, len(fields))
		}
		var row [3]float64
		for i := 0; i < 3; i++ {
			v, err := strconv.ParseFloat(fields[i+1], 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errors.Newf(errors.CodeDatasetInvalidXYZ,
					"row %d has a bad coordinate %q", len(b.Rows)+1, fields[i+1])
			}
			row[i] = v
		}
		b.Symbols = append(b.Symbols, fields[0])
		b.Rows = append(b.Rows, row)
	}

	if line, ok = nextLine(sc); ok {
		return nil, errors.Newf(errors.CodeDatasetInvalidXYZ,
			"trailing content after %d rows: %q", count, line)
	}
	return b, nil
}

// nextLine advances to the next non-blank line.
func nextLine(sc *bufio.Scanner) (string, bool) {
	for sc.Scan() {
		if t := strings.TrimSpace(sc.Text()); t != "" {
			return t, true
		}
	}
	return "", false
}
