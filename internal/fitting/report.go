package fitting

import (
	"fmt"
	"strings"
)

// ReportRow is one before/after line of a fit report. Percent is nil when
// the initial value is zero, since the relative change is undefined there.
type ReportRow struct {
	Name    string
	Initial float64
	Final   float64
	Percent *float64
}

// Delta returns Final - Initial.
func (r ReportRow) Delta() float64 { return r.Final - r.Initial }

// Report summarizes an optimization run for humans.
type Report struct {
	Rows []ReportRow
}

func row(name string, initial, final float64) ReportRow {
	r := ReportRow{Name: name, Initial: initial, Final: final}
	if initial != 0 {
		pct := 100 * (final - initial) / initial
		r.Percent = &pct
	}
	return r
}

// BuildReport renders the run result into objective and per-key rows.
func BuildReport(res *Result) Report {
	rep := Report{}
	rep.Rows = append(rep.Rows,
		row("physical objective", res.PhysInitial, res.PhysFinal),
		row("chemical objective", res.ChemInitial, res.ChemFinal),
	)
	for _, c := range res.Changes {
		rep.Rows = append(rep.Rows, row(c.Key.String(), c.Initial, c.Final))
	}
	return rep
}

// String renders the report as an aligned text table.
func (rep Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-28s %16s %16s %16s %10s\n", "name", "initial", "final", "delta", "percent")
	for _, r := range rep.Rows {
		pct := "n/a"
		if r.Percent != nil {
			pct = fmt.Sprintf("%+.4f%%", *r.Percent)
		}
		fmt.Fprintf(&b, "%-28s %16.8f %16.8f %16.8f %10s\n",
			r.Name, r.Initial, r.Final, r.Delta(), pct)
	}
	return b.String()
}
