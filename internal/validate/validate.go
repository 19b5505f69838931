package validate

import (
	"github.com/roach88/mockset/internal/dataset"
	"github.com/roach88/mockset/internal/overlay"
)

// input bundles what every check reads.
type input struct {
	tables   dataset.Tables
	registry *dataset.Registry
	overlays *overlay.Catalog
}

type check struct {
	name string
	run  func(in *input) []ValidationError
}

var checks = []check{
	{CheckDataset, checkDataset},
	{CheckSchema, checkSchema},
	{CheckIDs, checkIDs},
	{CheckForeignKeys, checkForeignKeys},
	{CheckRelations, checkRelations},
	{CheckOverlays, checkOverlays},
}

// CheckNames returns the names of all checks in report order.
func CheckNames() []string {
	out := make([]string, len(checks))
	for i, c := range checks {
		out[i] = c.name
	}
	return out
}

// Validate runs every check over the snapshot. A nil registry is treated as
// one listing nothing; a nil catalog means there are no overlays to inspect.
func Validate(tables dataset.Tables, reg *dataset.Registry, overlays *overlay.Catalog) Report {
	if reg == nil {
		reg = &dataset.Registry{}
	}
	in := &input{tables: tables, registry: reg, overlays: overlays}

	report := Report{Passed: []string{}, Failed: []CheckFailure{}}
	for _, c := range checks {
		errs := c.run(in)
		if len(errs) == 0 {
			report.Passed = append(report.Passed, c.name)
			continue
		}
		for i := range errs {
			errs[i].Check = c.name
		}
		report.Failed = append(report.Failed, CheckFailure{Check: c.name, Errors: errs})
	}
	return report
}
