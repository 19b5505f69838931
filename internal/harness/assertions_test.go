package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mockset/internal/dataset"
	"github.com/roach88/mockset/internal/overlay"
)

func peopleResult() *Result {
	base := dataset.Tables{{
		Name: "users",
		Rows: []dataset.Row{
			{"id": "usr_001", "firstName": "Grace", "email": "g@x.io"},
			{"id": "usr_002", "firstName": "Alan", "email": "a@x.io"},
		},
	}}
	out := base.Clone()
	out[0].Rows[0]["firstName"] = "Wanjiru"
	out[0].Rows[1]["firstName"] = "Otieno"

	r := NewResult()
	r.Base = base
	r.Tables = out
	r.Stack = []string{"names"}
	r.catalog = overlay.NewCatalog([]*overlay.Flat{{
		OverlayName: "names",
		Visibility:  overlay.Public,
		Fields:      []string{"firstName"},
		Values:      []string{"Wanjiru", "Otieno", "Akinyi"},
	}}, nil, nil)
	return r
}

func TestAssertionsPass(t *testing.T) {
	r := peopleResult()
	msgs := EvaluateAssertions(r, []Assertion{
		{Type: AssertMaterializes},
		{Type: AssertValueFrom, Table: "users", Field: "firstName", Overlay: "names"},
		{Type: AssertUnchanged, Table: "users", Field: "email"},
		{Type: AssertEquals, Table: "users", ID: "usr_002", Field: "firstName", Value: "Otieno"},
	})
	assert.Empty(t, msgs)
}

func TestAssertionFailures(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(r *Result)
		assertion Assertion
		wantMsg   string
	}{
		{
			name:      "value outside overlay",
			mutate:    func(r *Result) { r.Tables[0].Rows[1]["firstName"] = "Alan" },
			assertion: Assertion{Type: AssertValueFrom, Table: "users", Field: "firstName", Overlay: "names"},
			wantMsg:   "value Alan",
		},
		{
			name:      "duplicate value",
			mutate:    func(r *Result) { r.Tables[0].Rows[1]["firstName"] = "Wanjiru" },
			assertion: Assertion{Type: AssertValueFrom, Table: "users", Field: "firstName", Overlay: "names"},
			wantMsg:   `"Wanjiru" used by rows usr_001 and usr_002`,
		},
		{
			name:      "unknown overlay",
			assertion: Assertion{Type: AssertValueFrom, Table: "users", Field: "firstName", Overlay: "ghost"},
			wantMsg:   "overlay not found",
		},
		{
			name:      "changed field",
			assertion: Assertion{Type: AssertUnchanged, Table: "users", Field: "firstName"},
			wantMsg:   "users[usr_001].firstName = Grace",
		},
		{
			name:      "wrong value",
			assertion: Assertion{Type: AssertEquals, Table: "users", ID: "usr_001", Field: "firstName", Value: "Grace"},
			wantMsg:   "Actual: Wanjiru",
		},
		{
			name:      "missing row",
			assertion: Assertion{Type: AssertEquals, Table: "users", ID: "usr_404", Field: "firstName", Value: "x"},
			wantMsg:   "row not found",
		},
		{
			name:      "missing table",
			assertion: Assertion{Type: AssertUnchanged, Table: "roles", Field: "name"},
			wantMsg:   "table not found",
		},
		{
			name:      "expected shortfall absent",
			assertion: Assertion{Type: AssertInsufficient, Overlay: "names", Table: "users"},
			wantMsg:   "no shortfall reported",
		},
		{
			name: "did not materialize",
			mutate: func(r *Result) {
				r.Tables = nil
				r.Insufficient = overlay.MaterializationErrors{{Overlay: "names", Table: "users", Field: "firstName", Needed: 2, Available: 1}}
			},
			assertion: Assertion{Type: AssertMaterializes},
			wantMsg:   "needs 2 values, only 1 available",
		},
		{
			name: "shortfall counts differ",
			mutate: func(r *Result) {
				r.Insufficient = overlay.MaterializationErrors{{Overlay: "names", Table: "users", Field: "firstName", Needed: 2, Available: 1}}
			},
			assertion: Assertion{Type: AssertInsufficient, Overlay: "names", Table: "users", Needed: 3},
			wantMsg:   "(needed 3, available 0)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := peopleResult()
			if tt.mutate != nil {
				tt.mutate(r)
			}
			msgs := EvaluateAssertions(r, []Assertion{tt.assertion})
			require.Len(t, msgs, 1)
			assert.Contains(t, msgs[0], tt.wantMsg)
			assert.Contains(t, msgs[0], "assertions[0]")
		})
	}
}

func TestAssertionErrorFormat(t *testing.T) {
	err := &AssertionError{Type: AssertEquals, Expected: "a", Actual: "b", Stack: []string{"x", "y"}}
	assert.Equal(t, "Assertion failed: equals\n  Expected: a\n  Actual: b\n  Stack: [x, y]\n", err.Error())
}
