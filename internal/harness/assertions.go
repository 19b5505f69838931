package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/mockset/internal/dataset"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Stack    []string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	fmt.Fprintf(&buf, "  Stack: [%s]\n", strings.Join(e.Stack, ", "))
	return buf.String()
}

// EvaluateAssertions runs every assertion against result and returns the
// failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var msgs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			msgs = append(msgs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return msgs
}

func evaluate(r *Result, a Assertion) error {
	switch a.Type {
	case AssertMaterializes:
		return assertMaterializes(r)
	case AssertInsufficient:
		return assertInsufficient(r, a)
	case AssertValueFrom:
		return assertValueFrom(r, a)
	case AssertUnchanged:
		return assertUnchanged(r, a)
	case AssertEquals:
		return assertEquals(r, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func fail(r *Result, a Assertion, expected, actual string) error {
	return &AssertionError{Type: a.Type, Expected: expected, Actual: actual, Stack: r.Stack}
}

func assertMaterializes(r *Result) error {
	if len(r.Insufficient) == 0 {
		return nil
	}
	return fail(r, Assertion{Type: AssertMaterializes}, "stack materializes", r.Insufficient.Error())
}

// assertInsufficient checks a shortfall was reported for the overlay and
// table, and for the field, needed and available counts when given.
func assertInsufficient(r *Result, a Assertion) error {
	for _, e := range r.Insufficient {
		if e.Overlay != a.Overlay || e.Table != a.Table {
			continue
		}
		if a.Field != "" && e.Field != a.Field {
			continue
		}
		if a.Needed != 0 && e.Needed != a.Needed {
			continue
		}
		if a.Available != 0 && e.Available != a.Available {
			continue
		}
		return nil
	}

	expected := fmt.Sprintf("overlay %q insufficient for table %q", a.Overlay, a.Table)
	if a.Field != "" {
		expected += fmt.Sprintf(" field %q", a.Field)
	}
	if a.Needed != 0 || a.Available != 0 {
		expected += fmt.Sprintf(" (needed %d, available %d)", a.Needed, a.Available)
	}
	actual := "no shortfall reported"
	if len(r.Insufficient) > 0 {
		actual = r.Insufficient.Error()
	}
	return fail(r, a, expected, actual)
}

// materialized returns the named output table or an assertion error.
func materialized(r *Result, a Assertion) (*dataset.Table, error) {
	if r.Tables == nil {
		return nil, fail(r, a, "materialized tables", "stack did not materialize")
	}
	t := r.Tables.Get(a.Table)
	if t == nil {
		return nil, fail(r, a, fmt.Sprintf("table %q", a.Table), "table not found")
	}
	return t, nil
}

// assertValueFrom checks every row holds a value of the overlay in the
// field and no value is used twice.
func assertValueFrom(r *Result, a Assertion) error {
	t, err := materialized(r, a)
	if err != nil {
		return err
	}
	f, ok := r.catalog.Flat[a.Overlay]
	if !ok {
		return fail(r, a, fmt.Sprintf("flat overlay %q", a.Overlay), "overlay not found")
	}

	allowed := make(map[string]bool, len(f.Values))
	for _, v := range f.Values {
		allowed[v] = true
	}
	used := make(map[string]string, len(t.Rows))
	for i, row := range t.Rows {
		label := rowLabel(row, i)
		v, ok := row[a.Field].(string)
		if !ok || !allowed[v] {
			return fail(r, a,
				fmt.Sprintf("%s[%s].%s drawn from overlay %q", t.Name, label, a.Field, a.Overlay),
				fmt.Sprintf("value %s", dataset.FormatValue(row[a.Field])))
		}
		if prev, dup := used[v]; dup {
			return fail(r, a,
				fmt.Sprintf("distinct %s values", a.Field),
				fmt.Sprintf("%q used by rows %s and %s", v, prev, label))
		}
		used[v] = label
	}
	return nil
}

// assertUnchanged checks the field matches the base dataset on every row.
func assertUnchanged(r *Result, a Assertion) error {
	t, err := materialized(r, a)
	if err != nil {
		return err
	}
	base := r.Base.Get(a.Table)
	if base == nil || len(base.Rows) != len(t.Rows) {
		return fail(r, a, fmt.Sprintf("table %q with the base row count", a.Table), "row count differs")
	}
	for i, row := range t.Rows {
		before, after := base.Rows[i][a.Field], row[a.Field]
		if !dataset.Equal(before, after) {
			return fail(r, a,
				fmt.Sprintf("%s[%s].%s = %s", t.Name, rowLabel(row, i), a.Field, dataset.FormatValue(before)),
				dataset.FormatValue(after))
		}
	}
	return nil
}

// assertEquals checks one row's field value.
func assertEquals(r *Result, a Assertion) error {
	t, err := materialized(r, a)
	if err != nil {
		return err
	}
	for _, row := range t.Rows {
		if id, ok := row.ID(); ok && id == a.ID {
			if !dataset.Equal(row[a.Field], a.Value) {
				return fail(r, a,
					fmt.Sprintf("%s[%s].%s = %s", t.Name, a.ID, a.Field, dataset.FormatValue(a.Value)),
					dataset.FormatValue(row[a.Field]))
			}
			return nil
		}
	}
	return fail(r, a, fmt.Sprintf("row %q in %s", a.ID, t.Name), "row not found")
}

func rowLabel(row dataset.Row, i int) string {
	if id, ok := row.ID(); ok {
		return id
	}
	return fmt.Sprintf("#%d", i)
}
