package validate

// CheckFailure holds every error one check produced.
type CheckFailure struct {
	Check  string            `json:"check"`
	Errors []ValidationError `json:"errors"`
}

// Messages renders each error as a string.
func (f CheckFailure) Messages() []string {
	out := make([]string, len(f.Errors))
	for i, e := range f.Errors {
		out[i] = e.Error()
	}
	return out
}

// Report is the outcome of one validation run. A check passes iff it
// produced no errors; the full error list is kept even when very large.
type Report struct {
	Passed []string       `json:"passed"`
	Failed []CheckFailure `json:"failed"`
}

// OK reports whether every check passed.
func (r Report) OK() bool {
	return len(r.Failed) == 0
}

// ErrorCount returns the number of errors across all failed checks.
func (r Report) ErrorCount() int {
	n := 0
	for _, f := range r.Failed {
		n += len(f.Errors)
	}
	return n
}

// Failure returns the failure entry for a check, or nil if it passed or
// did not run.
func (r Report) Failure(check string) *CheckFailure {
	for i := range r.Failed {
		if r.Failed[i].Check == check {
			return &r.Failed[i]
		}
	}
	return nil
}
