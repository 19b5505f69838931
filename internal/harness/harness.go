package harness

import (
	"context"
	"fmt"

	"github.com/roach88/mockset/internal/dataset"
	"github.com/roach88/mockset/internal/overlay"
	"github.com/roach88/mockset/internal/source"
	"github.com/roach88/mockset/internal/store"
)

// Result is the outcome of a scenario.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Stack is the overlay stack that was applied, after share resolution.
	Stack []string `json:"stack"`

	// Insufficient lists shortfalls when the stack did not materialize.
	Insufficient overlay.MaterializationErrors `json:"insufficient,omitempty"`

	// Errors contains assertion failure messages.
	Errors []string `json:"errors,omitempty"`

	// Base and Tables are the dataset before and after the stack. Tables
	// is nil when materialization failed.
	Base   dataset.Tables `json:"-"`
	Tables dataset.Tables `json:"-"`

	catalog *overlay.Catalog
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Stack:  []string{},
		Errors: []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Load the dataset snapshot
//  2. Resolve the stack, through an in-memory share store when a target is given
//  3. Materialize the stack
//  4. Evaluate assertions
//
// Insufficient overlays are part of the result, not an error; loading
// failures and unknown overlay names are.
func Run(scenario *Scenario) (*Result, error) {
	snap, err := source.Load(scenario.Data, source.Options{Version: scenario.Version})
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	result := NewResult()
	result.Base = snap.Tables
	result.catalog = snap.Catalog

	stack, err := resolveStack(scenario, snap)
	if err != nil {
		return nil, err
	}
	result.Stack = stack

	tables, err := overlay.ApplyOverlayStack(snap.Tables, snap.Catalog, stack)
	if errs, ok := overlay.AsMaterializationErrors(err); ok {
		result.Insufficient = errs
	} else if err != nil {
		return nil, fmt.Errorf("failed to apply stack: %w", err)
	}
	result.Tables = tables

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// resolveStack returns the scenario's explicit stack, or seeds a fresh
// in-memory store with its shares and resolves the target through it.
func resolveStack(scenario *Scenario, snap *source.Snapshot) ([]string, error) {
	if scenario.Target == "" {
		if scenario.Stack == nil {
			return []string{}, nil
		}
		return scenario.Stack, nil
	}

	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	datasetID := snap.Registry.Version
	for i, sh := range scenario.Shares {
		if _, err := st.CreateShare(ctx, sh.Target, datasetID, sh.Overlays); err != nil {
			return nil, fmt.Errorf("shares[%d]: %w", i, err)
		}
	}

	stack, err := st.ResolveStack(ctx, scenario.Target, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve target %q: %w", scenario.Target, err)
	}
	return stack, nil
}
