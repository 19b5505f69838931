package overlay

import (
	"errors"
	"fmt"
	"strings"
)

// MaterializationError records a table that an overlay cannot cover: the
// overlay has fewer values than the table has rows.
type MaterializationError struct {
	Overlay   string `json:"overlay"`
	Table     string `json:"table"`
	Field     string `json:"field"`
	Needed    int    `json:"needed"`
	Available int    `json:"available"`
}

// Error implements the error interface.
func (e MaterializationError) Error() string {
	return fmt.Sprintf("overlay %q: table %q field %q needs %d values, only %d available",
		e.Overlay, e.Table, e.Field, e.Needed, e.Available)
}

// MaterializationErrors is every insufficiency found across one stack.
type MaterializationErrors []MaterializationError

// Error implements the error interface.
func (errs MaterializationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("materialization failed with %d error(s): %s", len(errs), strings.Join(msgs, "; "))
}

// AsMaterializationErrors extracts the insufficiency list from err.
func AsMaterializationErrors(err error) (MaterializationErrors, bool) {
	var errs MaterializationErrors
	if errors.As(err, &errs) {
		return errs, true
	}
	return nil, false
}

// UnknownOverlayError is returned when a stack names an overlay the catalog
// cannot resolve.
type UnknownOverlayError struct {
	Name string
	// Via is set when the name was reached through the compat map.
	Via string
}

// Error implements the error interface.
func (e *UnknownOverlayError) Error() string {
	if e.Via != "" {
		return fmt.Sprintf("unknown overlay %q (compat target of %q)", e.Name, e.Via)
	}
	return fmt.Sprintf("unknown overlay %q", e.Name)
}
