package validate

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/roach88/mockset/internal/dataset"
	"github.com/roach88/mockset/internal/overlay"
)

// checkOverlays inspects both overlay representations plus the registry's
// overlay list and the compat map.
func checkOverlays(in *input) []ValidationError {
	cat := in.overlays
	if cat == nil {
		return nil
	}

	var errs []ValidationError
	docs := slices.Clone(cat.FlatDocs)
	if docs == nil {
		docs = cat.FlatList()
	}
	slices.SortStableFunc(docs, func(a, b *overlay.Flat) int { return strings.Compare(a.File, b.File) })
	first := make(map[string]*overlay.Flat, len(docs))
	for _, f := range docs {
		errs = append(errs, checkFlat(f)...)
		if prev, ok := first[f.Name()]; ok {
			errs = append(errs, ValidationError{
				Code:    ErrOverlayDuplicate,
				Overlay: f.Name(),
				Field:   "$meta.name",
				Message: fmt.Sprintf("file %q reuses the name already declared by %q", f.File, prev.File),
			})
			continue
		}
		first[f.Name()] = f
	}
	for _, l := range cat.LegacyList() {
		errs = append(errs, checkLegacy(l, in.tables)...)
	}
	errs = append(errs, checkOverlayRegistry(cat, in.registry)...)
	errs = append(errs, checkCompat(cat)...)
	return errs
}

func checkFlat(f *overlay.Flat) []ValidationError {
	var errs []ValidationError
	name := f.Name()

	if base := strings.TrimSuffix(f.File, filepath.Ext(f.File)); base != name {
		errs = append(errs, ValidationError{
			Code:    ErrOverlayName,
			Overlay: name,
			Field:   "$meta.name",
			Message: fmt.Sprintf("name %q does not match file %q", name, f.File),
		})
	}
	errs = append(errs, checkVisibility(name, "", f.Visibility, f.Clients)...)

	if len(f.Fields) == 0 {
		errs = append(errs, ValidationError{
			Code:    ErrOverlayFields,
			Overlay: name,
			Field:   "$meta.fields",
			Message: "overlay targets no fields",
		})
	}
	if len(f.Values) == 0 {
		errs = append(errs, ValidationError{
			Code:    ErrOverlayValues,
			Overlay: name,
			Field:   "values",
			Message: "overlay has no values",
		})
	}
	return errs
}

func checkVisibility(name, table string, v overlay.Visibility, clients []string) []ValidationError {
	if !v.Valid() {
		return []ValidationError{{
			Code:    ErrOverlayVisibility,
			Overlay: name,
			Table:   table,
			Field:   "$meta.visibility",
			Message: fmt.Sprintf("visibility %q must be %q or %q", v, overlay.Public, overlay.Private),
		}}
	}
	if v == overlay.Private && len(clients) == 0 {
		return []ValidationError{{
			Code:    ErrOverlayClients,
			Overlay: name,
			Table:   table,
			Field:   "$meta.clients",
			Message: "private overlay must list at least one client",
		}}
	}
	return nil
}

func checkLegacy(l *overlay.Legacy, tables dataset.Tables) []ValidationError {
	var errs []ValidationError
	name := l.Name()

	if prefix := l.FilePrefix(); prefix != string(l.Visibility) {
		errs = append(errs, ValidationError{
			Code:    ErrLegacyPrefix,
			Overlay: name,
			Table:   l.Table,
			Field:   "$meta.visibility",
			Message: fmt.Sprintf("file %q prefix does not match visibility %q", filepath.Join(l.Dir, l.File), l.Visibility),
		})
	}
	errs = append(errs, checkVisibility(name, l.Table, l.Visibility, l.Clients)...)

	if l.Table != l.Dir {
		errs = append(errs, ValidationError{
			Code:    ErrLegacyTable,
			Overlay: name,
			Table:   l.Table,
			Field:   "$meta.table",
			Message: fmt.Sprintf("table %q does not match directory %q", l.Table, l.Dir),
		})
	}

	base := tables.Get(l.Table)
	if base == nil {
		errs = append(errs, ValidationError{
			Code:    ErrLegacyTable,
			Overlay: name,
			Table:   l.Table,
			Field:   "$meta.table",
			Message: fmt.Sprintf("table %q is not loaded", l.Table),
		})
		return errs
	}

	ids := make(map[string]bool, len(base.Rows))
	for _, row := range base.Rows {
		if id, ok := row.ID(); ok {
			ids[id] = true
		}
	}
	for _, id := range sortedKeys(l.Overrides) {
		if !ids[id] {
			errs = append(errs, ValidationError{
				Code:    ErrLegacyOverrideID,
				Overlay: name,
				Table:   l.Table,
				Field:   "overrides",
				Message: fmt.Sprintf("override for unknown row id %q", id),
			})
		}
	}
	return errs
}

// checkOverlayRegistry compares the registry's overlay list with the
// catalog. Unlisted flat overlays are only reported when the registry lists
// overlays at all.
func checkOverlayRegistry(cat *overlay.Catalog, reg *dataset.Registry) []ValidationError {
	var errs []ValidationError

	known := make(map[string]bool)
	for _, name := range cat.Names() {
		known[name] = true
	}
	for _, name := range reg.Overlays {
		if !known[name] {
			errs = append(errs, ValidationError{
				Code:    ErrOverlayRegistry,
				Overlay: name,
				Message: "listed in registry but no overlay file was loaded",
			})
		}
	}

	if len(reg.Overlays) == 0 {
		return errs
	}
	for _, f := range cat.FlatList() {
		if !slices.Contains(reg.Overlays, f.Name()) {
			errs = append(errs, ValidationError{
				Code:    ErrOverlayRegistry,
				Overlay: f.Name(),
				Message: "overlay file is not listed in registry",
			})
		}
	}
	return errs
}

func checkCompat(cat *overlay.Catalog) []ValidationError {
	var errs []ValidationError
	for _, legacyName := range sortedKeys(cat.Compat) {
		for _, target := range cat.Compat[legacyName] {
			if _, ok := cat.Flat[target]; !ok {
				errs = append(errs, ValidationError{
					Code:    ErrOverlayCompatUnknown,
					Overlay: legacyName,
					Field:   "compat",
					Message: fmt.Sprintf("compat target %q is not a flat overlay", target),
				})
			}
		}
	}
	return errs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
