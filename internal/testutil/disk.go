package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/roach88/mockset/internal/dataset"
)

// WriteJSON marshals v to root/rel, creating parent directories.
func WriteJSON(t *testing.T, root, rel string, v any) {
	t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		t.Fatalf("marshal %s: %v", rel, err)
	}
	WriteFile(t, root, rel, string(data))
}

// WriteFile writes raw content to root/rel, creating parent directories.
func WriteFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

// TableDocument renders a table in its on-disk form.
func TableDocument(tbl *dataset.Table) map[string]any {
	meta := map[string]any{}
	if tbl.Schema != nil {
		meta["schema"] = tbl.Schema
	}
	if len(tbl.TypeSchemas) > 0 {
		meta["typeSchemas"] = tbl.TypeSchemas
	}
	rows := make([]any, len(tbl.Rows))
	for i, r := range tbl.Rows {
		rows[i] = map[string]any(r)
	}
	return map[string]any{"$meta": meta, "rows": rows}
}

// RegistryDocument renders a registry in its on-disk form.
func RegistryDocument(reg *dataset.Registry) map[string]any {
	rels := make([]any, len(reg.Relations))
	for i, r := range reg.Relations {
		rel := map[string]any{
			"from": r.From.String(),
			"to":   r.To.String(),
			"type": r.Type,
		}
		if r.Nullable {
			rel["nullable"] = true
		}
		if len(r.When) > 0 {
			rel["when"] = r.When
		}
		rels[i] = rel
	}
	overlays := reg.Overlays
	if overlays == nil {
		overlays = []string{}
	}
	return map[string]any{
		"$meta":     map[string]any{"version": reg.Version, "description": reg.Description},
		"tables":    reg.Tables,
		"relations": rels,
		"overlays":  overlays,
	}
}

// FlatOverlayDocument renders a flat overlay document.
func FlatOverlayDocument(name, visibility string, fields, values, clients []string) map[string]any {
	meta := map[string]any{
		"name":        name,
		"description": name + " overlay",
		"visibility":  visibility,
		"fields":      fields,
	}
	if clients != nil {
		meta["clients"] = clients
	}
	return map[string]any{"$meta": meta, "values": values}
}

// WriteDataset lays the snapshot out under root: dataset.json plus one
// tables/<name>.json per table.
func WriteDataset(t *testing.T, root string, tables dataset.Tables, reg *dataset.Registry) {
	t.Helper()
	WriteJSON(t, root, "dataset.json", RegistryDocument(reg))
	for _, tbl := range tables {
		WriteJSON(t, root, filepath.Join("tables", tbl.Name+".json"), TableDocument(tbl))
	}
}
