package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrMissingRows is returned when a table document has no "rows" sequence.
var ErrMissingRows = errors.New(`table document has no "rows" array`)

type tableMeta struct {
	Schema      map[string]FieldType            `json:"schema"`
	TypeSchemas map[string]map[string]FieldType `json:"typeSchemas"`
	TypeField   string                          `json:"typeField"`
}

type tableDoc struct {
	Meta tableMeta         `json:"$meta"`
	Rows *[]json.RawMessage `json:"rows"`
}

// Unmarshal decodes a single JSON document into v, keeping numbers as
// json.Number so ids and values round-trip without float rounding.
func Unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("unexpected data after top-level value")
	}
	return nil
}

// DecodeTable decodes a table document of the form
// {"$meta": {"schema": {...}, "typeSchemas": {...}}, "rows": [...]}.
func DecodeTable(name string, data []byte) (*Table, error) {
	var doc tableDoc
	if err := Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("table %s: %w", name, err)
	}
	if doc.Rows == nil {
		return nil, fmt.Errorf("table %s: %w", name, ErrMissingRows)
	}

	t := &Table{
		Name:      name,
		TypeField: doc.Meta.TypeField,
		Rows:      make([]Row, 0, len(*doc.Rows)),
	}
	if doc.Meta.Schema != nil {
		t.Schema = Schema(doc.Meta.Schema)
	}
	if len(doc.Meta.TypeSchemas) > 0 {
		t.TypeSchemas = make(map[string]Schema, len(doc.Meta.TypeSchemas))
		for k, s := range doc.Meta.TypeSchemas {
			t.TypeSchemas[k] = Schema(s)
		}
	}

	for i, raw := range *doc.Rows {
		var row Row
		if err := Unmarshal(raw, &row); err != nil {
			return nil, fmt.Errorf("table %s: rows[%d]: %w", name, i, err)
		}
		if row == nil {
			return nil, fmt.Errorf("table %s: rows[%d]: row must be an object", name, i)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

type relationDoc struct {
	From     string         `json:"from"`
	To       string         `json:"to"`
	Type     string         `json:"type"`
	Nullable bool           `json:"nullable"`
	When     map[string]any `json:"when"`
}

type registryDoc struct {
	Meta struct {
		Version     string `json:"version"`
		Description string `json:"description"`
	} `json:"$meta"`
	Tables    []string      `json:"tables"`
	Relations []relationDoc `json:"relations"`
	Overlays  []string      `json:"overlays"`
}

// DecodeRegistry decodes a dataset descriptor. Relation endpoints are given
// as dotted "table.field" strings and are split here; a malformed endpoint
// is a structural error.
func DecodeRegistry(data []byte) (*Registry, error) {
	var doc registryDoc
	if err := Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}

	reg := &Registry{
		Version:     doc.Meta.Version,
		Description: doc.Meta.Description,
		Tables:      doc.Tables,
		Overlays:    doc.Overlays,
		Relations:   make([]Relation, 0, len(doc.Relations)),
	}
	for i, rd := range doc.Relations {
		from, err := ParseRef(rd.From)
		if err != nil {
			return nil, fmt.Errorf("registry: relations[%d].from: %w", i, err)
		}
		to, err := ParseRef(rd.To)
		if err != nil {
			return nil, fmt.Errorf("registry: relations[%d].to: %w", i, err)
		}
		reg.Relations = append(reg.Relations, Relation{
			From:     from,
			To:       to,
			Type:     rd.Type,
			Nullable: rd.Nullable,
			When:     rd.When,
		})
	}
	return reg, nil
}
