package overlay

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/roach88/mockset/internal/dataset"
)

// Kind tags the representation of an overlay.
type Kind string

const (
	KindFlat   Kind = "flat"
	KindLegacy Kind = "legacy"
)

// Visibility controls who may use an overlay.
type Visibility string

const (
	Public  Visibility = "public"
	Private Visibility = "private"
)

// Valid reports whether v is a known visibility.
func (v Visibility) Valid() bool {
	return v == Public || v == Private
}

// Overlay is implemented by *Flat and *Legacy.
type Overlay interface {
	Name() string
	Kind() Kind
}

// Flat is a value-list overlay.
type Flat struct {
	OverlayName string
	Group       string
	Description string
	Visibility  Visibility
	Clients     []string
	Fields      []string
	Values      []string

	// File is the document the overlay was decoded from, without directory.
	File string
}

func (f *Flat) Name() string { return f.OverlayName }
func (f *Flat) Kind() Kind   { return KindFlat }

// VisibleTo reports whether the client may use the overlay.
func (f *Flat) VisibleTo(client string) bool {
	if f.Visibility != Private {
		return true
	}
	for _, c := range f.Clients {
		if c == client {
			return true
		}
	}
	return false
}

// Legacy is a per-table row-override overlay. One overlay name may be spread
// over several tables, one document each.
type Legacy struct {
	OverlayName string
	Table       string
	Visibility  Visibility
	Description string
	Clients     []string

	// Overrides maps row ids to the partial row merged onto that row.
	Overrides map[string]map[string]any

	// Dir is the table-group directory holding the document and File its
	// base name. Both are checked against the document's metadata.
	Dir  string
	File string
}

func (l *Legacy) Name() string { return l.OverlayName }
func (l *Legacy) Kind() Kind   { return KindLegacy }

// FilePrefix returns the visibility prefix of the file name ("public",
// "private") or "" when the name has neither.
func (l *Legacy) FilePrefix() string {
	base := strings.TrimSuffix(l.File, filepath.Ext(l.File))
	for _, p := range []Visibility{Public, Private} {
		if strings.HasPrefix(base, string(p)+"_") {
			return string(p)
		}
	}
	return ""
}

type flatDoc struct {
	Meta struct {
		Name        string     `json:"name"`
		Group       string     `json:"group"`
		Description string     `json:"description"`
		Visibility  Visibility `json:"visibility"`
		Fields      []string   `json:"fields"`
		Clients     []string   `json:"clients"`
	} `json:"$meta"`
	Values []string `json:"values"`
}

// DecodeFlat decodes a flat overlay document. file is the base name of the
// document; it is kept for the name/file correspondence check.
func DecodeFlat(file string, data []byte) (*Flat, error) {
	var doc flatDoc
	if err := dataset.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("overlay %s: %w", file, err)
	}
	return &Flat{
		OverlayName: doc.Meta.Name,
		Group:       doc.Meta.Group,
		Description: doc.Meta.Description,
		Visibility:  doc.Meta.Visibility,
		Clients:     doc.Meta.Clients,
		Fields:      doc.Meta.Fields,
		Values:      doc.Values,
		File:        file,
	}, nil
}

type legacyDoc struct {
	Meta struct {
		Table       string     `json:"table"`
		Overlay     string     `json:"overlay"`
		Visibility  Visibility `json:"visibility"`
		Description string     `json:"description"`
		Clients     []string   `json:"clients"`
	} `json:"$meta"`
	Overrides map[string]map[string]any `json:"overrides"`
}

// DecodeLegacy decodes a legacy directory-format overlay found in dir/file.
// When $meta.overlay is empty the name is taken from the file name with its
// visibility prefix removed.
func DecodeLegacy(dir, file string, data []byte) (*Legacy, error) {
	var doc legacyDoc
	if err := dataset.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("overlay %s/%s: %w", dir, file, err)
	}
	l := &Legacy{
		OverlayName: doc.Meta.Overlay,
		Table:       doc.Meta.Table,
		Visibility:  doc.Meta.Visibility,
		Description: doc.Meta.Description,
		Clients:     doc.Meta.Clients,
		Overrides:   doc.Overrides,
		Dir:         dir,
		File:        file,
	}
	if l.OverlayName == "" {
		base := strings.TrimSuffix(file, filepath.Ext(file))
		if p := l.FilePrefix(); p != "" {
			base = strings.TrimPrefix(base, p+"_")
		}
		l.OverlayName = base
	}
	return l, nil
}

// DecodeCompat decodes the legacy-name compatibility map:
// {"legacyName": ["flatName", ...]}.
func DecodeCompat(data []byte) (map[string][]string, error) {
	var m map[string][]string
	if err := dataset.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("compat map: %w", err)
	}
	return m, nil
}
