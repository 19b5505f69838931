package overlay

import (
	"slices"
	"strings"
)

// Catalog holds every overlay available to one dataset version.
type Catalog struct {
	Flat   map[string]*Flat
	Legacy map[string][]*Legacy

	// FlatDocs is every flat document in load order, including ones whose
	// name a later document reused. Flat keeps only the first of those.
	FlatDocs []*Flat

	// Compat translates legacy overlay names to their flat equivalents so
	// old stack references keep resolving after migration.
	Compat map[string][]string
}

// NewCatalog indexes flat overlays by name and groups legacy documents by
// overlay name, ordered by table then file. When two flat documents share a
// name the first one loaded is indexed; both stay in FlatDocs.
func NewCatalog(flat []*Flat, legacy []*Legacy, compat map[string][]string) *Catalog {
	c := &Catalog{
		Flat:     make(map[string]*Flat, len(flat)),
		Legacy:   make(map[string][]*Legacy),
		Compat:   compat,
		FlatDocs: slices.Clone(flat),
	}
	if c.Compat == nil {
		c.Compat = map[string][]string{}
	}
	for _, f := range flat {
		if _, dup := c.Flat[f.Name()]; !dup {
			c.Flat[f.Name()] = f
		}
	}
	for _, l := range legacy {
		c.Legacy[l.Name()] = append(c.Legacy[l.Name()], l)
	}
	for _, group := range c.Legacy {
		slices.SortFunc(group, func(a, b *Legacy) int {
			if a.Table != b.Table {
				return strings.Compare(a.Table, b.Table)
			}
			return strings.Compare(a.File, b.File)
		})
	}
	return c
}

// Resolve turns stack names into overlays, preserving stack order.
//
// Each name resolves to the flat overlay of that name, else to the flat
// overlays its compat entry lists, else to its legacy documents. A name
// that matches none of these fails the whole resolution.
func (c *Catalog) Resolve(stack []string) ([]Overlay, error) {
	var out []Overlay
	for _, name := range stack {
		if f, ok := c.Flat[name]; ok {
			out = append(out, f)
			continue
		}
		if targets, ok := c.Compat[name]; ok {
			for _, target := range targets {
				f, ok := c.Flat[target]
				if !ok {
					return nil, &UnknownOverlayError{Name: target, Via: name}
				}
				out = append(out, f)
			}
			continue
		}
		if group, ok := c.Legacy[name]; ok {
			for _, l := range group {
				out = append(out, l)
			}
			continue
		}
		return nil, &UnknownOverlayError{Name: name}
	}
	return out, nil
}

// Names returns every resolvable stack name, sorted.
func (c *Catalog) Names() []string {
	seen := make(map[string]bool)
	for name := range c.Flat {
		seen[name] = true
	}
	for name := range c.Legacy {
		seen[name] = true
	}
	for name := range c.Compat {
		seen[name] = true
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// FlatList returns the flat overlays sorted by name.
func (c *Catalog) FlatList() []*Flat {
	out := make([]*Flat, 0, len(c.Flat))
	for _, f := range c.Flat {
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b *Flat) int { return strings.Compare(a.Name(), b.Name()) })
	return out
}

// LegacyList returns every legacy document, ordered by overlay name, table
// and file.
func (c *Catalog) LegacyList() []*Legacy {
	names := make([]string, 0, len(c.Legacy))
	for name := range c.Legacy {
		names = append(names, name)
	}
	slices.Sort(names)

	var out []*Legacy
	for _, name := range names {
		out = append(out, c.Legacy[name]...)
	}
	return out
}

// VisibleTo returns the flat overlays the client may use, sorted by name.
// An empty client sees only public overlays.
func (c *Catalog) VisibleTo(client string) []*Flat {
	var out []*Flat
	for _, f := range c.FlatList() {
		if f.VisibleTo(client) {
			out = append(out, f)
		}
	}
	return out
}
