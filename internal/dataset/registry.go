package dataset

// Registry is the dataset descriptor: the tables and relations of one
// dataset version and the overlays published with it. It is the single
// source of truth for cross-table consistency.
type Registry struct {
	Version     string
	Description string
	Tables      []string
	Relations   []Relation
	Overlays    []string
}

// ListsTable reports whether the registry declares the table.
func (r *Registry) ListsTable(name string) bool {
	for _, t := range r.Tables {
		if t == name {
			return true
		}
	}
	return false
}
