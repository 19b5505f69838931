package validate

import (
	"fmt"
	"strings"
)

// Check names, in report order.
const (
	CheckDataset     = "dataset"
	CheckSchema      = "schema"
	CheckIDs         = "ids"
	CheckForeignKeys = "foreign_keys"
	CheckRelations   = "relations"
	CheckOverlays    = "overlays"
)

// Validation error codes (E200-E299)
const (
	// Dataset consistency (E201-E209)
	ErrTableUnlisted = "E201" // table file present but not in registry
	ErrTableMissing  = "E202" // table in registry but no file

	// Schema completeness (E211-E219)
	ErrSchemaMissing     = "E211" // table declares no schema
	ErrRequiredField     = "E212" // non-nullable field absent or null
	ErrTypeRequiredField = "E213" // non-nullable type-schema field absent or null

	// ID uniqueness (E221-E229)
	ErrIDMissing   = "E221" // row has no id
	ErrIDDuplicate = "E222" // id already used by an earlier row

	// Foreign keys (E231-E239)
	ErrFKNull          = "E231" // non-nullable reference is null or absent
	ErrFKDangling      = "E232" // reference points at no row
	ErrFKUnknownTarget = "E233" // relation target table not loaded

	// Relations consistency (E241-E249)
	ErrRelationFromField = "E241" // from field not in source schema
	ErrRelationToField   = "E242" // to field not in target schema

	// Overlays (E251-E269)
	ErrOverlayName          = "E251" // $meta.name does not match file name
	ErrOverlayVisibility    = "E252" // visibility not public/private
	ErrOverlayClients       = "E253" // private overlay without clients
	ErrOverlayFields        = "E254" // empty fields list
	ErrOverlayValues        = "E255" // empty values list
	ErrLegacyPrefix         = "E256" // file prefix does not match visibility
	ErrLegacyTable          = "E257" // $meta.table does not match directory or table missing
	ErrLegacyOverrideID     = "E258" // override keyed by unknown row id
	ErrOverlayRegistry      = "E259" // overlay listed but missing, or present but unlisted
	ErrOverlayCompatUnknown = "E260" // compat entry targets unknown flat overlay
	ErrOverlayDuplicate     = "E261" // two flat overlay files declare the same name
)

// ValidationError is one consistency problem. It carries enough context to
// locate the offending row: table, row id (or "#index" when the id itself
// is missing), and field.
type ValidationError struct {
	Check   string `json:"check"`
	Code    string `json:"code"`
	Table   string `json:"table,omitempty"`
	Row     string `json:"row,omitempty"`
	Field   string `json:"field,omitempty"`
	Overlay string `json:"overlay,omitempty"`
	Message string `json:"message"`
}

// Location renders where the error is, e.g. "users[usr_003].email" or
// "overlay kenya/users.$meta.table".
func (e ValidationError) Location() string {
	var b strings.Builder
	switch {
	case e.Overlay != "":
		b.WriteString("overlay ")
		b.WriteString(e.Overlay)
		if e.Table != "" {
			b.WriteString("/")
			b.WriteString(e.Table)
		}
	case e.Table == "":
		return e.Field
	default:
		b.WriteString(e.Table)
	}

	if e.Row != "" {
		b.WriteString("[")
		b.WriteString(e.Row)
		b.WriteString("]")
	}
	if e.Field != "" {
		b.WriteString(".")
		b.WriteString(e.Field)
	}
	return b.String()
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if loc := e.Location(); loc != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, loc, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}
