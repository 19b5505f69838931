package testutil

import (
	"fmt"
	"maps"

	"github.com/roach88/mockset/internal/dataset"
)

// UserSchema is the schema of the users fixture table.
var UserSchema = dataset.Schema{
	"id":        "string",
	"firstName": "string",
	"lastName":  "string",
	"email":     "string",
	"avatarUrl": "string?",
}

// EntitySchema is the schema of the entities fixture table.
var EntitySchema = dataset.Schema{
	"id":       "string",
	"name":     "string",
	"type":     "string",
	"parentId": "string?",
}

// MembershipSchema is the schema of the memberships fixture table.
var MembershipSchema = dataset.Schema{
	"id":         "string",
	"sourceType": "string",
	"sourceId":   "string",
	"entityId":   "string",
	"role":       "string",
}

// UserID returns the id of the i-th fixture user, starting at 1.
func UserID(i int) string {
	return fmt.Sprintf("usr_%03d", i)
}

// EntityID returns the id of the i-th fixture entity, starting at 1.
func EntityID(i int) string {
	return fmt.Sprintf("ent_%03d", i)
}

// Users builds a users table with n complete rows. Each table gets its own
// copy of the schema so tests may edit it.
func Users(n int) *dataset.Table {
	t := &dataset.Table{Name: "users", Schema: maps.Clone(UserSchema)}
	for i := 1; i <= n; i++ {
		t.Rows = append(t.Rows, dataset.Row{
			"id":        UserID(i),
			"firstName": fmt.Sprintf("First%02d", i),
			"lastName":  fmt.Sprintf("Last%02d", i),
			"email":     fmt.Sprintf("user%02d@example.com", i),
		})
	}
	return t
}

// Entities builds an entities table: ent_001 is a company, the rest are
// teams parented to it.
func Entities(n int) *dataset.Table {
	t := &dataset.Table{
		Name:   "entities",
		Schema: maps.Clone(EntitySchema),
		TypeSchemas: map[string]dataset.Schema{
			"team": {"parentId": "string"},
		},
	}
	for i := 1; i <= n; i++ {
		row := dataset.Row{
			"id":       EntityID(i),
			"name":     fmt.Sprintf("Entity %02d", i),
			"type":     "team",
			"parentId": EntityID(1),
		}
		if i == 1 {
			row["type"] = "company"
			row["parentId"] = nil
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Memberships builds one membership per user into ent_001 plus one entity
// membership of ent_002 into ent_001.
func Memberships(users int) *dataset.Table {
	t := &dataset.Table{Name: "memberships", Schema: maps.Clone(MembershipSchema)}
	for i := 1; i <= users; i++ {
		t.Rows = append(t.Rows, dataset.Row{
			"id":         fmt.Sprintf("mem_%03d", i),
			"sourceType": "user",
			"sourceId":   UserID(i),
			"entityId":   EntityID(1),
			"role":       "member",
		})
	}
	t.Rows = append(t.Rows, dataset.Row{
		"id":         fmt.Sprintf("mem_%03d", users+1),
		"sourceType": "entity",
		"sourceId":   EntityID(2),
		"entityId":   EntityID(1),
		"role":       "subsidiary",
	})
	return t
}

// Relations returns the registry relations of the fixture dataset.
func Relations() []dataset.Relation {
	return []dataset.Relation{
		{
			From: dataset.Ref{Table: "memberships", Field: "sourceId"},
			To:   dataset.Ref{Table: "users", Field: "id"},
			Type: "many-to-one",
			When: map[string]any{"sourceType": "user"},
		},
		{
			From: dataset.Ref{Table: "memberships", Field: "sourceId"},
			To:   dataset.Ref{Table: "entities", Field: "id"},
			Type: "many-to-one",
			When: map[string]any{"sourceType": "entity"},
		},
		{
			From: dataset.Ref{Table: "memberships", Field: "entityId"},
			To:   dataset.Ref{Table: "entities", Field: "id"},
			Type: "many-to-one",
		},
		{
			From:     dataset.Ref{Table: "entities", Field: "parentId"},
			To:       dataset.Ref{Table: "entities", Field: "id"},
			Type:     "many-to-one",
			Nullable: true,
		},
	}
}

// MockDataset returns a consistent snapshot: 15 users, 4 entities, 16
// memberships and a registry listing all of them.
func MockDataset() (dataset.Tables, *dataset.Registry) {
	tables := dataset.Tables{Users(15), Entities(4), Memberships(15)}
	reg := &dataset.Registry{
		Version:     "v1",
		Description: "mock dataset",
		Tables:      []string{"users", "entities", "memberships"},
		Relations:   Relations(),
	}
	return tables, reg
}

// Values returns n distinct strings prefix01, prefix02, ...
func Values(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%02d", prefix, i+1)
	}
	return out
}
