package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mockset/internal/config"
	"github.com/roach88/mockset/internal/overlay"
	"github.com/roach88/mockset/internal/store"
	"github.com/roach88/mockset/internal/testutil"
)

func decodeTables(t *testing.T, out string) map[string][]map[string]any {
	t.Helper()
	var doc map[string][]map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc), out)
	return doc
}

func TestMaterializeStackToStdout(t *testing.T) {
	root := writeMockDataset(t)

	out, _, err := execute(t, NewMaterializeCommand, &RootOptions{Format: "text"}, root, "--stack", "names")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(out, "\n"))

	doc := decodeTables(t, out)
	require.Len(t, doc["users"], 15)
	names := testutil.Values("Name", 20)
	seen := map[string]bool{}
	for _, row := range doc["users"] {
		first, _ := row["firstName"].(string)
		assert.Contains(t, names, first)
		assert.False(t, seen[first], "value %s reused", first)
		seen[first] = true
		assert.True(t, strings.HasPrefix(row["lastName"].(string), "Last"), "untouched field keeps its base value")
	}
	assert.Len(t, doc["memberships"], 16)

	again, _, err := execute(t, NewMaterializeCommand, &RootOptions{Format: "text"}, root, "--stack", "names")
	require.NoError(t, err)
	assert.Equal(t, out, again, "materialization is deterministic")
}

func TestMaterializeOutputIsCanonical(t *testing.T) {
	root := writeMockDataset(t)

	out, _, err := execute(t, NewMaterializeCommand, &RootOptions{Format: "text"}, root)
	require.NoError(t, err)

	line := strings.TrimSuffix(out, "\n")
	assert.NotContains(t, line, "\n")
	assert.NotContains(t, line, ": ")
	assert.True(t, strings.HasPrefix(line, `{"entities":[{"id":"ent_001",`), line[:40])
}

func TestMaterializeInsufficientListsEveryError(t *testing.T) {
	root := writeMockDataset(t)

	out, _, err := execute(t, NewMaterializeCommand, &RootOptions{Format: "text"}, root, "--stack", "small,names")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, `✗ overlay "small": table "users" field "lastName" needs 15 values, only 3 available`)
	assert.Contains(t, out, "✗ materialization failed with 1 error\n")
	assert.NotContains(t, out, `"users":[`, "no partial output")
}

func TestMaterializeInsufficientJSON(t *testing.T) {
	root := writeMockDataset(t)

	out, _, err := execute(t, NewMaterializeCommand, &RootOptions{Format: "json"}, root, "--stack", "small")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var raw struct {
		Status string `json:"status"`
		Error  struct {
			Code    string                        `json:"code"`
			Details []overlay.MaterializationError `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw))
	assert.Equal(t, "error", raw.Status)
	assert.Equal(t, CodeInsufficient, raw.Error.Code)
	assert.Equal(t, []overlay.MaterializationError{
		{Overlay: "small", Table: "users", Field: "lastName", Needed: 15, Available: 3},
	}, raw.Error.Details)
}

func TestMaterializeUnknownOverlay(t *testing.T) {
	root := writeMockDataset(t)

	out, _, err := execute(t, NewMaterializeCommand, &RootOptions{Format: "text"}, root, "--stack", "names,nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E_UNKNOWN_OVERLAY]")
	assert.Contains(t, out, `unknown overlay "nope"`)
}

func TestMaterializeOutDir(t *testing.T) {
	root := writeMockDataset(t)
	outDir := filepath.Join(t.TempDir(), "build")

	out, _, err := execute(t, NewMaterializeCommand, &RootOptions{Format: "text"}, root, "--stack", "names", "--out", outDir)
	require.NoError(t, err)
	assert.Equal(t, "✓ Wrote 3 tables to "+outDir+"\n", out)

	data, err := os.ReadFile(filepath.Join(outDir, "users.json"))
	require.NoError(t, err)
	var doc struct {
		Rows []map[string]any `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Len(t, doc.Rows, 15)

	for _, name := range []string{"entities.json", "memberships.json"} {
		assert.FileExists(t, filepath.Join(outDir, name))
	}
}

// writeRawValueDataset writes the fixture dataset with a first user whose
// values have spellings a normalizing encoder would rewrite.
func writeRawValueDataset(t *testing.T) string {
	t.Helper()
	tables, reg := testutil.MockDataset()
	usr := tables.Get("users").Rows[0]
	usr["lastName"] = "Rene\u0301"
	usr["score"] = json.Number("1.50")
	usr["big"] = json.Number("12345678901234567890")
	return writeDataset(t, tables, reg)
}

func decodeRows(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	var doc struct {
		Rows []map[string]any `json:"rows"`
	}
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&doc), string(data))
	return doc.Rows
}

func TestMaterializeOutKeepsBaseValues(t *testing.T) {
	root := writeRawValueDataset(t)

	tests := []struct {
		name string
		args []string
	}{
		{"empty stack", nil},
		{"names", []string{"--stack", "names"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outDir := filepath.Join(t.TempDir(), "build")
			args := append([]string{root, "--out", outDir}, tt.args...)
			_, _, err := execute(t, NewMaterializeCommand, &RootOptions{Format: "text"}, args...)
			require.NoError(t, err)

			data, err := os.ReadFile(filepath.Join(outDir, "users.json"))
			require.NoError(t, err)
			assert.Contains(t, string(data), `"score":1.50`)
			assert.Contains(t, string(data), `"big":12345678901234567890`)

			first := decodeRows(t, data)[0]
			assert.Equal(t, "Rene\u0301", first["lastName"])
			assert.Equal(t, json.Number("1.50"), first["score"])
			assert.Equal(t, json.Number("12345678901234567890"), first["big"])
		})
	}
}

func TestMaterializeEmptyStackRoundTrips(t *testing.T) {
	root := writeRawValueDataset(t)
	base, err := os.ReadFile(filepath.Join(root, "tables", "users.json"))
	require.NoError(t, err)

	out, _, err := execute(t, NewMaterializeCommand, &RootOptions{Format: "text"}, root)
	require.NoError(t, err)
	assert.Contains(t, out, "\"lastName\":\"Rene\u0301\"")

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	got := decodeRows(t, []byte(`{"rows":`+string(doc["users"])+`}`))
	assert.Equal(t, decodeRows(t, base), got)
}

func TestMaterializeJSONIncludesDigest(t *testing.T) {
	root := writeMockDataset(t)

	out, _, err := execute(t, NewMaterializeCommand, &RootOptions{Format: "json"}, root, "--stack", "names")
	require.NoError(t, err)

	var result MaterializeResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []string{"names"}, result.Stack)
	assert.Len(t, result.Digest, 64)
	assert.Contains(t, result.Tables, "users")

	again, _, err := execute(t, NewMaterializeCommand, &RootOptions{Format: "json"}, root, "--stack", "names")
	require.NoError(t, err)
	var second MaterializeResult
	decodeResponse(t, again, &second)
	assert.Equal(t, result.Digest, second.Digest)
}

func TestMaterializeVerbosePrintsDigest(t *testing.T) {
	root := writeMockDataset(t)

	_, errOut, err := execute(t, NewMaterializeCommand, &RootOptions{Format: "text", Verbose: true}, root, "--stack", "names")
	require.NoError(t, err)
	assert.Contains(t, errOut, "Snapshot digest: ")
	assert.Contains(t, errOut, "Stack: [names]")
}

func TestMaterializeForTarget(t *testing.T) {
	root := writeMockDataset(t)
	dbPath := filepath.Join(t.TempDir(), "shares.db")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	_, err = st.CreateShare(context.Background(), "example.com", "v1", []string{"names"})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, _, err := execute(t, NewMaterializeCommand, &RootOptions{Format: "json"}, root, "--for", "User01@Example.com", "--db", dbPath)
	require.NoError(t, err)

	var result MaterializeResult
	decodeResponse(t, out, &result)
	assert.Equal(t, []string{"names"}, result.Stack)
	assert.Equal(t, "User01@Example.com", result.Target)

	out, _, err = execute(t, NewMaterializeCommand, &RootOptions{Format: "json"}, root, "--for", "someone@elsewhere.org", "--db", dbPath)
	require.NoError(t, err)
	var base MaterializeResult
	decodeResponse(t, out, &base)
	assert.Empty(t, base.Stack, "no share means base tables")
}

func TestMaterializeForRejectsGlob(t *testing.T) {
	root := writeMockDataset(t)
	dbPath := filepath.Join(t.TempDir(), "shares.db")

	out, _, err := execute(t, NewMaterializeCommand, &RootOptions{Format: "text"}, root, "--for", "*@example.com", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E_INVALID_TARGET]")
}

func TestMaterializeStackAndForExclusive(t *testing.T) {
	root := writeMockDataset(t)

	_, _, err := execute(t, NewMaterializeCommand, &RootOptions{Format: "text"}, root, "--stack", "names", "--for", "a@b.com")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestMaterializeClientVisibility(t *testing.T) {
	root := writeMockDataset(t)

	out, _, err := execute(t, NewMaterializeCommand, &RootOptions{Format: "text"}, root, "--stack", "small", "--client", "globex")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, `overlay "small" is private and not shared with client "globex"`)

	_, _, err = execute(t, NewMaterializeCommand, &RootOptions{Format: "text"}, root, "--stack", "small", "--client", "acme")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err), "acme may use it, it is just too small")
}

func TestMaterializeConfiguredStack(t *testing.T) {
	root := writeMockDataset(t)
	cfg := config.Default()
	cfg.Data.Root = root
	cfg.Overlays.Stack = []string{"names"}

	out, _, err := execute(t, NewMaterializeCommand, &RootOptions{Format: "json", Config: cfg})
	require.NoError(t, err)

	var result MaterializeResult
	decodeResponse(t, out, &result)
	assert.Equal(t, []string{"names"}, result.Stack)
}
