package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mockset/internal/testutil"
)

func writeOverlayCatalog(t *testing.T) string {
	t.Helper()
	root := writeMockDataset(t)
	testutil.WriteJSON(t, root, "overlays/_compat.json", map[string]any{"old_names": []string{"names"}})
	testutil.WriteJSON(t, root, "overlays/users/public_demo.json", map[string]any{
		"$meta":     map[string]any{"table": "users", "visibility": "public"},
		"overrides": map[string]any{"usr_001": map[string]any{"firstName": "Ada"}},
	})
	return root
}

func overlayNames(infos []OverlayInfo) []string {
	out := make([]string, len(infos))
	for i, info := range infos {
		out[i] = info.Name
	}
	return out
}

func TestOverlaysListJSON(t *testing.T) {
	root := writeOverlayCatalog(t)

	out, _, err := execute(t, NewOverlaysCommand, &RootOptions{Format: "json"}, "list", root)
	require.NoError(t, err)

	var infos []OverlayInfo
	decodeResponse(t, out, &infos)
	assert.Equal(t, []string{"demo", "names", "old_names", "small"}, overlayNames(infos))

	byName := map[string]OverlayInfo{}
	for _, info := range infos {
		byName[info.Name] = info
	}
	assert.Equal(t, "legacy", byName["demo"].Kind)
	assert.Equal(t, []string{"users"}, byName["demo"].Tables)
	assert.Equal(t, "flat", byName["names"].Kind)
	assert.Equal(t, 20, byName["names"].Values)
	assert.Equal(t, []string{"firstName"}, byName["names"].Fields)
	assert.Equal(t, "compat", byName["old_names"].Kind)
	assert.Equal(t, []string{"names"}, byName["old_names"].Targets)
	assert.Equal(t, "private", byName["small"].Visibility)
	assert.Equal(t, []string{"acme"}, byName["small"].Clients)
}

func TestOverlaysListClient(t *testing.T) {
	root := writeOverlayCatalog(t)

	out, _, err := execute(t, NewOverlaysCommand, &RootOptions{Format: "json"}, "list", root, "--client", "globex")
	require.NoError(t, err)
	var infos []OverlayInfo
	decodeResponse(t, out, &infos)
	assert.NotContains(t, overlayNames(infos), "small")

	out, _, err = execute(t, NewOverlaysCommand, &RootOptions{Format: "json"}, "list", root, "--client", "acme")
	require.NoError(t, err)
	infos = nil
	decodeResponse(t, out, &infos)
	assert.Contains(t, overlayNames(infos), "small")
}

func TestOverlaysListMatch(t *testing.T) {
	root := writeOverlayCatalog(t)

	out, _, err := execute(t, NewOverlaysCommand, &RootOptions{Format: "json"}, "list", root, "--match", "*names")
	require.NoError(t, err)
	var infos []OverlayInfo
	decodeResponse(t, out, &infos)
	assert.Equal(t, []string{"names", "old_names"}, overlayNames(infos))
}

func TestOverlaysListInvalidMatch(t *testing.T) {
	root := writeOverlayCatalog(t)

	_, _, err := execute(t, NewOverlaysCommand, &RootOptions{Format: "text"}, "list", root, "--match", "[unclosed")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestOverlaysListText(t *testing.T) {
	root := writeOverlayCatalog(t)

	out, _, err := execute(t, NewOverlaysCommand, &RootOptions{Format: "text"}, "list", root)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, []string{"NAME", "KIND", "VISIBILITY", "DETAIL"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"demo", "legacy", "public", "tables", "users"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"names", "flat", "public", "20", "values", "for", "firstName"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"old_names", "compat", "-", "->", "names"}, strings.Fields(lines[3]))
	assert.Equal(t, []string{"small", "flat", "private", "3", "values", "for", "lastName"}, strings.Fields(lines[4]))
}

func TestOverlaysListEmpty(t *testing.T) {
	root := writeMockDataset(t)

	out, _, err := execute(t, NewOverlaysCommand, &RootOptions{Format: "text"}, "list", root, "--match", "zzz*")
	require.NoError(t, err)
	assert.Equal(t, "No overlays found.\n", out)
}
