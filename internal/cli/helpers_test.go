package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mockset/internal/dataset"
	"github.com/roach88/mockset/internal/testutil"
)

// writeMockDataset writes the fixture dataset with two flat overlays:
// "names" (public, 20 first names) and "small" (private to acme, only 3
// last names, too few for the 15 users).
func writeMockDataset(t *testing.T) string {
	t.Helper()
	tables, reg := testutil.MockDataset()
	return writeDataset(t, tables, reg)
}

func writeDataset(t *testing.T, tables dataset.Tables, reg *dataset.Registry) string {
	t.Helper()
	root := t.TempDir()
	reg.Overlays = []string{"names", "small"}
	testutil.WriteDataset(t, root, tables, reg)
	testutil.WriteJSON(t, root, "overlays/names.json",
		testutil.FlatOverlayDocument("names", "public", []string{"firstName"}, testutil.Values("Name", 20), nil))
	testutil.WriteJSON(t, root, "overlays/small.json",
		testutil.FlatOverlayDocument("small", "private", []string{"lastName"}, testutil.Values("Small", 3), []string{"acme"}))
	return root
}

// execute runs a command built for opts and returns its stdout and stderr.
func execute(t *testing.T, build func(*RootOptions) *cobra.Command, opts *RootOptions, args ...string) (string, string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := build(opts)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// decodeResponse parses a JSON CLIResponse, decoding Data into data when
// non-nil.
func decodeResponse(t *testing.T, out string, data any) CLIResponse {
	t.Helper()
	var raw struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), out)
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data), string(raw.Data))
	}
	return CLIResponse{Status: raw.Status, Error: raw.Error}
}
