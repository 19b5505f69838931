package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/legacy_demo.yaml")
	require.NoError(t, err)

	assert.Equal(t, "legacy_demo", s.Name)
	assert.Equal(t, filepath.Join("testdata", "data", "people"), s.Data)
	assert.Equal(t, []string{"demo"}, s.Stack)
	require.Len(t, s.Assertions, 4)
	assert.Equal(t, AssertEquals, s.Assertions[1].Type)
	assert.Equal(t, "Ada", s.Assertions[1].Value)
}

func TestLoadScenarioShares(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/shared_stack.yaml")
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", s.Target)
	require.Len(t, s.Shares, 2)
	assert.Equal(t, []string{"names", "demo"}, s.Shares[1].Overlays)
}

func TestLoadScenarioErrors(t *testing.T) {
	data, err := filepath.Abs("testdata/data/people")
	require.NoError(t, err)

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown field", "name: x\ndescription: d\ndata: " + data + "\nassertion: []\n", "field assertion not found"},
		{"missing name", "description: d\ndata: " + data + "\nassertions: [{type: materializes}]\n", "name is required"},
		{"missing description", "name: x\ndata: " + data + "\nassertions: [{type: materializes}]\n", "description is required"},
		{"missing data", "name: x\ndescription: d\nassertions: [{type: materializes}]\n", "data is required"},
		{"data not found", "name: x\ndescription: d\ndata: /nonexistent/root\nassertions: [{type: materializes}]\n", "data root not found"},
		{"no assertions", "name: x\ndescription: d\ndata: " + data + "\n", "assertions list is required"},
		{"stack and target", "name: x\ndescription: d\ndata: " + data + "\nstack: [a]\ntarget: a@b.c\nassertions: [{type: materializes}]\n", "mutually exclusive"},
		{"shares without target", "name: x\ndescription: d\ndata: " + data + "\nshares: [{target: b.c}]\nassertions: [{type: materializes}]\n", "shares require a target"},
		{"unknown assertion", "name: x\ndescription: d\ndata: " + data + "\nassertions: [{type: trace_order}]\n", `unknown type "trace_order"`},
		{"value_from without overlay", "name: x\ndescription: d\ndata: " + data + "\nassertions: [{type: value_from, table: users, field: firstName}]\n", "value_from requires overlay"},
		{"equals without id", "name: x\ndescription: d\ndata: " + data + "\nassertions: [{type: equals, table: users, field: firstName}]\n", "equals requires id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}
