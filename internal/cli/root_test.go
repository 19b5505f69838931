package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "mockset", cmd.Use)
	assert.Contains(t, cmd.Long, "overlay")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"validate"},
		{"materialize"},
		{"overlays", "list"},
		{"share", "add"},
		{"share", "list"},
		{"share", "resolve"},
		{"share", "remove"},
		{"test"},
	}

	for _, path := range commands {
		t.Run(filepath.Join(path...), func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err)
			require.NotNil(t, subCmd)
			assert.Equal(t, path[len(path)-1], subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestMaterializeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	sub, _, err := cmd.Find([]string{"materialize"})
	require.NoError(t, err)

	for _, name := range []string{"stack", "for", "db", "client", "version"} {
		assert.NotNil(t, sub.Flags().Lookup(name), name)
	}
	out := sub.Flags().Lookup("out")
	require.NotNil(t, out)
	assert.Equal(t, "o", out.Shorthand)
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "invalid", "validate", t.TempDir()})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRootLoadsExplicitConfig(t *testing.T) {
	root := writeMockDataset(t)
	cfgDir := t.TempDir()
	cfgPath := filepath.Join(cfgDir, "mockset.yaml")
	content := "data:\n  root: " + root + "\noutput:\n  format: json\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", cfgPath, "validate"})

	require.NoError(t, cmd.Execute())

	var result ValidationResult
	resp := decodeResponse(t, buf.String(), &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.Valid)
	assert.Equal(t, root, result.Root)
}

func TestRootFormatFlagOverridesConfig(t *testing.T) {
	root := writeMockDataset(t)
	cfgPath := filepath.Join(t.TempDir(), "mockset.toml")
	content := "[data]\nroot = \"" + root + "\"\n\n[output]\nformat = \"json\"\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", cfgPath, "--format", "text", "validate"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "✓ All 6 checks passed (3 tables, 2 overlays)\n", buf.String())
}

func TestRootMissingConfig(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "nope.yaml"), "validate"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
