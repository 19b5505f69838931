package cli

import (
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mockset/internal/config"
	"github.com/roach88/mockset/internal/testutil"
	"github.com/roach88/mockset/internal/validate"
)

// writeBrokenDataset drops the email of the first four users.
func writeBrokenDataset(t *testing.T) string {
	t.Helper()
	tables, reg := testutil.MockDataset()
	users := tables.Get("users")
	for i := 0; i < 4; i++ {
		delete(users.Rows[i], "email")
	}
	return writeDataset(t, tables, reg)
}

func TestValidateValidDataset(t *testing.T) {
	root := writeMockDataset(t)

	out, _, err := execute(t, NewValidateCommand, &RootOptions{Format: "text"}, root)
	require.NoError(t, err)
	assert.Equal(t, "✓ All 6 checks passed (3 tables, 2 overlays)\n", out)
}

func TestValidateValidDatasetJSON(t *testing.T) {
	root := writeMockDataset(t)

	out, _, err := execute(t, NewValidateCommand, &RootOptions{Format: "json"}, root)
	require.NoError(t, err)

	var result ValidationResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
	assert.True(t, result.Valid)
	assert.Equal(t, 3, result.Tables)
	assert.Equal(t, 2, result.Overlays)
	assert.Equal(t, validate.CheckNames(), result.Report.Passed)
	assert.Empty(t, result.Report.Failed)
}

func TestValidateFailureText(t *testing.T) {
	root := writeBrokenDataset(t)

	out, _, err := execute(t, NewValidateCommand, &RootOptions{Format: "text"}, root, "--max-errors", "2")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "1 of 6 checks failed (4 errors)", err.Error())

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "validate_schema_failure", []byte(out))
}

func TestValidateFailureUsesConfiguredMaxErrors(t *testing.T) {
	root := writeBrokenDataset(t)
	cfg := config.Default()
	cfg.Output.MaxErrors = 1

	out, _, err := execute(t, NewValidateCommand, &RootOptions{Format: "text", Config: cfg}, root)
	require.Error(t, err)
	assert.Contains(t, out, "[E212] users[usr_001].email: required field is missing\n  ... and 3 more\n")
	assert.NotContains(t, out, "usr_002")
}

func TestValidateFailureJSONKeepsEveryError(t *testing.T) {
	root := writeBrokenDataset(t)

	out, _, err := execute(t, NewValidateCommand, &RootOptions{Format: "json"}, root, "--max-errors", "1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result ValidationResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeValidationFailed, resp.Error.Code)
	assert.False(t, result.Valid)

	failure := result.Report.Failure(validate.CheckSchema)
	require.NotNil(t, failure)
	assert.Len(t, failure.Errors, 4)
	assert.Equal(t, validate.ErrRequiredField, failure.Errors[0].Code)
	assert.Equal(t, "usr_001", failure.Errors[0].Row)
}

func TestValidateNonExistentDirectory(t *testing.T) {
	out, _, err := execute(t, NewValidateCommand, &RootOptions{Format: "text"}, "/nonexistent/path")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
	assert.Contains(t, out, "dataset root not found")
}

func TestValidateMalformedDocumentJSON(t *testing.T) {
	root := writeMockDataset(t)
	testutil.WriteFile(t, root, "tables/users.json", `{"rows": [`)

	out, _, err := execute(t, NewValidateCommand, &RootOptions{Format: "json"}, root)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E004", resp.Error.Code)
}

func TestValidateDefaultsToConfiguredRoot(t *testing.T) {
	root := writeMockDataset(t)
	cfg := config.Default()
	cfg.Data.Root = root

	out, _, err := execute(t, NewValidateCommand, &RootOptions{Format: "text", Config: cfg})
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All 6 checks passed")
}

func TestValidateVersionFlag(t *testing.T) {
	root := t.TempDir()
	tables, reg := testutil.MockDataset()
	testutil.WriteDataset(t, filepath.Join(root, "versions", "v1"), tables, reg)

	broken, reg2 := testutil.MockDataset()
	delete(broken.Get("users").Rows[0], "email")
	testutil.WriteDataset(t, filepath.Join(root, "versions", "v2"), broken, reg2)

	_, _, err := execute(t, NewValidateCommand, &RootOptions{Format: "text"}, root)
	require.Error(t, err, "latest is v2")

	out, _, err := execute(t, NewValidateCommand, &RootOptions{Format: "text"}, root, "--version", "v1")
	require.NoError(t, err)
	assert.Equal(t, "✓ All 6 checks passed (3 tables, 0 overlays)\n", out)

	_, _, err = execute(t, NewValidateCommand, &RootOptions{Format: "text"}, root, "--version", "v9")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateVerboseOutput(t *testing.T) {
	root := writeMockDataset(t)

	out, errOut, err := execute(t, NewValidateCommand, &RootOptions{Format: "text", Verbose: true}, root)
	require.NoError(t, err)
	assert.Contains(t, errOut, "Loaded 6 file(s)")
	assert.NotContains(t, out, "Loaded")
}

func TestValidateTooManyArgs(t *testing.T) {
	_, _, err := execute(t, NewValidateCommand, &RootOptions{Format: "text"}, "a", "b")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateWatchMissingRoot(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "gone")

	out, _, err := execute(t, NewValidateCommand, &RootOptions{Format: "text"}, missing, "--watch")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "dataset root not found")
}
