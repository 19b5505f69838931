package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/mockset/internal/source"
	"github.com/roach88/mockset/internal/store"
)

// dataRoot returns the dataset root named on the command line, or the
// configured one.
func dataRoot(opts *RootOptions, args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return opts.cfg().Data.Root
}

// loadSnapshot reads one dataset version. An empty version falls back to
// the configured one.
func loadSnapshot(opts *RootOptions, root, version string) (*source.Snapshot, error) {
	if version == "" {
		version = opts.cfg().Data.Version
	}
	snap, err := source.Load(root, source.Options{Version: version})
	if err != nil {
		return nil, err
	}
	slog.Debug("snapshot loaded", "root", root, "version", snap.Version, "files", snap.Files)
	return snap, nil
}

// loadFailed reports a dataset that could not be read and returns the
// command error for it.
func loadFailed(f *OutputFormatter, root string, err error) error {
	code := source.ErrCodeGeneric
	var loadErr *source.LoadError
	if errors.As(err, &loadErr) {
		code = loadErr.Code
	}
	if outErr := f.Error(code, err.Error(), map[string]string{"root": root}); outErr != nil {
		return outErr
	}
	return WrapExitError(ExitCommandError, fmt.Sprintf("failed to load dataset %s", root), err)
}

// openStore opens the share store at path, or the configured one.
func openStore(opts *RootOptions, path string) (*store.Store, error) {
	if path == "" {
		path = opts.cfg().Store.Path
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to open share store %s", path), err)
	}
	return st, nil
}
