package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/mockset/internal/canon"
	"github.com/roach88/mockset/internal/dataset"
	"github.com/roach88/mockset/internal/overlay"
	"github.com/roach88/mockset/internal/source"
	"github.com/roach88/mockset/internal/store"
)

// MaterializeOptions holds flags for the materialize command.
type MaterializeOptions struct {
	*RootOptions
	Version string
	Stack   []string
	For     string
	DB      string
	Client  string
	Out     string
}

// MaterializeResult is the JSON payload of the materialize command.
type MaterializeResult struct {
	Stack  []string       `json:"stack"`
	Target string         `json:"target,omitempty"`
	Digest string         `json:"digest"`
	Out    string         `json:"out,omitempty"`
	Files  []string       `json:"files,omitempty"`
	Tables map[string]any `json:"tables,omitempty"`
}

// NewMaterializeCommand creates the materialize command.
func NewMaterializeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MaterializeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "materialize [path]",
		Short: "Apply an overlay stack and write the resulting tables",
		Long: `Apply an ordered overlay stack to a dataset version and print the
materialized tables as compact JSON with sorted keys. Base values keep
their original spelling.

The stack comes from --stack, or from the share recorded for --for in the
share store, or from the configured default stack. Either every overlay in the
stack can cover the tables it touches or nothing is written.

Exit codes:
  0 - Tables materialized
  1 - One or more overlays lack values for a table (all shortfalls listed)
  2 - Command error (unknown overlay, unreadable dataset, bad target)

Examples:
  mockset materialize ./data --stack kenya,names
  mockset materialize ./data --for ada@example.com --db shares.db
  mockset materialize ./data --stack kenya --out ./build`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runMaterialize(ctx, opts, dataRoot(opts.RootOptions, args), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.Version, "version", "", "dataset version (default: configured version, then latest)")
	cmd.Flags().StringSliceVar(&opts.Stack, "stack", nil, "overlay stack, applied left to right")
	cmd.Flags().StringVar(&opts.For, "for", "", "materialize the stack shared with this email or domain")
	cmd.Flags().StringVar(&opts.DB, "db", "", "share store (default: configured store path)")
	cmd.Flags().StringVar(&opts.Client, "client", "", "refuse private overlays not shared with this client")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write one <table>.json per table into this directory")
	cmd.MarkFlagsMutuallyExclusive("stack", "for")

	return cmd
}

func runMaterialize(ctx context.Context, opts *MaterializeOptions, root string, out, errOut io.Writer) error {
	f := newFormatter(opts.RootOptions, out, errOut)

	snap, err := loadSnapshot(opts.RootOptions, root, opts.Version)
	if err != nil {
		return loadFailed(f, root, err)
	}

	tables, stack, err := opts.apply(ctx, snap)
	if err != nil {
		return materializeFailed(f, err)
	}

	doc := tables.Document()
	digest, err := canon.SnapshotDigest(doc)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to digest tables", err)
	}
	f.VerboseLog("Stack: %v", stack)
	f.VerboseLog("Snapshot digest: %s", digest)

	result := MaterializeResult{Stack: stack, Target: opts.For, Digest: digest}
	if opts.Out != "" {
		files, err := writeTables(opts.Out, tables)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to write tables to %s", opts.Out), err)
		}
		result.Out = opts.Out
		result.Files = files
		if f.JSON() {
			return f.Success(result)
		}
		fmt.Fprintf(out, "✓ Wrote %d %s to %s\n", len(files), plural(len(files), "table", "tables"), opts.Out)
		return nil
	}

	if f.JSON() {
		result.Tables = doc
		return f.Success(result)
	}
	data, err := canon.MarshalData(doc)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to encode tables", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}

// apply materializes the stack selected by the flags.
func (o *MaterializeOptions) apply(ctx context.Context, snap *source.Snapshot) (dataset.Tables, []string, error) {
	if o.For != "" {
		st, err := openStore(o.RootOptions, o.DB)
		if err != nil {
			return nil, nil, err
		}
		defer st.Close()
		return overlay.ApplyForTarget(ctx, st, o.For, snap.Registry.Version, snap.Tables, snap.Catalog)
	}

	stack := o.Stack
	if len(stack) == 0 {
		stack = o.cfg().Overlays.Stack
	}
	if stack == nil {
		stack = []string{}
	}
	client := o.Client
	if client == "" {
		client = o.cfg().Overlays.Client
	}
	if client != "" {
		if err := checkVisible(snap.Catalog, stack, client); err != nil {
			return nil, stack, err
		}
	}
	tables, err := overlay.ApplyOverlayStack(snap.Tables, snap.Catalog, stack)
	return tables, stack, err
}

// checkVisible rejects a stack holding a private overlay the client was not
// granted.
func checkVisible(cat *overlay.Catalog, stack []string, client string) error {
	resolved, err := cat.Resolve(stack)
	if err != nil {
		return err
	}
	for _, o := range resolved {
		switch ov := o.(type) {
		case *overlay.Flat:
			if !ov.VisibleTo(client) {
				return NewExitError(ExitCommandError, fmt.Sprintf("overlay %q is private and not shared with client %q", ov.Name(), client))
			}
		case *overlay.Legacy:
			if ov.Visibility == overlay.Private && !slices.Contains(ov.Clients, client) {
				return NewExitError(ExitCommandError, fmt.Sprintf("overlay %q is private and not shared with client %q", ov.Name(), client))
			}
		}
	}
	return nil
}

// materializeFailed reports every insufficiency (exit 1) or the command
// error that stopped materialization (exit 2).
func materializeFailed(f *OutputFormatter, err error) error {
	if errs, ok := overlay.AsMaterializationErrors(err); ok {
		msg := fmt.Sprintf("materialization failed with %d %s", len(errs), plural(len(errs), "error", "errors"))
		if f.JSON() {
			if outErr := f.Error(CodeInsufficient, msg, []overlay.MaterializationError(errs)); outErr != nil {
				return outErr
			}
		} else {
			for _, e := range errs {
				fmt.Fprintf(f.Writer, "✗ %s\n", e.Error())
			}
			fmt.Fprintln(f.Writer)
			fmt.Fprintf(f.Writer, "✗ %s\n", msg)
		}
		return WrapExitError(ExitFailure, msg, err)
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if outErr := f.Error(CodeCommand, exitErr.Error(), nil); outErr != nil {
			return outErr
		}
		return exitErr
	}

	code := CodeCommand
	var unknown *overlay.UnknownOverlayError
	if errors.As(err, &unknown) {
		code = CodeUnknownOverlay
	}
	if errors.Is(err, store.ErrInvalidTarget) {
		code = CodeInvalidTarget
	}
	if outErr := f.Error(code, err.Error(), nil); outErr != nil {
		return outErr
	}
	return WrapExitError(ExitCommandError, "materialization failed", err)
}

// writeTables writes each table as {"rows": [...]} with sorted keys, one
// file per table, and returns the file names written.
func writeTables(dir string, tables dataset.Tables) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	doc := tables.Document()
	files := make([]string, 0, len(tables))
	for _, name := range tables.Names() {
		data, err := canon.MarshalData(map[string]any{"rows": doc[name]})
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", name, err)
		}
		file := name + ".json"
		if err := os.WriteFile(filepath.Join(dir, file), data, 0o644); err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, nil
}
