package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/mockset/internal/source"
	"github.com/roach88/mockset/internal/validate"
	"github.com/roach88/mockset/internal/watch"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Version   string
	Watch     bool
	MaxErrors int // 0 means the configured limit
}

// ValidationResult is the JSON payload of the validate command.
type ValidationResult struct {
	Valid    bool            `json:"valid"`
	Root     string          `json:"root"`
	Version  string          `json:"version,omitempty"`
	Tables   int             `json:"tables"`
	Overlays int             `json:"overlays"`
	Report   validate.Report `json:"report"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Check a dataset for consistency",
		Long: `Run every consistency check over a dataset version: registry coverage,
schema completeness, id uniqueness, foreign keys, relation fields and overlay
structure. Every check runs; failures are reported together.

Exit codes:
  0 - All checks passed
  1 - One or more checks failed
  2 - Command error (dataset unreadable, malformed documents)

Examples:
  mockset validate ./data
  mockset validate ./data --version v2
  mockset validate --watch
  mockset validate ./data --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			root := dataRoot(opts.RootOptions, args)
			if opts.Watch {
				return runValidateWatch(cmd.Context(), opts, root, cmd)
			}
			return runValidate(opts, root, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.Version, "version", "", "dataset version (default: configured version, then latest)")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "re-validate whenever the dataset changes")
	cmd.Flags().IntVar(&opts.MaxErrors, "max-errors", 0, "errors printed per failed check (default: configured max_errors)")

	return cmd
}

func runValidate(opts *ValidateOptions, root string, out, errOut io.Writer) error {
	f := newFormatter(opts.RootOptions, out, errOut)

	snap, err := loadSnapshot(opts.RootOptions, root, opts.Version)
	if err != nil {
		return loadFailed(f, root, err)
	}
	f.VerboseLog("Loaded %d file(s) from %s", snap.Files, snap.Dir)

	report := validate.Validate(snap.Tables, snap.Registry, snap.Catalog)
	result := ValidationResult{
		Valid:    report.OK(),
		Root:     root,
		Version:  snap.Version,
		Tables:   len(snap.Tables),
		Overlays: overlayCount(snap),
		Report:   report,
	}

	if f.JSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if !report.OK() {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    CodeValidationFailed,
				Message: failureSummary(report),
			}
		}
		if err := f.Respond(resp); err != nil {
			return err
		}
	} else {
		writeReport(out, result, opts.maxErrors())
	}

	if !report.OK() {
		return NewExitError(ExitFailure, failureSummary(report))
	}
	return nil
}

func (o *ValidateOptions) maxErrors() int {
	if o.MaxErrors > 0 {
		return o.MaxErrors
	}
	return o.cfg().Output.MaxErrors
}

func overlayCount(snap *source.Snapshot) int {
	if snap.Catalog == nil {
		return 0
	}
	return len(snap.Catalog.Flat) + len(snap.Catalog.Legacy)
}

// writeReport prints the human-readable report. Only failures are expanded,
// each with at most limit errors.
func writeReport(w io.Writer, r ValidationResult, limit int) {
	total := len(r.Report.Passed) + len(r.Report.Failed)
	if r.Valid {
		fmt.Fprintf(w, "✓ All %d checks passed (%d tables, %d overlays)\n", total, r.Tables, r.Overlays)
		return
	}

	failed := make(map[string]validate.CheckFailure, len(r.Report.Failed))
	for _, cf := range r.Report.Failed {
		failed[cf.Check] = cf
	}
	for _, name := range validate.CheckNames() {
		cf, ok := failed[name]
		if !ok {
			fmt.Fprintf(w, "✓ %s\n", name)
			continue
		}
		fmt.Fprintf(w, "✗ %s (%d %s)\n", name, len(cf.Errors), plural(len(cf.Errors), "error", "errors"))
		for i, e := range cf.Errors {
			if i == limit {
				fmt.Fprintf(w, "  ... and %d more\n", len(cf.Errors)-limit)
				break
			}
			fmt.Fprintf(w, "  %s\n", e.Error())
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "✗ %s\n", failureSummary(r.Report))
}

func failureSummary(r validate.Report) string {
	total := len(r.Passed) + len(r.Failed)
	n := r.ErrorCount()
	return fmt.Sprintf("%d of %d checks failed (%d %s)", len(r.Failed), total, n, plural(n, "error", "errors"))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// runValidateWatch validates once, then again after every settled change
// under root, until interrupted. Failures between runs are printed, not
// returned.
func runValidateWatch(ctx context.Context, opts *ValidateOptions, root string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	once := func() {
		if err := runValidate(opts, root, out, errOut); err != nil && GetExitCode(err) == ExitCommandError && !opts.JSON() {
			fmt.Fprintf(errOut, "Error: %v\n", err)
		}
	}

	w, err := watch.New(root, opts.cfg().Watch.Debounce, func(paths []string) {
		if !opts.JSON() {
			fmt.Fprintf(out, "\n%d %s changed: %s\n", len(paths), plural(len(paths), "file", "files"), strings.Join(paths, ", "))
		}
		once()
	})
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to watch %s", root), err)
	}

	once()
	if !opts.JSON() {
		fmt.Fprintf(errOut, "Watching %s (Ctrl-C to stop)\n", root)
	}
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		return WrapExitError(ExitCommandError, "watch failed", err)
	}
	return nil
}
