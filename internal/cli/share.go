package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/mockset/internal/store"
)

// ShareOptions holds flags shared by the share subcommands.
type ShareOptions struct {
	*RootOptions
	DB      string
	Dataset string
	Data    string
	Version string
}

// NewShareCommand creates the share command group.
func NewShareCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShareOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "share",
		Short: "Manage which overlay stack each email or domain sees",
		Long: `Shares assign an overlay stack to a target for one dataset. A target is an
email address, a domain or a glob over email addresses.

Resolution prefers an exact email share, then a share for the email's
domain, then a matching glob; within a tier the newest share wins.

The dataset id is the registry version. When --dataset is not given it is
read from the dataset at --data (default: configured data root).`,
	}

	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "share store (default: configured store path)")
	cmd.PersistentFlags().StringVar(&opts.Dataset, "dataset", "", "dataset id (default: registry version of --data)")
	cmd.PersistentFlags().StringVar(&opts.Data, "data", "", "dataset root used to derive the dataset id and check overlay names")
	cmd.PersistentFlags().StringVar(&opts.Version, "version", "", "dataset version under --data")

	cmd.AddCommand(newShareAddCommand(opts))
	cmd.AddCommand(newShareListCommand(opts))
	cmd.AddCommand(newShareResolveCommand(opts))
	cmd.AddCommand(newShareRemoveCommand(opts))

	return cmd
}

func newShareAddCommand(opts *ShareOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <target> <overlay>...",
		Short: "Share an overlay stack with a target",
		Example: `  mockset share add ada@example.com kenya names
  mockset share add example.com kenya
  mockset share add "*@example.*" public_names --dataset v1`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShareAdd(cmdContext(cmd), opts, args[0], args[1:], cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

func newShareListCommand(opts *ShareOptions) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List shares",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShareList(cmdContext(cmd), opts, all, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "list shares of every dataset, including removed ones")
	return cmd
}

func newShareResolveCommand(opts *ShareOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "resolve <email|domain>",
		Short:         "Show the share that applies to a target",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShareResolve(cmdContext(cmd), opts, args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

func newShareRemoveCommand(opts *ShareOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "remove <id>",
		Short:         "Deactivate a share",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShareRemove(cmdContext(cmd), opts, args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// datasetID returns --dataset, or the registry version of the dataset at
// --data together with the overlay names it can resolve.
func (o *ShareOptions) datasetID(f *OutputFormatter) (string, map[string]bool, error) {
	if o.Dataset != "" {
		return o.Dataset, nil, nil
	}
	root := o.Data
	if root == "" {
		root = o.cfg().Data.Root
	}
	snap, err := loadSnapshot(o.RootOptions, root, o.Version)
	if err != nil {
		return "", nil, loadFailed(f, root, err)
	}
	known := make(map[string]bool)
	for _, name := range snap.Catalog.Names() {
		known[name] = true
	}
	return snap.Registry.Version, known, nil
}

func runShareAdd(ctx context.Context, opts *ShareOptions, target string, overlays []string, out, errOut io.Writer) error {
	f := newFormatter(opts.RootOptions, out, errOut)

	datasetID, known, err := opts.datasetID(f)
	if err != nil {
		return err
	}
	for _, name := range overlays {
		if known != nil && !known[name] {
			msg := fmt.Sprintf("unknown overlay %q in dataset %s", name, datasetID)
			if outErr := f.Error(CodeUnknownOverlay, msg, nil); outErr != nil {
				return outErr
			}
			return NewExitError(ExitCommandError, msg)
		}
	}

	st, err := openStore(opts.RootOptions, opts.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	share, err := st.CreateShare(ctx, target, datasetID, overlays)
	if err != nil {
		return shareFailed(f, "failed to create share", err)
	}
	if f.JSON() {
		return f.Success(share)
	}
	fmt.Fprintf(out, "✓ Shared [%s] with %s (%s, dataset %s)\n", strings.Join(share.Overlays, ", "), share.Target, share.Kind, share.Dataset)
	fmt.Fprintf(out, "  id: %s\n", share.ID)
	return nil
}

func runShareList(ctx context.Context, opts *ShareOptions, all bool, out, errOut io.Writer) error {
	f := newFormatter(opts.RootOptions, out, errOut)

	datasetID := ""
	if !all {
		id, _, err := opts.datasetID(f)
		if err != nil {
			return err
		}
		datasetID = id
	}

	st, err := openStore(opts.RootOptions, opts.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	shares, err := st.ListShares(ctx, datasetID)
	if err != nil {
		return shareFailed(f, "failed to list shares", err)
	}
	if !all {
		active := shares[:0]
		for _, s := range shares {
			if s.Active {
				active = append(active, s)
			}
		}
		shares = active
	}

	if f.JSON() {
		return f.Success(shares)
	}
	if len(shares) == 0 {
		fmt.Fprintln(out, "No shares found.")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTARGET\tKIND\tDATASET\tOVERLAYS\tACTIVE")
	for _, s := range shares {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\n", s.ID, s.Target, s.Kind, s.Dataset, strings.Join(s.Overlays, ","), s.Active)
	}
	return tw.Flush()
}

func runShareResolve(ctx context.Context, opts *ShareOptions, target string, out, errOut io.Writer) error {
	f := newFormatter(opts.RootOptions, out, errOut)

	datasetID, _, err := opts.datasetID(f)
	if err != nil {
		return err
	}
	st, err := openStore(opts.RootOptions, opts.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	share, err := st.ResolveShare(ctx, target, datasetID)
	if err != nil {
		return shareFailed(f, "failed to resolve share", err)
	}

	if f.JSON() {
		if share == nil {
			return f.Success(map[string]any{"target": target, "stack": []string{}})
		}
		return f.Success(map[string]any{"target": target, "stack": share.Overlays, "share": share})
	}
	if share == nil {
		fmt.Fprintf(out, "No share applies to %s; base tables are served unchanged.\n", target)
		return nil
	}
	fmt.Fprintf(out, "%s -> [%s] via %s share %s (%s)\n", target, strings.Join(share.Overlays, ", "), share.Kind, share.Target, share.ID)
	return nil
}

func runShareRemove(ctx context.Context, opts *ShareOptions, id string, out, errOut io.Writer) error {
	f := newFormatter(opts.RootOptions, out, errOut)

	st, err := openStore(opts.RootOptions, opts.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.DeactivateShare(ctx, id); err != nil {
		return shareFailed(f, "failed to remove share", err)
	}
	if f.JSON() {
		return f.Success(map[string]string{"id": id, "status": "removed"})
	}
	fmt.Fprintf(out, "✓ Removed share %s\n", id)
	return nil
}

func shareFailed(f *OutputFormatter, message string, err error) error {
	code := CodeCommand
	switch {
	case errors.Is(err, store.ErrInvalidTarget):
		code = CodeInvalidTarget
	case errors.Is(err, store.ErrShareNotFound):
		code = "E_NOT_FOUND"
	}
	if outErr := f.Error(code, fmt.Sprintf("%s: %v", message, err), nil); outErr != nil {
		return outErr
	}
	return WrapExitError(ExitCommandError, message, err)
}
