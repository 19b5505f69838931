package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/gobwas/glob"
	"github.com/spf13/cobra"

	"github.com/roach88/mockset/internal/overlay"
	"github.com/roach88/mockset/internal/source"
)

// OverlaysOptions holds flags for the overlays list command.
type OverlaysOptions struct {
	*RootOptions
	Version string
	Client  string
	Match   string
}

// OverlayInfo describes one resolvable overlay name.
type OverlayInfo struct {
	Name        string   `json:"name"`
	Kind        string   `json:"kind"`
	Visibility  string   `json:"visibility,omitempty"`
	Description string   `json:"description,omitempty"`
	Clients     []string `json:"clients,omitempty"`
	Fields      []string `json:"fields,omitempty"`
	Values      int      `json:"values,omitempty"`
	Tables      []string `json:"tables,omitempty"`
	Targets     []string `json:"targets,omitempty"`
}

// NewOverlaysCommand creates the overlays command group.
func NewOverlaysCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overlays",
		Short: "Inspect the overlays of a dataset",
	}
	cmd.AddCommand(newOverlaysListCommand(rootOpts))
	return cmd
}

func newOverlaysListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OverlaysOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list [path]",
		Short: "List the overlays a stack may name",
		Long: `List flat overlays, legacy overlays and compat aliases of a dataset
version, sorted by name.

With --client only overlays that client may use are listed: public ones and
private ones naming the client. --match filters names with a glob.

Examples:
  mockset overlays list ./data
  mockset overlays list ./data --client acme
  mockset overlays list ./data --match "ke*"`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOverlaysList(opts, dataRoot(opts.RootOptions, args), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.Version, "version", "", "dataset version (default: configured version, then latest)")
	cmd.Flags().StringVar(&opts.Client, "client", "", "only overlays visible to this client")
	cmd.Flags().StringVar(&opts.Match, "match", "", "only names matching this glob")

	return cmd
}

func runOverlaysList(opts *OverlaysOptions, root string, out, errOut io.Writer) error {
	f := newFormatter(opts.RootOptions, out, errOut)

	var match glob.Glob
	if opts.Match != "" {
		g, err := glob.Compile(opts.Match)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("invalid --match pattern %q", opts.Match), err)
		}
		match = g
	}

	snap, err := loadSnapshot(opts.RootOptions, root, opts.Version)
	if err != nil {
		return loadFailed(f, root, err)
	}

	infos := listOverlays(snap, opts.Client, match)
	if f.JSON() {
		return f.Success(infos)
	}
	if len(infos) == 0 {
		fmt.Fprintln(out, "No overlays found.")
		return nil
	}
	writeOverlayTable(out, infos)
	return nil
}

// listOverlays collects one entry per resolvable name. A non-empty client
// hides private overlays that do not name it.
func listOverlays(snap *source.Snapshot, client string, match glob.Glob) []OverlayInfo {
	cat := snap.Catalog
	infos := []OverlayInfo{}
	keep := func(name string) bool {
		return match == nil || match.Match(name)
	}

	flat := cat.FlatList()
	if client != "" {
		flat = cat.VisibleTo(client)
	}
	for _, fl := range flat {
		if !keep(fl.Name()) {
			continue
		}
		infos = append(infos, OverlayInfo{
			Name:        fl.Name(),
			Kind:        string(overlay.KindFlat),
			Visibility:  string(fl.Visibility),
			Description: fl.Description,
			Clients:     fl.Clients,
			Fields:      fl.Fields,
			Values:      len(fl.Values),
		})
	}

	for name, group := range cat.Legacy {
		if !keep(name) {
			continue
		}
		info := OverlayInfo{Name: name, Kind: string(overlay.KindLegacy)}
		visible := client == ""
		for _, l := range group {
			info.Tables = append(info.Tables, l.Table)
			if info.Description == "" {
				info.Description = l.Description
			}
			if l.Visibility == overlay.Private {
				info.Visibility = string(overlay.Private)
			} else if info.Visibility == "" {
				info.Visibility = string(l.Visibility)
			}
			if l.Visibility != overlay.Private || slices.Contains(l.Clients, client) {
				visible = true
			}
		}
		if visible {
			infos = append(infos, info)
		}
	}

	for name, targets := range cat.Compat {
		if !keep(name) {
			continue
		}
		if _, shadowed := cat.Flat[name]; shadowed {
			continue
		}
		infos = append(infos, OverlayInfo{Name: name, Kind: "compat", Targets: targets})
	}

	slices.SortFunc(infos, func(a, b OverlayInfo) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.Kind, b.Kind)
	})
	return infos
}

func writeOverlayTable(w io.Writer, infos []OverlayInfo) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tVISIBILITY\tDETAIL")
	for _, info := range infos {
		var detail string
		switch info.Kind {
		case string(overlay.KindFlat):
			detail = fmt.Sprintf("%d values for %s", info.Values, strings.Join(info.Fields, ","))
		case string(overlay.KindLegacy):
			detail = "tables " + strings.Join(info.Tables, ",")
		default:
			detail = "-> " + strings.Join(info.Targets, ",")
		}
		vis := info.Visibility
		if vis == "" {
			vis = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", info.Name, info.Kind, vis, detail)
	}
	tw.Flush()
}
