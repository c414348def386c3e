package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fruitsalade/filebrowser/internal/browser"
	"github.com/fruitsalade/filebrowser/internal/cli/output"
	"github.com/fruitsalade/filebrowser/pkg/listing"
	"github.com/fruitsalade/filebrowser/pkg/route"
	"github.com/fruitsalade/filebrowser/pkg/session"
)

var lsCmd = &cobra.Command{
	Use:   "ls [location]",
	Short: "List a directory",
	Long: `List a directory.

The location is either a path ("docs/reports") or a browser location with
its sort and filter state ("/files/docs?sort=size&dir=descending&filter=q1").
Flags override the state carried in the location.

Examples:
  filebrowser ls
  filebrowser ls docs --sort size --dir descending
  filebrowser ls '/files/docs?sort=kind&dir=ascending' --filter report
  filebrowser ls docs --sort none -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLs,
}

func init() {
	lsCmd.Flags().String("sort", "", "Sort column (name|kind|size|none)")
	lsCmd.Flags().String("dir", "", "Sort direction (ascending|descending)")
	lsCmd.Flags().String("filter", "", "Only show names containing this text")
}

// viewOverrides are the explicitly set --sort/--dir/--filter values.
type viewOverrides struct {
	Sort   *string
	Dir    *string
	Filter *string
}

func overridesFromFlags(cmd *cobra.Command) viewOverrides {
	var o viewOverrides
	for name, dst := range map[string]**string{"sort": &o.Sort, "dir": &o.Dir, "filter": &o.Filter} {
		if cmd.Flags().Changed(name) {
			v, _ := cmd.Flags().GetString(name)
			*dst = &v
		}
	}
	return o
}

// resolveLocation turns a command-line location into a browser location.
func resolveLocation(arg string, o viewOverrides) (string, error) {
	raw := arg
	if !isBrowserLocation(arg) {
		raw = route.FilesPath(route.SplitSegments(arg))
	}

	loc, err := route.ParseLocation(raw)
	if err != nil {
		return "", fmt.Errorf("invalid location %q: %w", arg, err)
	}
	if loc.Kind == route.KindRedirect {
		if loc, err = route.ParseLocation(loc.RedirectTo); err != nil {
			return "", err
		}
	}
	if loc.Kind != route.KindFiles {
		return raw, nil
	}

	vs := loc.State
	if o.Sort != nil {
		if *o.Sort == "none" || *o.Sort == "" {
			vs.Sort = listing.Unsorted()
		} else {
			field, err := listing.ParseField(*o.Sort)
			if err != nil {
				return "", err
			}
			vs.Sort = listing.SortSpec{Field: field, Direction: listing.DirectionAscending}
		}
	}
	if o.Dir != nil {
		dir, err := listing.ParseDirection(*o.Dir)
		if err != nil {
			return "", err
		}
		if vs.Sort.IsUnsorted() {
			if o.Sort != nil {
				return "", fmt.Errorf("--dir cannot be combined with --sort none")
			}
			vs.Sort.Field = listing.FieldName
		}
		vs.Sort.Direction = dir
	}
	if o.Filter != nil {
		vs.Filter = *o.Filter
	}
	return route.FilesURL(loc.Segments, vs), nil
}

func isBrowserLocation(arg string) bool {
	return arg == "/" || strings.Contains(arg, "?") ||
		arg == route.FilesRoot || strings.HasPrefix(arg, route.FilesRoot+"/")
}

func runLs(cmd *cobra.Command, args []string) error {
	arg := ""
	if len(args) == 1 {
		arg = args[0]
	}
	target, err := resolveLocation(arg, overridesFromFlags(cmd))
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.ctrl.Start(cmd.Context(), target); err != nil {
		return err
	}
	v := a.ctrl.View()
	if v.Phase != session.PhaseAuthenticated {
		return a.notLoggedIn(a.ctrl.Session().Snapshot())
	}

	if err := output.PrintView(cmd.OutOrStdout(), v, a.format); err != nil {
		return err
	}
	if failed(v) {
		if a.format == output.FormatJSON {
			return fmt.Errorf("%s", failureText(v))
		}
		return ErrSilent
	}
	return nil
}

// failed reports whether v shows no listing because of an error.
func failed(v browser.View) bool {
	return v.Error != "" || v.Notice == browser.NoticeInvalidPath || v.Notice == browser.NoticeNotFound
}

func failureText(v browser.View) string {
	if v.Error != "" {
		return v.Error
	}
	return v.Notice
}
