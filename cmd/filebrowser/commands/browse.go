package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fruitsalade/filebrowser/internal/browser"
	"github.com/fruitsalade/filebrowser/internal/cli/output"
	"github.com/fruitsalade/filebrowser/internal/cli/prompt"
	"github.com/fruitsalade/filebrowser/internal/logging"
	"github.com/fruitsalade/filebrowser/internal/metrics"
	"github.com/fruitsalade/filebrowser/pkg/listing"
	"github.com/fruitsalade/filebrowser/pkg/models"
	"github.com/fruitsalade/filebrowser/pkg/session"
)

var browseCmd = &cobra.Command{
	Use:   "browse [location]",
	Short: "Browse interactively",
	Long: `Browse directories interactively.

Pick a directory to enter it, ".." to go up, or an action to change the sort
column, filter the listing, reload, or log in and out. The location argument
accepts the same forms as "filebrowser ls".`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBrowse,
}

// Menu option values.
const (
	actUp     = "\x00up"
	actEnter  = "\x00enter:"
	actSort   = "\x00sort:"
	actFilter = "\x00filter"
	actReload = "\x00reload"
	actLogin  = "\x00login"
	actLogout = "\x00logout"
	actQuit   = "\x00quit"
)

func runBrowse(cmd *cobra.Command, args []string) error {
	if !prompt.IsTerminal() {
		return errors.New("browse needs an interactive terminal; use 'filebrowser ls' instead")
	}
	arg := ""
	if len(args) == 1 {
		arg = args[0]
	}
	target, err := resolveLocation(arg, viewOverrides{})
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	if cfg.MetricsAddr != "" {
		stop := serveMetrics(cfg.MetricsAddr)
		defer stop()
	}

	if err := a.ctrl.Start(ctx, target); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for {
		v := a.ctrl.View()
		render(out, a, v)

		choice, err := prompt.Select("Action", menu(v))
		if err != nil {
			if prompt.IsAborted(err) {
				return nil
			}
			return err
		}
		quit, err := a.apply(ctx, choice)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

func render(w io.Writer, a *app, v browser.View) {
	fmt.Fprintln(w)
	if v.Phase == session.PhaseAuthenticated && a.username != "" {
		fmt.Fprintf(w, "%s (%s)  sort: %s\n", a.client.BaseURL(), a.username, v.Sort)
	} else {
		fmt.Fprintf(w, "%s  sort: %s\n", a.client.BaseURL(), v.Sort)
	}
	if err := output.PrintView(w, v, output.FormatTable); err != nil {
		logging.Debug("render failed", zap.Error(err))
	}
}

// menu lists the directories of v followed by the actions available in its phase.
func menu(v browser.View) []prompt.Option {
	if v.Phase != session.PhaseAuthenticated {
		return []prompt.Option{
			{Label: "Log in", Value: actLogin},
			{Label: "Quit", Value: actQuit},
		}
	}

	var opts []prompt.Option
	if len(v.Breadcrumbs) > 1 || v.Notice == browser.NoticeInvalidPath || v.Notice == browser.NoticeNotFound {
		opts = append(opts, prompt.Option{Label: "..", Value: actUp})
	}
	for _, r := range v.Rows {
		if r.Kind == string(models.KindDirectory) {
			opts = append(opts, prompt.Option{Label: r.Name + "/", Value: actEnter + r.Name})
		}
	}
	for _, c := range v.Columns {
		opts = append(opts, prompt.Option{
			Label: fmt.Sprintf("Sort by %s %s", c.Title, c.Indicator),
			Value: actSort + string(c.Field),
		})
	}
	filterLabel := "Filter"
	if v.Filter != "" {
		filterLabel = fmt.Sprintf("Filter (%q)", v.Filter)
	}
	opts = append(opts,
		prompt.Option{Label: filterLabel, Value: actFilter},
		prompt.Option{Label: "Reload", Value: actReload},
		prompt.Option{Label: "Log out", Value: actLogout},
		prompt.Option{Label: "Quit", Value: actQuit},
	)
	return opts
}

// apply performs one menu choice and reports whether to quit.
func (a *app) apply(ctx context.Context, choice string) (bool, error) {
	switch {
	case choice == actQuit:
		return true, nil
	case choice == actUp:
		a.ctrl.Up(ctx)
	case choice == actReload:
		a.ctrl.Reload(ctx)
	case choice == actFilter:
		text, err := prompt.Input("Filter (empty to clear)", a.ctrl.ViewState().Filter)
		if err != nil {
			if prompt.IsAborted(err) {
				return false, nil
			}
			return false, err
		}
		a.ctrl.SetFilter(text)
	case choice == actLogin:
		username, password, err := readCredentials("", "")
		if err != nil {
			return false, err
		}
		st := a.ctrl.Login(ctx, username, password)
		if st.Error != "" {
			return false, errors.New(st.Error)
		}
		return false, a.saveLogin(username)
	case choice == actLogout:
		st := a.ctrl.Logout(ctx)
		if st.Error != "" {
			return false, errors.New(st.Error)
		}
		return false, a.forgetLogin()
	default:
		if field, ok := strings.CutPrefix(choice, actSort); ok {
			a.ctrl.ToggleSort(listing.Field(field))
		} else if name, ok := strings.CutPrefix(choice, actEnter); ok {
			a.ctrl.Enter(ctx, name)
		} else {
			return false, fmt.Errorf("unknown action %q", choice)
		}
	}
	return false, nil
}

// serveMetrics exposes the client's metrics until the returned func is called.
func serveMetrics(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Warn("metrics server error", zap.Error(err))
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}
