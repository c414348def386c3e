package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server reachability and login state",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	if err := a.client.Ping(ctx); err != nil {
		fmt.Fprintf(out, "Server:  %s (unreachable: %v)\n", a.client.BaseURL(), err)
		return ErrSilent
	}
	fmt.Fprintf(out, "Server:  %s (ok)\n", a.client.BaseURL())

	st := a.ctrl.Session().Bootstrap(ctx)
	switch {
	case st.Authenticated() && a.username != "":
		fmt.Fprintf(out, "Session: logged in as %s\n", a.username)
	case st.Authenticated():
		fmt.Fprintln(out, "Session: logged in")
	default:
		fmt.Fprintln(out, "Session: not logged in")
	}
	fmt.Fprintf(out, "Saved:   %s\n", a.store.Path())
	return nil
}
