// Package commands implements the filebrowser CLI.
package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/fruitsalade/filebrowser/internal/config"
	"github.com/fruitsalade/filebrowser/internal/logging"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
)

// ErrSilent signals a failure whose message has already been printed.
var ErrSilent = errors.New("command failed")

var (
	configFile string
	cfg        *config.ClientConfig
)

var rootCmd = &cobra.Command{
	Use:   "filebrowser",
	Short: "Browse a remote file listing API",
	Long: `filebrowser is a command-line client for the file listing API.

Log in once with "filebrowser login"; the session cookie is kept in the
session file and reused by later commands until it expires.

Use "filebrowser [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadClient(configFile, cmd.Flags())
		if err != nil {
			return err
		}
		return logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "filebrowser %s (%s)\n", Version, Commit)
	},
}

// Execute runs the root command. Interrupts cancel in-flight requests.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Path to config file (default: $XDG_CONFIG_HOME/filebrowser/client.yaml)")
	pf.String("server", "", "Server URL (default http://localhost:8080)")
	pf.Duration("timeout", 0, "Request timeout (default 30s)")
	pf.String("log-level", "", "Log level (debug|info|warn|error)")
	pf.String("session-file", "", "Where the session cookie is stored")
	pf.StringP("output", "o", "", "Output format (table|json)")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}
