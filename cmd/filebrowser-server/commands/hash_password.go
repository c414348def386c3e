package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fruitsalade/filebrowser/internal/cli/prompt"
	"github.com/fruitsalade/filebrowser/internal/server/auth"
)

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [username]",
	Short: "Print a password hash for the users list",
	Long: `Prompt for a password and print its argon2id hash.

With a username the output is a complete "name:salt:hash" entry for the
users setting.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := prompt.Password("Password")
		if err != nil {
			return err
		}
		confirm, err := prompt.Password("Confirm password")
		if err != nil {
			return err
		}
		if password != confirm {
			return fmt.Errorf("passwords do not match")
		}
		if password == "" {
			return fmt.Errorf("password must not be empty")
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		if len(args) == 1 {
			fmt.Fprintf(cmd.OutOrStdout(), "%s:%s\n", args[0], hash)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}
