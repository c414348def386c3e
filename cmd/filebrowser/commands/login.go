package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fruitsalade/filebrowser/internal/cli/prompt"
)

var (
	loginUsername string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and save the session",
	Long: `Log in to the server and save the session cookie for later commands.

Missing credentials are prompted for when running in a terminal.

Examples:
  filebrowser login
  filebrowser login -u alice --server https://files.example.com`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session and remove the saved cookie",
	RunE:  runLogout,
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Password (prompted when omitted)")
}

func readCredentials(username, password string) (string, string, error) {
	var err error
	if username == "" {
		if !prompt.IsTerminal() {
			return "", "", errors.New("--username is required when not running in a terminal")
		}
		if username, err = prompt.InputRequired("Username"); err != nil {
			return "", "", err
		}
	}
	if password == "" {
		if !prompt.IsTerminal() {
			return "", "", errors.New("--password is required when not running in a terminal")
		}
		if password, err = prompt.Password("Password"); err != nil {
			return "", "", err
		}
	}
	return username, password, nil
}

func runLogin(cmd *cobra.Command, _ []string) error {
	username, password, err := readCredentials(loginUsername, loginPassword)
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	st := a.ctrl.Session().Login(cmd.Context(), username, password)
	if st.Error != "" {
		return errors.New(st.Error)
	}
	if err := a.saveLogin(username); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in to %s as %s\n", a.client.BaseURL(), username)
	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	st := a.ctrl.Logout(cmd.Context())
	if err := a.forgetLogin(); err != nil {
		return err
	}
	if st.Error != "" {
		return fmt.Errorf("%s; the saved session was removed", st.Error)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
	return nil
}
