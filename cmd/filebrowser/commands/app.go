package commands

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fruitsalade/filebrowser/internal/browser"
	"github.com/fruitsalade/filebrowser/internal/cli/output"
	"github.com/fruitsalade/filebrowser/internal/config"
	"github.com/fruitsalade/filebrowser/internal/credentials"
	"github.com/fruitsalade/filebrowser/internal/logging"
	"github.com/fruitsalade/filebrowser/pkg/client"
	"github.com/fruitsalade/filebrowser/pkg/retry"
	"github.com/fruitsalade/filebrowser/pkg/session"
)

// app wires one command invocation: API client, saved cookie, session and
// controller.
type app struct {
	client   *client.Client
	store    *credentials.Store
	ctrl     *browser.Controller
	format   output.Format
	username string
}

func newApp(cfg *config.ClientConfig) (*app, error) {
	format, err := output.ParseFormat(cfg.Output)
	if err != nil {
		return nil, err
	}

	rc := retry.DefaultConfig()
	rc.MaxAttempts = cfg.RetryAttempts
	c, err := client.New(client.Config{
		BaseURL:     cfg.ServerURL,
		Timeout:     cfg.Timeout,
		RetryConfig: rc,
	})
	if err != nil {
		return nil, err
	}

	a := &app{
		client: c,
		store:  credentials.NewStore(cfg.SessionFile),
		format: format,
	}

	saved, err := a.store.Load()
	switch {
	case err == nil && saved.ForServer(c.BaseURL()):
		c.SetCookies(saved.HTTPCookies())
		a.username = saved.Username
	case err == nil:
		logging.Debug("saved session belongs to another server", zap.String("server", saved.Server))
	case !errors.Is(err, credentials.ErrNoSession):
		logging.Warn("ignoring unreadable session file", zap.String("path", a.store.Path()), zap.Error(err))
	}

	sess := session.New(c, session.WithLogger(logging.Named("session")))
	a.ctrl = browser.New(sess)
	return a, nil
}

func (a *app) close() {
	a.ctrl.Session().Close()
}

// saveLogin persists the current session cookies.
func (a *app) saveLogin(username string) error {
	a.username = username
	err := a.store.Save(&credentials.Session{
		Server:   a.client.BaseURL(),
		Username: username,
		Cookies:  credentials.FromHTTP(a.client.Cookies()),
		SavedAt:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// forgetLogin removes the saved session.
func (a *app) forgetLogin() error {
	a.username = ""
	return a.store.Delete()
}

func (a *app) notLoggedIn(st session.State) error {
	if st.Error != "" {
		return fmt.Errorf("%s: %s", a.client.BaseURL(), st.Error)
	}
	return fmt.Errorf("not logged in to %s; run 'filebrowser login'", a.client.BaseURL())
}
