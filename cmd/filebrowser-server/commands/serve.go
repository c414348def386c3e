package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fruitsalade/filebrowser/internal/config"
	"github.com/fruitsalade/filebrowser/internal/logging"
	"github.com/fruitsalade/filebrowser/internal/metrics"
	"github.com/fruitsalade/filebrowser/internal/server/api"
	"github.com/fruitsalade/filebrowser/internal/server/auth"
	"github.com/fruitsalade/filebrowser/internal/server/storage"
)

const (
	sessionCleanupInterval = time.Minute
	shutdownTimeout        = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the API server.

Examples:
  # Serve the current directory
  filebrowser-server serve --root .

  # Serve an S3 bucket through MinIO
  FILEBROWSER_S3_ENDPOINT=http://localhost:9000 FILEBROWSER_S3_BUCKET=files \
    filebrowser-server serve --storage s3`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("listen", "", "Listen address (default localhost:8080)")
	serveCmd.Flags().String("metrics-listen", "", "Metrics listen address, empty to disable")
	serveCmd.Flags().String("log-level", "", "Log level (debug|info|warn|error)")
	serveCmd.Flags().String("storage", "", "Storage backend (local|s3)")
	serveCmd.Flags().String("root", "", "Root directory for the local backend")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadServer(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	if err := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logging.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, err := storage.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer backend.Close()

	users, err := auth.ParseUsers(cfg.Users)
	if err != nil {
		return fmt.Errorf("parse users: %w", err)
	}
	if len(users) == 0 {
		logging.Warn("no users configured; set FILEBROWSER_USERS or users in the config file")
	}

	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		secret, err = auth.GenerateSecret()
		if err != nil {
			return err
		}
		logging.Warn("no session secret configured; sessions will not survive a restart")
	}
	sessions, err := auth.NewManager(auth.ManagerConfig{
		Secret:             secret,
		InactivityTimeout:  cfg.InactivityTimeout,
		MaxSessionDuration: cfg.MaxSessionDuration,
	})
	if err != nil {
		return err
	}
	if !cfg.CookieSecure {
		logging.Warn("session cookies are not marked Secure")
	}

	srv := api.NewServer(api.Config{
		Backend:      backend,
		Users:        users,
		Sessions:     sessions,
		CookieSecure: cfg.CookieSecure,
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsServer = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			logging.Info("metrics server starting", zap.String("addr", cfg.MetricsAddr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("metrics server error", zap.Error(err))
			}
		}()
	}

	// Periodic session cleanup
	go func() {
		ticker := time.NewTicker(sessionCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sessions.Cleanup()
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logging.Info("server starting",
			zap.String("addr", cfg.ListenAddr),
			zap.String("storage", backend.Type()),
			zap.Bool("tls", cfg.UseTLS()),
			zap.Int("users", len(users)))
		var err error
		if cfg.UseTLS() {
			err = httpServer.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logging.Info("shutting down...", zap.String("signal", sig.String()))
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server: %w", err)
		}
	}

	cancel()
	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	if metricsServer != nil {
		metricsServer.Shutdown(shutdownCtx)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logging.Info("server stopped")
	return nil
}
