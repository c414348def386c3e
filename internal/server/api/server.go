// Package api provides the HTTP server and handlers for the file listing API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/fruitsalade/filebrowser/internal/logging"
	"github.com/fruitsalade/filebrowser/internal/metrics"
	"github.com/fruitsalade/filebrowser/internal/server/auth"
	"github.com/fruitsalade/filebrowser/internal/server/storage"
	"github.com/fruitsalade/filebrowser/pkg/models"
	"github.com/fruitsalade/filebrowser/pkg/protocol"
)

// MaxPathLength is the longest accepted listing path.
const MaxPathLength = 1024

const maxLoginBody = 64 << 10

var pathWhitelist = regexp.MustCompile(`^[a-zA-Z0-9/_.\-]*$`)

type contextKey string

const sessionContextKey contextKey = "session"

// Config holds the server's collaborators.
type Config struct {
	Backend      storage.Backend
	Users        auth.Users
	Sessions     *auth.Manager
	CookieSecure bool
}

// Server serves the file listing API.
type Server struct {
	backend      storage.Backend
	users        auth.Users
	sessions     *auth.Manager
	cookieSecure bool
	log          *zap.Logger
}

// NewServer creates a new API server.
func NewServer(cfg Config) *Server {
	return &Server{
		backend:      cfg.Backend,
		users:        cfg.Users,
		sessions:     cfg.Sessions,
		cookieSecure: cfg.CookieSecure,
		log:          logging.Named("api"),
	}
}

// Handler returns the HTTP handler with logging and metrics middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Public endpoints
	mux.HandleFunc(protocol.HealthPath, s.handleHealth)
	mux.HandleFunc(protocol.LoginPath, s.handleLogin)
	mux.HandleFunc(protocol.LogoutPath, s.handleLogout)

	// Protected endpoints
	mux.Handle(protocol.FilesPrefix, s.requireSession(http.HandlerFunc(s.handleFiles)))

	return logging.Middleware(metrics.Middleware(mux))
}

// SessionFromContext returns the session attached by requireSession.
func SessionFromContext(ctx context.Context) (auth.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey).(auth.Session)
	return sess, ok
}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(protocol.SessionCookieName)
		if err != nil || c.Value == "" {
			s.sendError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		sess, err := s.sessions.Validate(c.Value)
		if err != nil {
			logging.WithContext(r.Context()).Debug("session rejected", zap.Error(err))
			s.clearCookie(w)
			s.sendError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		ctx := context.WithValue(r.Context(), sessionContextKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		s.sendError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.sendJSON(w, http.StatusOK, map[string]string{"status": "ok", "storage": s.backend.Type()})
}

// handleFiles handles GET /api/files/{path...}.
func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	urlPath := strings.TrimPrefix(r.URL.Path, "/api/files")
	if urlPath == "" {
		urlPath = "/"
	}
	if err := validatePath(urlPath); err != nil {
		metrics.RecordListing("bad_request")
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	log := logging.WithContext(r.Context())
	if sess, ok := SessionFromContext(r.Context()); ok {
		log = log.With(zap.String("user", sess.Username))
	}

	fi, err := s.backend.List(r.Context(), urlPath)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrInvalidPath):
		metrics.RecordListing("bad_request")
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, storage.ErrNotFound):
		metrics.RecordListing("not_found")
		s.sendError(w, http.StatusNotFound, "File or directory does not exist")
		return
	default:
		metrics.RecordListing("error")
		log.Error("listing failed", zap.String("path", urlPath), zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if fi.Type == models.KindDirectory {
		metrics.RecordListing("directory")
	} else {
		metrics.RecordListing("file")
	}
	log.Debug("listing served", zap.String("path", urlPath), zap.String("type", string(fi.Type)))
	s.sendJSON(w, http.StatusOK, fi)
}

// validatePath enforces the length limit and character whitelist.
func validatePath(p string) error {
	if len(p) > MaxPathLength {
		return fmt.Errorf("path exceeds maximum length of %d characters", MaxPathLength)
	}
	if !pathWhitelist.MatchString(p) {
		return fmt.Errorf("path contains invalid characters")
	}
	return nil
}

// handleLogin handles POST /api/login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mt != "application/json" {
		metrics.RecordAuthAttempt(false)
		s.sendError(w, http.StatusBadRequest, "Content-Type must be application/json")
		return
	}

	var req protocol.LoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBody)).Decode(&req); err != nil {
		metrics.RecordAuthAttempt(false)
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		metrics.RecordAuthAttempt(false)
		s.sendError(w, http.StatusBadRequest, "username and password required")
		return
	}

	log := logging.WithContext(r.Context())
	if err := s.users.Authenticate(req.Username, req.Password); err != nil {
		metrics.RecordAuthAttempt(false)
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			log.Error("password check failed", zap.String("username", req.Username), zap.Error(err))
		} else {
			log.Warn("login failed", zap.String("username", req.Username))
		}
		s.sendError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, _, err := s.sessions.Create(req.Username)
	if err != nil {
		metrics.RecordAuthAttempt(false)
		log.Error("failed to create session", zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	metrics.RecordAuthAttempt(true)
	log.Info("login successful", zap.String("username", req.Username))

	http.SetCookie(w, &http.Cookie{
		Name:     protocol.SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
	s.sendJSON(w, http.StatusOK, map[string]string{"username": req.Username})
}

// handleLogout handles POST /api/logout.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if c, err := r.Cookie(protocol.SessionCookieName); err == nil && c.Value != "" {
		if err := s.sessions.Delete(c.Value); err == nil {
			logging.WithContext(r.Context()).Info("logout")
		}
	}
	s.clearCookie(w)
	s.sendJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (s *Server) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     protocol.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *Server) sendJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Debug("write response", zap.Error(err))
	}
}

func (s *Server) sendError(w http.ResponseWriter, code int, message string) {
	s.sendJSON(w, code, protocol.ErrorResponse{Error: message, Code: code})
}
