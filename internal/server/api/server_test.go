package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fruitsalade/filebrowser/internal/logging"
	"github.com/fruitsalade/filebrowser/internal/server/auth"
	"github.com/fruitsalade/filebrowser/internal/server/storage"
	"github.com/fruitsalade/filebrowser/pkg/client"
	"github.com/fruitsalade/filebrowser/pkg/models"
	"github.com/fruitsalade/filebrowser/pkg/protocol"
	"github.com/fruitsalade/filebrowser/pkg/retry"
	"github.com/fruitsalade/filebrowser/pkg/session"
)

const aliceHash = "yJg3w0gbQpVei0eHpVQJ9Q:Vm7sOUeOYCRxoye3oyFnOEXnOzmTiDAb2JzD4YYUEkA"

func newTestServer(t *testing.T, secure bool) (*Server, *auth.Manager) {
	t.Helper()
	root := t.TempDir()
	for _, d := range []string{"docs", "empty"} {
		if err := os.Mkdir(filepath.Join(root, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(root, "readme.md"), []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "docs", "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	backend, err := storage.NewLocal(root)
	if err != nil {
		t.Fatal(err)
	}
	sessions, err := auth.NewManager(auth.ManagerConfig{Secret: []byte("test-secret-test-secret-test-sec")})
	if err != nil {
		t.Fatal(err)
	}
	return NewServer(Config{
		Backend:      backend,
		Users:        auth.Users{"alice": aliceHash},
		Sessions:     sessions,
		CookieSecure: secure,
	}), sessions
}

func loginRequest(t *testing.T, user, pass string) *http.Request {
	t.Helper()
	body, _ := json.Marshal(protocol.LoginRequest{Username: user, Password: pass})
	req := httptest.NewRequest(http.MethodPost, protocol.LoginPath, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == protocol.SessionCookieName {
			return c
		}
	}
	return nil
}

func login(t *testing.T, h http.Handler) *http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, loginRequest(t, "alice", "password"))
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", w.Code, w.Body.String())
	}
	c := sessionCookie(w.Result())
	if c == nil {
		t.Fatal("no session cookie")
	}
	return c
}

func TestLogin(t *testing.T) {
	s, sessions := newTestServer(t, true)
	h := s.Handler()

	t.Run("success sets a hardened cookie", func(t *testing.T) {
		c := login(t, h)
		if c.Value == "" || !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteStrictMode {
			t.Errorf("cookie = %+v", c)
		}
		if _, err := sessions.Validate(c.Value); err != nil {
			t.Errorf("issued token invalid: %v", err)
		}
	})

	tests := []struct {
		name string
		req  func() *http.Request
		want int
	}{
		{"wrong password", func() *http.Request { return loginRequest(t, "alice", "nope") }, http.StatusUnauthorized},
		{"unknown user", func() *http.Request { return loginRequest(t, "bob", "password") }, http.StatusUnauthorized},
		{"missing content type", func() *http.Request {
			r := loginRequest(t, "alice", "password")
			r.Header.Del("Content-Type")
			return r
		}, http.StatusBadRequest},
		{"bad body", func() *http.Request {
			r := httptest.NewRequest(http.MethodPost, protocol.LoginPath, strings.NewReader("{"))
			r.Header.Set("Content-Type", "application/json; charset=utf-8")
			return r
		}, http.StatusBadRequest},
		{"empty fields", func() *http.Request { return loginRequest(t, "", "") }, http.StatusBadRequest},
		{"wrong method", func() *http.Request { return httptest.NewRequest(http.MethodGet, protocol.LoginPath, nil) }, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, tt.req())
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if sessionCookie(w.Result()) != nil {
				t.Error("failed login must not set a cookie")
			}
		})
	}
}

func TestLogout(t *testing.T) {
	s, sessions := newTestServer(t, true)
	h := s.Handler()
	c := login(t, h)

	req := httptest.NewRequest(http.MethodPost, protocol.LogoutPath, nil)
	req.AddCookie(c)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	cleared := sessionCookie(w.Result())
	if cleared == nil || cleared.MaxAge != -1 {
		t.Errorf("cookie not cleared: %+v", cleared)
	}
	if _, err := sessions.Validate(c.Value); err == nil {
		t.Error("session should be gone after logout")
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, protocol.LogoutPath, nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET logout status = %d", w.Code)
	}
}

func TestFiles(t *testing.T) {
	s, _ := newTestServer(t, true)
	h := s.Handler()
	c := login(t, h)

	get := func(target string, withCookie bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		if withCookie {
			req.AddCookie(c)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	t.Run("root listing", func(t *testing.T) {
		w := get("/api/files/", true)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}
		var fi protocol.FileInfo
		if err := json.NewDecoder(w.Body).Decode(&fi); err != nil {
			t.Fatal(err)
		}
		if fi.Type != models.KindDirectory || fi.Size != 0 || len(fi.Contents) != 3 {
			t.Errorf("root = %+v", fi)
		}
	})

	t.Run("file", func(t *testing.T) {
		w := get("/api/files/docs/a.txt", true)
		var raw map[string]any
		json.NewDecoder(w.Body).Decode(&raw)
		if w.Code != http.StatusOK || raw["type"] != "file" || raw["size"] != float64(5) {
			t.Errorf("file response %d %v", w.Code, raw)
		}
		if _, ok := raw["contents"]; ok {
			t.Error("files must not carry contents")
		}
	})

	t.Run("empty directory", func(t *testing.T) {
		w := get("/api/files/empty", true)
		var fi protocol.FileInfo
		json.NewDecoder(w.Body).Decode(&fi)
		if w.Code != http.StatusOK || fi.Type != models.KindDirectory || len(fi.Contents) != 0 {
			t.Errorf("empty dir %d %+v", w.Code, fi)
		}
	})

	errorCases := []struct {
		name   string
		target string
		cookie bool
		method string
		want   int
	}{
		{"no session", "/api/files/", false, http.MethodGet, http.StatusUnauthorized},
		{"missing", "/api/files/nope", true, http.MethodGet, http.StatusNotFound},
		{"invalid characters", "/api/files/a%20b", true, http.MethodGet, http.StatusBadRequest},
		{"too long", "/api/files/" + strings.Repeat("a", MaxPathLength), true, http.MethodGet, http.StatusBadRequest},
		{"wrong method", "/api/files/", true, http.MethodPost, http.StatusMethodNotAllowed},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.cookie {
				req.AddCookie(c)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			var er protocol.ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&er); err != nil || er.Code != tt.want || er.Error == "" {
				t.Errorf("error body = %+v, %v", er, err)
			}
		})
	}

	t.Run("not found message", func(t *testing.T) {
		w := get("/api/files/nope", true)
		if !strings.Contains(w.Body.String(), "File or directory does not exist") {
			t.Errorf("body = %s", w.Body.String())
		}
	})

	t.Run("forged cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/files/", nil)
		req.AddCookie(&http.Cookie{Name: protocol.SessionCookieName, Value: "forged"})
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d", w.Code)
		}
	})
}

func TestValidatePath(t *testing.T) {
	ok := []string{"/", "/docs/a.txt", "/a-b_c.d/e"}
	bad := []string{"/a b", "/a?b", "/ü", "/" + strings.Repeat("x", MaxPathLength)}
	for _, p := range ok {
		if err := validatePath(p); err != nil {
			t.Errorf("validatePath(%q) = %v", p, err)
		}
	}
	for _, p := range bad {
		if err := validatePath(p); err == nil {
			t.Errorf("validatePath(%q) should fail", p)
		}
	}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, true)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, protocol.HealthPath, nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("health %d %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("responses should carry a request ID")
	}
}

// TestEndToEnd drives the session state machine through the real client
// against the server.
func TestEndToEnd(t *testing.T) {
	s, _ := newTestServer(t, false)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	c, err := client.New(client.Config{BaseURL: ts.URL, RetryConfig: retry.NoRetry()})
	if err != nil {
		t.Fatal(err)
	}
	sess := session.New(c)
	defer sess.Close()
	ctx := context.Background()

	if st := sess.Bootstrap(ctx); st.Phase != session.PhaseUnauthenticated {
		t.Fatalf("bootstrap phase = %s", st.Phase)
	}
	if st := sess.Login(ctx, "alice", "wrong"); st.Error != session.MsgInvalidCredentials {
		t.Errorf("bad login error = %q", st.Error)
	}
	if st := sess.Login(ctx, "alice", "password"); !st.Authenticated() {
		t.Fatalf("login: %+v", st)
	}

	st := sess.NavigateTo(ctx, nil)
	if !st.Listing.Valid || st.Loading {
		t.Fatalf("root navigation: %+v", st)
	}
	names := make([]string, 0, st.Listing.Len())
	for _, e := range st.Listing.Entries {
		names = append(names, e.Name)
	}
	slices.Sort(names)
	if !slices.Equal(names, []string{"docs", "empty", "readme.md"}) {
		t.Errorf("root names = %v", names)
	}

	if st := sess.NavigateTo(ctx, []string{"docs", "a.txt"}); !st.PathInvalid {
		t.Errorf("file path should be invalid: %+v", st)
	}
	if st := sess.NavigateTo(ctx, []string{"missing"}); !st.PathInvalid {
		t.Errorf("missing path should be invalid: %+v", st)
	}
	if st := sess.NavigateTo(ctx, []string{"empty"}); !st.Listing.Valid || st.Listing.Len() != 0 {
		t.Errorf("empty dir: %+v", st)
	}

	if st := sess.Logoff(ctx); st.Phase != session.PhaseUnauthenticated {
		t.Errorf("logoff phase = %s", st.Phase)
	}
	if _, err := c.ListDirectory(ctx, nil); !client.IsUnauthorized(err) {
		t.Errorf("listing after logout: %v", err)
	}
}

func TestSessionFromContext(t *testing.T) {
	s, _ := newTestServer(t, true)
	c := login(t, s.Handler())

	var got auth.Session
	var ok bool
	h := s.requireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = SessionFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/files/", nil)
	req.AddCookie(c)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if !ok || got.Username != "alice" {
		t.Errorf("session = %+v, %v", got, ok)
	}

	if _, ok := SessionFromContext(context.Background()); ok {
		t.Error("empty context must not carry a session")
	}
}

func TestFilesLogsUser(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logging.Replace(zap.New(core))
	defer logging.Replace(zap.NewNop())

	s, _ := newTestServer(t, true)
	h := s.Handler()
	c := login(t, h)

	req := httptest.NewRequest(http.MethodGet, "/api/files/docs", nil)
	req.AddCookie(c)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	served := logs.FilterMessage("listing served").All()
	if len(served) != 1 {
		t.Fatalf("got %d listing entries", len(served))
	}
	if fields := served[0].ContextMap(); fields["user"] != "alice" || fields["path"] != "/docs" {
		t.Errorf("fields = %v", fields)
	}
}
