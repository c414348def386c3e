package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRouteLabel(t *testing.T) {
	tests := map[string]string{
		"/api/files":           "/api/files",
		"/api/files/docs/a.md": "/api/files",
		"/api/login":           "/api/login",
		"/health":              "/health",
		"/favicon.ico":         "other",
	}
	for path, want := range tests {
		if got := routeLabel(path); got != want {
			t.Errorf("routeLabel(%q) = %q, want %q", path, got, want)
		}
	}
}

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func TestMiddlewareRecordsRequests(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/files/x/y", nil))

	out := scrape(t)
	want := `filebrowser_http_requests_total{method="GET",path="/api/files",status="404"}`
	if !strings.Contains(out, want) {
		t.Errorf("metrics output missing %s", want)
	}
}

func TestRecorders(t *testing.T) {
	RecordAuthAttempt(false)
	RecordListing("not_found")
	SetActiveSessions(3)
	RecordStorageOperation("local", "list", 0, true)

	out := scrape(t)
	for _, want := range []string{
		`filebrowser_auth_attempts_total{result="failure"}`,
		`filebrowser_listings_served_total{result="not_found"}`,
		"filebrowser_active_sessions 3",
		`filebrowser_storage_operations_total{backend="local",operation="list",status="success"}`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}
