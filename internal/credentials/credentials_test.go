package credentials

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nested", "session.json"))

	if _, err := store.Load(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Load before Save: expected ErrNoSession, got %v", err)
	}

	in := &Session{
		Server:   "http://localhost:8080",
		Username: "alice",
		Cookies:  FromHTTP([]*http.Cookie{{Name: "session", Value: "abc", HttpOnly: true}}),
	}
	if err := store.Save(in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.Username != "alice" || !out.ForServer("http://localhost:8080") {
		t.Errorf("loaded %+v", out)
	}
	if out.SavedAt.IsZero() {
		t.Error("SavedAt should be set")
	}
	cookies := out.HTTPCookies()
	if len(cookies) != 1 || cookies[0].Name != "session" || cookies[0].Value != "abc" {
		t.Errorf("HTTPCookies = %v", cookies)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(store.Path())
		if err != nil {
			t.Fatal(err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("session file mode = %o, want 600", perm)
		}
	}
}

func TestStoreDelete(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "session.json"))
	if err := store.Delete(); err != nil {
		t.Fatalf("Delete of missing file: %v", err)
	}
	if err := store.Save(&Session{Server: "s"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Load(); !errors.Is(err, ErrNoSession) {
		t.Errorf("Load after Delete: %v", err)
	}
}

func TestStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewStore(path).Load(); err == nil || errors.Is(err, ErrNoSession) {
		t.Errorf("expected parse error, got %v", err)
	}
}
