package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewRequiresDirectory(t *testing.T) {
	_, err := New(Config{}, nil)
	if !errors.Is(err, ErrDirRequired) {
		t.Fatalf("expected ErrDirRequired, got %v", err)
	}
}

func TestServerServesGeneratedSite(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "index.html"), "<h1>Home</h1>")
	writeFile(t, filepath.Join(dir, "company", "index.html"), "<h1>Company</h1>")
	writeFile(t, filepath.Join(dir, "css", "site.css"), "body{margin:0}")

	srv, err := New(Config{Dir: dir}, nil)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	ts := httptest.NewServer(srv.echo)
	defer ts.Close()

	body, status, _ := get(t, ts.URL+"/")
	if status != http.StatusOK {
		t.Fatalf("expected 200 for root, got %d", status)
	}
	if !strings.Contains(body, "<h1>Home</h1>") {
		t.Fatalf("expected root index content, got %q", body)
	}

	body, status, _ = get(t, ts.URL+"/company/")
	if status != http.StatusOK {
		t.Fatalf("expected 200 for directory route, got %d", status)
	}
	if !strings.Contains(body, "<h1>Company</h1>") {
		t.Fatalf("expected company index content, got %q", body)
	}

	_, status, contentType := get(t, ts.URL+"/css/site.css")
	if status != http.StatusOK {
		t.Fatalf("expected 200 for asset, got %d", status)
	}
	if !strings.HasPrefix(contentType, "text/css") {
		t.Fatalf("expected text/css content type, got %q", contentType)
	}

	_, status, _ = get(t, ts.URL+"/missing/")
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 for missing page, got %d", status)
	}
}

func TestServerStartAndShutdown(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "index.html"), "<h1>Preview</h1>")

	srv, err := New(Config{Dir: dir, Addr: "127.0.0.1:0"}, nil)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- srv.Start()
	}()

	addr := awaitListener(t, srv)
	body, status, _ := get(t, "http://"+addr.String()+"/")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(body, "<h1>Preview</h1>") {
		t.Fatalf("expected preview content, got %q", body)
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected graceful stop, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop after shutdown")
	}
}

func awaitListener(t *testing.T, srv *Server) net.Addr {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if addr := srv.echo.ListenerAddr(); addr != nil && addr.String() != "" {
			return addr
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("server did not bind a listener")
	return nil
}

func get(t *testing.T, url string) (string, int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body), resp.StatusCode, resp.Header.Get("Content-Type")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
