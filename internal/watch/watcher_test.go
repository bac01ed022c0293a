package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/goliatone/go-sitegen/internal/generator"
)

func TestNewRequiresBuilder(t *testing.T) {
	_, err := New(Config{ContentDir: t.TempDir()}, Dependencies{})
	if !errors.Is(err, ErrBuilderRequired) {
		t.Fatalf("expected ErrBuilderRequired, got %v", err)
	}
}

func TestNewRequiresDirectories(t *testing.T) {
	_, err := New(Config{}, Dependencies{Builder: newStubBuilder()})
	if !errors.Is(err, ErrNoDirectories) {
		t.Fatalf("expected ErrNoDirectories, got %v", err)
	}
}

func TestNewRejectsMissingDirectory(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")
	_, err := New(Config{ContentDir: missing}, Dependencies{Builder: newStubBuilder()})
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestClassifyEvents(t *testing.T) {
	content := t.TempDir()
	extra := t.TempDir()

	w, err := New(Config{ContentDir: content, ExtraDirs: []string{extra}}, Dependencies{Builder: newStubBuilder()})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Close()

	mdPath := filepath.Join(content, "post.md")
	writeTestFile(t, mdPath)
	cssPath := filepath.Join(extra, "site.css")
	writeTestFile(t, cssPath)
	dirPath := filepath.Join(content, "blog")
	if err := os.Mkdir(dirPath, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	hiddenPath := filepath.Join(content, ".cache.md")
	writeTestFile(t, hiddenPath)

	cases := []struct {
		name  string
		event fsnotify.Event
		want  eventKind
	}{
		{"markdown create", fsnotify.Event{Name: mdPath, Op: fsnotify.Create}, eventDocument},
		{"markdown write", fsnotify.Event{Name: mdPath, Op: fsnotify.Write}, eventDocument},
		{"asset write", fsnotify.Event{Name: cssPath, Op: fsnotify.Write}, eventFull},
		{"markdown remove", fsnotify.Event{Name: mdPath, Op: fsnotify.Remove}, eventFull},
		{"markdown rename", fsnotify.Event{Name: mdPath, Op: fsnotify.Rename}, eventFull},
		{"chmod only", fsnotify.Event{Name: mdPath, Op: fsnotify.Chmod}, eventIgnored},
		{"directory create", fsnotify.Event{Name: dirPath, Op: fsnotify.Create}, eventTree},
		{"hidden file write", fsnotify.Event{Name: hiddenPath, Op: fsnotify.Write}, eventIgnored},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := w.classify(tc.event); got != tc.want {
				t.Fatalf("expected kind %d, got %d", tc.want, got)
			}
		})
	}
}

func TestWatcherRebuildsChangedDocument(t *testing.T) {
	content := t.TempDir()
	builder := newStubBuilder()
	startWatcher(t, Config{ContentDir: content, Debounce: 40 * time.Millisecond, IncludeDrafts: true}, Dependencies{Builder: builder})

	writeTestFile(t, filepath.Join(content, "hello.md"))

	opts := awaitBuild(t, builder)
	if opts.Force {
		t.Fatal("expected incremental rebuild, got forced build")
	}
	if len(opts.Paths) != 1 || opts.Paths[0] != "hello.md" {
		t.Fatalf("expected path filter [hello.md], got %v", opts.Paths)
	}
	if !opts.IncludeDrafts {
		t.Fatal("expected IncludeDrafts to propagate")
	}
}

func TestWatcherCoalescesEventBursts(t *testing.T) {
	content := t.TempDir()
	builder := newStubBuilder()
	startWatcher(t, Config{ContentDir: content, Debounce: 60 * time.Millisecond}, Dependencies{Builder: builder})

	for _, name := range []string{"a.md", "b.md", "c.md"} {
		writeTestFile(t, filepath.Join(content, name))
	}

	opts := awaitBuild(t, builder)
	if len(opts.Paths) != 3 {
		t.Fatalf("expected three coalesced paths, got %v", opts.Paths)
	}
	want := []string{"a.md", "b.md", "c.md"}
	for i, path := range want {
		if opts.Paths[i] != path {
			t.Fatalf("expected sorted paths %v, got %v", want, opts.Paths)
		}
	}
}

func TestWatcherForcesFullRebuildOnLayoutChange(t *testing.T) {
	content := t.TempDir()
	layouts := t.TempDir()
	builder := newStubBuilder()
	reloader := &stubReloader{}
	startWatcher(t,
		Config{ContentDir: content, ExtraDirs: []string{layouts}, Debounce: 40 * time.Millisecond},
		Dependencies{Builder: builder, Reloader: reloader},
	)

	writeTestFile(t, filepath.Join(layouts, "post.html"))

	opts := awaitBuild(t, builder)
	if !opts.Force {
		t.Fatal("expected layout change to force a rebuild")
	}
	if len(opts.Paths) != 0 {
		t.Fatalf("expected no path filter for full rebuild, got %v", opts.Paths)
	}
	if reloader.calls.Load() == 0 {
		t.Fatal("expected layout reload before rebuild")
	}
}

func TestWatcherIgnoresHiddenFiles(t *testing.T) {
	content := t.TempDir()
	builder := newStubBuilder()
	startWatcher(t, Config{ContentDir: content, Debounce: 30 * time.Millisecond}, Dependencies{Builder: builder})

	writeTestFile(t, filepath.Join(content, ".draft.md"))

	time.Sleep(200 * time.Millisecond)
	select {
	case opts := <-builder.builds:
		t.Fatalf("expected no build for hidden file, got %+v", opts)
	default:
	}
}

func startWatcher(t *testing.T, cfg Config, deps Dependencies) *Watcher {
	t.Helper()

	w, err := New(cfg, deps)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("watcher did not stop after cancellation")
		}
		w.Close()
	})
	return w
}

func awaitBuild(t *testing.T, builder *stubBuilder) generator.BuildOptions {
	t.Helper()
	select {
	case opts := <-builder.builds:
		return opts
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for rebuild")
		return generator.BuildOptions{}
	}
}

func writeTestFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("# Content\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

type stubBuilder struct {
	builds chan generator.BuildOptions
}

func newStubBuilder() *stubBuilder {
	return &stubBuilder{builds: make(chan generator.BuildOptions, 8)}
}

func (b *stubBuilder) Build(_ context.Context, opts generator.BuildOptions) (*generator.BuildResult, error) {
	b.builds <- opts
	return &generator.BuildResult{PagesBuilt: 1}, nil
}

type stubReloader struct {
	calls atomic.Int32
}

func (r *stubReloader) Reload() error {
	r.calls.Add(1)
	return nil
}
