// Package watch rebuilds the site when source files change. Markdown edits
// under the content directory rebuild just the touched documents; layout,
// theme, and asset changes force a full rebuild because their effect spans
// pages the incremental manifest cannot see.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/goliatone/go-sitegen/internal/generator"
	"github.com/goliatone/go-sitegen/internal/logging"
	"github.com/goliatone/go-sitegen/pkg/interfaces"
)

const defaultDebounce = 250 * time.Millisecond

var (
	// ErrBuilderRequired indicates the watcher was constructed without a build target.
	ErrBuilderRequired = errors.New("watch: builder is required")
	// ErrNoDirectories indicates there is nothing to watch.
	ErrNoDirectories = errors.New("watch: at least one directory is required")
)

// Builder runs a site build. generator.Service satisfies it.
type Builder interface {
	Build(ctx context.Context, opts generator.BuildOptions) (*generator.BuildResult, error)
}

// Reloader refreshes cached templates before a full rebuild. The layout
// engine satisfies it.
type Reloader interface {
	Reload() error
}

// Config controls watch scope and rebuild batching.
type Config struct {
	// ContentDir holds the Markdown corpus; changes to .md files below it
	// rebuild only the touched documents.
	ContentDir string
	// ExtraDirs are watched for layout, theme, and asset changes. Any event
	// below them forces a full rebuild.
	ExtraDirs []string
	// Debounce batches bursts of events into one rebuild.
	Debounce time.Duration
	// IncludeDrafts propagates to every triggered build.
	IncludeDrafts bool
}

// Dependencies lists the collaborators required by the watcher.
type Dependencies struct {
	Builder  Builder
	Reloader Reloader
	Logger   interfaces.Logger
}

// Watcher debounces filesystem events into generator builds.
type Watcher struct {
	cfg      Config
	builder  Builder
	reloader Reloader
	logger   interfaces.Logger
	fsw      *fsnotify.Watcher
	content  string
	roots    []string
}

// New validates the configuration, opens the filesystem watcher, and
// registers every directory tree up front so Run can start consuming
// events immediately.
func New(cfg Config, deps Dependencies) (*Watcher, error) {
	if deps.Builder == nil {
		return nil, ErrBuilderRequired
	}

	roots := make([]string, 0, 1+len(cfg.ExtraDirs))
	content := strings.TrimSpace(cfg.ContentDir)
	if content != "" {
		abs, err := filepath.Abs(content)
		if err != nil {
			return nil, err
		}
		content = abs
		roots = append(roots, abs)
	}
	for _, dir := range cfg.ExtraDirs {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, err
		}
		roots = append(roots, abs)
	}
	if len(roots) == 0 {
		return nil, ErrNoDirectories
	}

	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		cfg:      cfg,
		builder:  deps.Builder,
		reloader: deps.Reloader,
		logger:   deps.Logger,
		fsw:      fsw,
		content:  content,
		roots:    roots,
	}
	if w.logger == nil {
		w.logger = logging.NoOp()
	}

	for _, root := range roots {
		if err := w.addTree(root); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Close releases the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run consumes events until the context is cancelled or the watcher is
// closed. Event bursts are coalesced per debounce window into a single
// build.
func (w *Watcher) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	timer := time.NewTimer(w.cfg.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	pending := map[string]struct{}{}
	full := false
	dirty := false

	w.logger.Info("watch.started", "dirs", len(w.roots), "debounce_ms", w.cfg.Debounce.Milliseconds())

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			switch w.classify(event) {
			case eventIgnored:
				continue
			case eventDocument:
				rel, err := filepath.Rel(w.content, event.Name)
				if err != nil {
					full = true
				} else {
					pending[filepath.ToSlash(rel)] = struct{}{}
				}
			case eventTree:
				// A fresh directory may already contain files created
				// before its watch registered, so rescan and rebuild.
				if err := w.addTree(event.Name); err != nil {
					w.logger.Warn("watch.add_tree_failed", "path", event.Name, "error", err)
				}
				full = true
			case eventFull:
				full = true
			}
			dirty = true
			resetTimer(timer, w.cfg.Debounce)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch.error", "error", err)
		case <-timer.C:
			if !dirty {
				continue
			}
			w.rebuild(ctx, pending, full)
			pending = map[string]struct{}{}
			full = false
			dirty = false
		}
	}
}

type eventKind int

const (
	eventIgnored eventKind = iota
	eventDocument
	eventFull
	eventTree
)

// classify maps a filesystem event onto a rebuild strategy. Hidden entries
// and pure metadata changes are ignored; removed or renamed paths force a
// full rebuild because the incremental filter cannot prune deleted pages.
func (w *Watcher) classify(event fsnotify.Event) eventKind {
	name := filepath.Base(event.Name)
	if name == "" || strings.HasPrefix(name, ".") {
		return eventIgnored
	}
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		return eventFull
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return eventIgnored
	}
	if event.Has(fsnotify.Create) && isDir(event.Name) {
		return eventTree
	}
	if w.isDocument(event.Name) {
		return eventDocument
	}
	return eventFull
}

func (w *Watcher) isDocument(path string) bool {
	if w.content == "" {
		return false
	}
	if !strings.EqualFold(filepath.Ext(path), ".md") {
		return false
	}
	rel, err := filepath.Rel(w.content, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (w *Watcher) rebuild(ctx context.Context, pending map[string]struct{}, full bool) {
	opts := generator.BuildOptions{IncludeDrafts: w.cfg.IncludeDrafts}
	if full {
		opts.Force = true
		if w.reloader != nil {
			if err := w.reloader.Reload(); err != nil {
				w.logger.Error("watch.reload_failed", "error", err)
			}
		}
	} else {
		opts.Paths = sortedKeys(pending)
	}

	w.logger.Info("watch.rebuild", "full", full, "paths", len(opts.Paths))
	result, err := w.builder.Build(ctx, opts)
	if err != nil {
		w.logger.Error("watch.build_failed", "error", err)
		return
	}
	if result != nil {
		w.logger.Info("watch.build_complete",
			"pages_built", result.PagesBuilt,
			"pages_skipped", result.PagesSkipped,
			"assets_built", result.AssetsBuilt,
		)
	}
}

// addTree registers path and every non-hidden directory below it.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return fs.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func resetTimer(timer *time.Timer, d time.Duration) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	timer.Reset(d)
}
