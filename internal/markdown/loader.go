package markdown

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goliatone/go-sitegen/internal/util"
	"github.com/goliatone/go-sitegen/pkg/interfaces"
)

// LoaderConfig configures how Markdown files are discovered within a base directory.
type LoaderConfig struct {
	// BasePath is the root directory where Markdown documents live.
	BasePath string
	// DefaultLocale is used when no locale can be inferred from the file path.
	DefaultLocale string
	// Locales enumerates the known locales (e.g. ["en", "es"]) for quick directory matching.
	Locales []string
	// LocalePatterns maps locale identifiers to glob expressions relative to BasePath.
	LocalePatterns map[string]string
	// Pattern limits discovered files to those matching the supplied glob (defaults to "*.md").
	Pattern string
	// Recursive controls whether sub-directories are traversed.
	Recursive bool
}

// Loader turns filesystem paths into Markdown documents with metadata.
type Loader struct {
	fs             fs.FS
	basePath       string
	defaultLocale  string
	locales        []string
	localePatterns map[string]string
	pattern        string
	recursive      bool
}

// NewLoader constructs a Loader using the provided filesystem and configuration.
func NewLoader(filesystem fs.FS, cfg LoaderConfig) *Loader {
	pattern := cfg.Pattern
	if strings.TrimSpace(pattern) == "" {
		pattern = "*.md"
	}

	return &Loader{
		fs:             filesystem,
		basePath:       filepath.Clean(cfg.BasePath),
		defaultLocale:  cfg.DefaultLocale,
		locales:        append([]string(nil), cfg.Locales...),
		localePatterns: util.CloneStringMap(cfg.LocalePatterns),
		pattern:        pattern,
		recursive:      cfg.Recursive,
	}
}

// LoadFile reads and parses a single Markdown document. Filesystem failures
// surface as UnreadableFileError; front matter failures as FrontMatterError.
func (l *Loader) LoadFile(ctx context.Context, path string, opts LoadParams) (*DocumentResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	rel, err := l.makeRelative(path)
	if err != nil {
		return nil, err
	}
	rel = filepath.ToSlash(rel)

	data, err := fs.ReadFile(l.fs, rel)
	if err != nil {
		return nil, &UnreadableFileError{Path: rel, Err: err}
	}

	info, err := fs.Stat(l.fs, rel)
	if err != nil {
		return nil, &UnreadableFileError{Path: rel, Err: err}
	}

	doc, err := BuildDocument(rel, l.detectLocale(rel, opts.LocalePatterns), data, info.ModTime())
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	doc.Checksum = sum[:]

	return &DocumentResult{
		Document: doc,
		Source:   data,
		Path:     rel,
	}, nil
}

// LoadDirectory discovers Markdown files under dir and returns one result per
// file. A file that cannot be read or parsed contributes a result whose Err
// field is set; the walk keeps going so a single bad document never hides the
// rest of the tree. Only directory-level failures abort the walk.
func (l *Loader) LoadDirectory(ctx context.Context, dir string, opts LoadParams) ([]*DocumentResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	root, err := l.makeRelative(dir)
	if err != nil {
		return nil, err
	}

	root = filepath.Clean(root)

	var results []*DocumentResult

	walkErr := fs.WalkDir(l.fs, root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if d.IsDir() {
			if !l.shouldRecurse(root, path, opts.Recursive) {
				return fs.SkipDir
			}
			return nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rel := filepath.ToSlash(path)
		if !l.matchesPattern(rel, opts.Pattern) {
			return nil
		}

		result, err := l.LoadFile(ctx, rel, opts)
		if err != nil {
			results = append(results, &DocumentResult{Path: rel, Err: err})
			return nil
		}
		results = append(results, result)
		return nil
	})

	if walkErr != nil {
		return nil, walkErr
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})

	return results, nil
}

func (l *Loader) shouldRecurse(root, current string, override *bool) bool {
	recursive := l.recursive
	if override != nil {
		recursive = *override
	}
	if recursive {
		return true
	}
	// If recursion is disabled, only walk the root directory.
	cleanRoot := filepath.Clean(root)
	cleanCurrent := filepath.Clean(current)
	return cleanRoot == cleanCurrent
}

func (l *Loader) matchesPattern(path string, override string) bool {
	pattern := override
	if strings.TrimSpace(pattern) == "" {
		pattern = l.pattern
	}
	// Normalise to slash as fs.WalkDir returns slash-separated paths for DirFS.
	pattern = filepath.ToSlash(pattern)
	if strings.Contains(pattern, "**") {
		// Basic support for ** by stripping repeated separators.
		pattern = strings.ReplaceAll(pattern, "**/", "")
	}
	var target string
	if strings.Contains(pattern, "/") {
		target = path
	} else {
		target = filepath.Base(path)
	}
	match, err := filepath.Match(pattern, target)
	if err != nil {
		return false
	}
	return match
}

func (l *Loader) detectLocale(path string, overrides map[string]string) string {
	path = filepath.ToSlash(path)

	if locale := matchLocalePattern(path, overrides); locale != "" {
		return locale
	}
	if locale := matchLocalePattern(path, l.localePatterns); locale != "" {
		return locale
	}

	segments := strings.Split(path, "/")
	if len(segments) > 0 {
		first := segments[0]
		for _, locale := range l.locales {
			if first == locale {
				return locale
			}
		}
	}

	if l.defaultLocale != "" {
		return l.defaultLocale
	}
	return ""
}

func matchLocalePattern(path string, patterns map[string]string) string {
	for locale, pattern := range patterns {
		if strings.TrimSpace(pattern) == "" {
			continue
		}
		pattern = filepath.ToSlash(pattern)
		if strings.Contains(pattern, "**") {
			pattern = strings.ReplaceAll(pattern, "**/", "")
		}
		match, err := filepath.Match(pattern, path)
		if err != nil {
			continue
		}
		if match {
			return locale
		}
	}
	return ""
}

func (l *Loader) makeRelative(path string) (string, error) {
	clean := filepath.Clean(path)
	if !filepath.IsAbs(clean) {
		return clean, nil
	}
	if l.basePath == "" {
		return "", fmt.Errorf("%w: absolute path %s provided without base path", ErrSourceDirInvalid, path)
	}
	rel, err := filepath.Rel(l.basePath, clean)
	if err != nil {
		return "", fmt.Errorf("%w: make relative %s: %v", ErrSourceDirInvalid, path, err)
	}
	return rel, nil
}

// DocumentResult carries the parsed document along with the raw source. When
// loading fails, Document and Source are nil and Err records the failure for
// the path.
type DocumentResult struct {
	Document *interfaces.Document
	Source   []byte
	Path     string
	Err      error
}

// LoadParams provide call-specific overrides for locale detection and pattern matching.
type LoadParams struct {
	Pattern        string
	LocalePatterns map[string]string
	Recursive      *bool
}
