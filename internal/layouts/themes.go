package layouts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gotheme "github.com/goliatone/go-theme"
)

// ManifestLoader loads a theme manifest from a directory on disk.
type ManifestLoader interface {
	Load(themePath string) (*gotheme.Manifest, error)
}

type fsManifestLoader struct{}

func (fsManifestLoader) Load(themePath string) (*gotheme.Manifest, error) {
	cleaned := filepath.Clean(strings.TrimSpace(themePath))
	if cleaned == "" || cleaned == "." {
		return nil, fmt.Errorf("layouts: theme path required")
	}

	return gotheme.LoadDir(os.DirFS(cleaned), ".")
}

// ThemeOptions configures theme discovery and the defaults used during
// selection.
type ThemeOptions struct {
	// BasePath is the directory that holds one sub-directory per theme.
	BasePath string
	// DefaultTheme is used when a document or the site picks no theme.
	DefaultTheme string
	// DefaultVariant is used when no variant is requested.
	DefaultVariant string
}

// ThemeSelector loads theme manifests on demand, registers them once, and
// resolves theme plus variant selections for rendering.
type ThemeSelector struct {
	registry       *gotheme.MemoryRegistry
	loader         ManifestLoader
	basePath       string
	defaultTheme   string
	defaultVariant string

	mu        sync.Mutex
	manifests map[string]*gotheme.Manifest
}

// NewThemeSelector builds a selector. A nil loader falls back to reading
// manifests from the filesystem under BasePath.
func NewThemeSelector(opts ThemeOptions, loader ManifestLoader) *ThemeSelector {
	if loader == nil {
		loader = fsManifestLoader{}
	}
	return &ThemeSelector{
		registry:       gotheme.NewRegistry(),
		loader:         loader,
		basePath:       strings.TrimSpace(opts.BasePath),
		defaultTheme:   strings.TrimSpace(opts.DefaultTheme),
		defaultVariant: strings.TrimSpace(opts.DefaultVariant),
		manifests:      map[string]*gotheme.Manifest{},
	}
}

// Selection resolves the named theme and variant. An empty name falls back to
// the default theme; when neither is set theming is off and both return
// values are nil.
func (s *ThemeSelector) Selection(name, variant string) (*gotheme.Selection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = s.defaultTheme
	}
	if name == "" {
		return nil, nil
	}

	if _, err := s.ensureManifest(name); err != nil {
		return nil, err
	}

	selector := gotheme.Selector{
		Registry:       s.registry,
		DefaultTheme:   s.defaultTheme,
		DefaultVariant: s.defaultVariant,
	}

	resolvedVariant := strings.TrimSpace(variant)
	if resolvedVariant == "" {
		resolvedVariant = s.defaultVariant
	}

	selection, err := selector.Select(name, resolvedVariant)
	if err != nil {
		return nil, fmt.Errorf("layouts: select theme %s: %w", name, err)
	}
	return selection, nil
}

// ThemePath returns the directory the named theme is expected to live in.
func (s *ThemeSelector) ThemePath(name string) string {
	name = strings.TrimSpace(name)
	if s.basePath == "" {
		return name
	}
	return filepath.Join(s.basePath, name)
}

func (s *ThemeSelector) ensureManifest(name string) (*gotheme.Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if manifest, ok := s.manifests[name]; ok {
		return manifest, nil
	}

	manifest, err := s.loader.Load(s.ThemePath(name))
	if err != nil {
		return nil, fmt.Errorf("layouts: load theme manifest for %s: %w", name, err)
	}

	normalized := *manifest
	if strings.TrimSpace(normalized.Name) == "" || !strings.EqualFold(normalized.Name, name) {
		normalized.Name = name
	}

	if err := s.registry.Register(&normalized); err != nil {
		return nil, fmt.Errorf("layouts: register theme manifest: %w", err)
	}
	s.manifests[name] = &normalized
	return &normalized, nil
}
