package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	gotheme "github.com/goliatone/go-theme"
)

// OriginStatic names the asset origin backed by the configured static
// directory. Theme assets use the theme name as their origin.
const OriginStatic = "static"

var (
	// ErrAssetOutsideRoot indicates an asset name resolved outside its origin root.
	ErrAssetOutsideRoot = errors.New("generator: asset path escapes origin root")
	errOriginNotMounted = errors.New("generator: asset origin not mounted")
)

// AssetResolver enumerates and opens assets for copying into built outputs.
// Origins partition the asset space: the static directory and each theme
// mount independently.
type AssetResolver interface {
	List(ctx context.Context, origin string) ([]string, error)
	Open(ctx context.Context, origin, name string) (io.ReadCloser, error)
	ResolvePath(origin, name string) (string, error)
}

// NoOpAssetResolver skips asset resolution.
type NoOpAssetResolver struct{}

func (NoOpAssetResolver) List(context.Context, string) ([]string, error) {
	return nil, nil
}

func (NoOpAssetResolver) Open(context.Context, string, string) (io.ReadCloser, error) {
	return nil, fmt.Errorf("generator: asset resolver not configured")
}

func (NoOpAssetResolver) ResolvePath(string, string) (string, error) {
	return "", fmt.Errorf("generator: asset resolver not configured")
}

// DirAssetResolver serves assets from directories mounted per origin.
type DirAssetResolver struct {
	mu    sync.RWMutex
	roots map[string]string
}

func NewDirAssetResolver() *DirAssetResolver {
	return &DirAssetResolver{roots: map[string]string{}}
}

// Mount registers the filesystem root backing an origin. Mounting an empty
// root removes the origin.
func (r *DirAssetResolver) Mount(origin, root string) {
	origin = strings.ToLower(strings.TrimSpace(origin))
	if origin == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	root = strings.TrimSpace(root)
	if root == "" {
		delete(r.roots, origin)
		return
	}
	r.roots[origin] = root
}

func (r *DirAssetResolver) root(origin string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	root, ok := r.roots[strings.ToLower(strings.TrimSpace(origin))]
	return root, ok
}

// List walks the origin root and returns the relative paths of every regular
// file. Hidden files and directories are skipped. A missing root lists
// nothing rather than failing, so optional static directories stay optional.
func (r *DirAssetResolver) List(ctx context.Context, origin string) ([]string, error) {
	root, ok := r.root(origin)
	if !ok {
		return nil, fmt.Errorf("generator: list assets %q: %w", origin, errOriginNotMounted)
	}
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("generator: list assets %q: %w", origin, err)
	}

	var names []string
	err := fs.WalkDir(os.DirFS(root), ".", func(entry string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") && entry != "." {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		names = append(names, filepath.ToSlash(entry))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("generator: list assets %q: %w", origin, err)
	}
	sort.Strings(names)
	return names, nil
}

func (r *DirAssetResolver) Open(ctx context.Context, origin, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	root, ok := r.root(origin)
	if !ok {
		return nil, fmt.Errorf("generator: open asset %q/%s: %w", origin, name, errOriginNotMounted)
	}
	clean, err := cleanAssetName(name)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(filepath.Join(root, filepath.FromSlash(clean)))
	if err != nil {
		return nil, fmt.Errorf("generator: open asset %q/%s: %w", origin, clean, err)
	}
	return file, nil
}

func (r *DirAssetResolver) ResolvePath(origin, name string) (string, error) {
	if _, ok := r.root(origin); !ok {
		return "", fmt.Errorf("generator: resolve asset %q/%s: %w", origin, name, errOriginNotMounted)
	}
	return cleanAssetName(name)
}

// cleanAssetName normalizes an asset name to a slash separated relative path
// and rejects traversal outside the origin root.
func cleanAssetName(name string) (string, error) {
	cleaned := path.Clean(strings.TrimPrefix(strings.TrimSpace(filepath.ToSlash(name)), "/"))
	if cleaned == "." || cleaned == "" {
		return "", fmt.Errorf("generator: asset name %q: %w", name, ErrAssetOutsideRoot)
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("generator: asset name %q: %w", name, ErrAssetOutsideRoot)
	}
	return cleaned, nil
}

// collectThemeAssets returns the asset paths declared by the theme manifest,
// with variant overrides merged on top of the base file map.
func collectThemeAssets(selection *gotheme.Selection) []string {
	if selection == nil || selection.Manifest == nil {
		return nil
	}

	assets := selection.Manifest.Assets.Files
	if variant := strings.TrimSpace(selection.Variant); variant != "" {
		if v, ok := selection.Manifest.Variants[variant]; ok && len(v.Assets.Files) > 0 {
			merged := make(map[string]string, len(selection.Manifest.Assets.Files)+len(v.Assets.Files))
			for key, file := range selection.Manifest.Assets.Files {
				merged[key] = file
			}
			for key, file := range v.Assets.Files {
				merged[key] = file
			}
			assets = merged
		}
	}

	seen := map[string]struct{}{}
	var out []string
	for _, asset := range assets {
		asset = strings.TrimPrefix(strings.TrimSpace(asset), "/")
		if asset == "" {
			continue
		}
		if _, ok := seen[asset]; ok {
			continue
		}
		seen[asset] = struct{}{}
		out = append(out, filepath.ToSlash(asset))
	}
	sort.Strings(out)
	return out
}

func detectAssetContentType(asset string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(asset), "."))
	switch ext {
	case "css":
		return "text/css"
	case "js":
		return "application/javascript"
	case "json":
		return "application/json"
	case "svg":
		return "image/svg+xml"
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	case "ico":
		return "image/x-icon"
	case "txt":
		return "text/plain; charset=utf-8"
	case "html":
		return "text/html; charset=utf-8"
	case "xml":
		return "application/xml"
	case "woff":
		return "font/woff"
	case "woff2":
		return "font/woff2"
	default:
		return "application/octet-stream"
	}
}
