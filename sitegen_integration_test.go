package sitegen_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sitegen "github.com/goliatone/go-sitegen"
	"github.com/goliatone/go-sitegen/internal/di"
	ditesting "github.com/goliatone/go-sitegen/internal/di/testing"
)

const moduleLayoutHTML = `<!DOCTYPE html>
<html>
<head><title>{{if .Page.Title}}{{.Page.Title}} | {{end}}{{.Site.Title}}</title></head>
<body>{{.Page.Content}}</body>
</html>`

func moduleFixtureConfig(t *testing.T) sitegen.Config {
	t.Helper()

	root := t.TempDir()
	contentDir := filepath.Join(root, "content")
	layoutDir := filepath.Join(root, "layouts")

	writeModuleFixture(t, filepath.Join(contentDir, "hello.md"), "---\ntitle: \"Hello\"\ndate: 2020-01-01\n---\n# Hi\n")
	writeModuleFixture(t, filepath.Join(contentDir, "about.md"), "---\ntitle: \"About\"\ndate: 2020-01-02\n---\n# About Us\n")
	writeModuleFixture(t, filepath.Join(layoutDir, "default.html"), moduleLayoutHTML)

	cfg := sitegen.DefaultConfig()
	cfg.Site.Title = "Module Site"
	cfg.Site.BaseURL = "https://example.com"
	cfg.Content.Dir = contentDir
	cfg.Layouts.Dir = layoutDir
	cfg.Generator.OutputDir = "dist"
	cfg.Generator.CopyAssets = false
	return cfg
}

func writeModuleFixture(t *testing.T, path, body string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func writtenPaths(mem *ditesting.MemoryStorage) []string {
	files := mem.WrittenFiles()
	paths := make([]string, 0, len(files))
	for _, file := range files {
		paths = append(paths, file.Path)
	}
	return paths
}

func TestNewModuleBuildsSite(t *testing.T) {
	cfg := moduleFixtureConfig(t)
	mem := ditesting.NewMemoryStorage()

	module, err := sitegen.New(cfg, di.WithGeneratorStorage(mem))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := module.Generator().Build(context.Background(), sitegen.BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if result.PagesBuilt != 2 {
		t.Fatalf("expected 2 pages built, got %d", result.PagesBuilt)
	}

	page, ok := mem.Written("dist/hello/index.html")
	if !ok {
		t.Fatalf("expected hello page in storage, wrote %v", writtenPaths(mem))
	}
	if !strings.Contains(string(page.Body), "<h1>Hi</h1>") {
		t.Fatalf("page body missing heading: %s", page.Body)
	}
	if !strings.Contains(string(page.Body), "Module Site") {
		t.Fatalf("page body missing site title: %s", page.Body)
	}

	if _, ok := mem.Written("dist/about/index.html"); !ok {
		t.Fatalf("expected about page in storage, wrote %v", writtenPaths(mem))
	}

	sitemap, ok := mem.Written("dist/sitemap.xml")
	if !ok {
		t.Fatalf("expected sitemap in storage, wrote %v", writtenPaths(mem))
	}
	if !strings.Contains(string(sitemap.Body), "<loc>https://example.com/hello</loc>") {
		t.Fatalf("sitemap missing hello entry: %s", sitemap.Body)
	}

	if _, ok := mem.Written("dist/.sitegen-manifest.json"); !ok {
		t.Fatalf("expected manifest in storage, wrote %v", writtenPaths(mem))
	}
}

func TestNewModuleDisabled(t *testing.T) {
	cfg := moduleFixtureConfig(t)
	cfg.Enabled = false

	module, err := sitegen.New(cfg, di.WithGeneratorStorage(ditesting.NewMemoryStorage()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := module.Generator().Build(context.Background(), sitegen.BuildOptions{}); !errors.Is(err, sitegen.ErrServiceDisabled) {
		t.Fatalf("expected ErrServiceDisabled, got %v", err)
	}
	if module.Commands().Build == nil {
		t.Fatalf("expected build handler even while the module is disabled")
	}
}

func TestModuleCommandsExecuteBuild(t *testing.T) {
	cfg := moduleFixtureConfig(t)

	container, mem, err := ditesting.NewGeneratorContainer(cfg)
	if err != nil {
		t.Fatalf("NewGeneratorContainer: %v", err)
	}

	var envelope sitegen.ResultEnvelope
	cmd := sitegen.BuildCommand{
		ResultCallback: func(env sitegen.ResultEnvelope) {
			envelope = env
		},
	}
	if err := container.BuildHandler().Execute(context.Background(), cmd); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if envelope.Result == nil {
		t.Fatalf("expected build result in envelope")
	}
	if envelope.Result.PagesBuilt != 2 {
		t.Fatalf("expected 2 pages built, got %d", envelope.Result.PagesBuilt)
	}
	if _, ok := mem.Written("dist/hello/index.html"); !ok {
		t.Fatalf("expected hello page in storage, wrote %v", writtenPaths(mem))
	}
}

func TestModuleAccessors(t *testing.T) {
	cfg := moduleFixtureConfig(t)

	module, err := sitegen.New(cfg, di.WithGeneratorStorage(ditesting.NewMemoryStorage()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if module.Container() == nil {
		t.Fatalf("expected container accessor")
	}
	if module.Generator() == nil {
		t.Fatalf("expected generator service")
	}
	if module.Markdown() == nil {
		t.Fatalf("expected markdown service")
	}
	if module.Layouts() == nil {
		t.Fatalf("expected template renderer")
	}
	if module.Routes() == nil {
		t.Fatalf("expected route resolver")
	}
	if module.Shortcodes() == nil {
		t.Fatalf("expected shortcode processor")
	}
	if module.Commands().Sitemap == nil {
		t.Fatalf("expected sitemap handler")
	}

	if module.Navigation() != nil {
		t.Fatalf("navigation resolver should be nil while the feature is off")
	}
	if module.Themes() != nil {
		t.Fatalf("theme selector should be nil while the feature is off")
	}
	if module.Logger() != nil {
		t.Fatalf("logger provider should be nil while the feature is off")
	}
}
