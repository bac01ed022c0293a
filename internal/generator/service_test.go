package generator

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-sitegen/internal/layouts"
	"github.com/goliatone/go-sitegen/internal/markdown"
	"github.com/goliatone/go-sitegen/internal/navigation"
	"github.com/goliatone/go-sitegen/internal/routes"
	"github.com/goliatone/go-sitegen/pkg/interfaces"
	"github.com/google/uuid"
)

func TestBuildRendersTemplateContext(t *testing.T) {
	ctx := context.Background()

	now := time.Date(2024, 2, 5, 14, 30, 0, 0, time.UTC)
	fixtures := newRenderFixtures(now)

	renderer := &recordingRenderer{}
	storage := &recordingStorage{}
	svc := NewService(fixtures.Config, Dependencies{
		Documents:  fixtures.Documents,
		Routes:     fixtures.Routes,
		Navigation: fixtures.Menus,
		Renderer:   renderer,
		Storage:    storage,
	})

	result, err := svc.Build(ctx, BuildOptions{})
	if err != nil {
		t.Fatalf("expected build to succeed, got %v", err)
	}
	if result.PagesBuilt != fixtures.LocalizedCount() {
		t.Fatalf("expected %d rendered pages, got %d", fixtures.LocalizedCount(), result.PagesBuilt)
	}
	if len(result.Rendered) != fixtures.LocalizedCount() {
		t.Fatalf("expected rendered metadata for each page, got %d", len(result.Rendered))
	}
	wantLocales := []string{"en", "es"}
	if len(result.Locales) != len(wantLocales) {
		t.Fatalf("expected locales %v, got %v", wantLocales, result.Locales)
	}
	for i, code := range wantLocales {
		if result.Locales[i] != code {
			t.Fatalf("expected locales %v, got %v", wantLocales, result.Locales)
		}
	}

	outputs := map[string]bool{}
	for _, page := range result.Rendered {
		if page.DocumentID == uuid.Nil {
			t.Fatalf("expected rendered page %q to carry a document id", page.Route)
		}
		if !strings.HasSuffix(page.Output, "index.html") {
			t.Fatalf("expected output path ending in index.html, got %q", page.Output)
		}
		if page.Checksum == "" {
			t.Fatalf("expected checksum for rendered page %q", page.Route)
		}
		outputs[page.Output] = true
	}
	for _, want := range []string{
		"dist/company/index.html",
		"dist/vision/index.html",
		"dist/es/empresa/index.html",
		"dist/es/vision/index.html",
	} {
		if !outputs[want] {
			t.Fatalf("expected output %q, rendered %v", want, outputs)
		}
	}

	if len(renderer.calls) != fixtures.LocalizedCount() {
		t.Fatalf("expected %d renderer calls, got %d", fixtures.LocalizedCount(), len(renderer.calls))
	}
	for _, call := range renderer.calls {
		if call.name != "detail" {
			t.Fatalf("expected detail layout, got %q", call.name)
		}
		if call.ctx.Site.Title != "Example" {
			t.Fatalf("expected site title to flow through, got %q", call.ctx.Site.Title)
		}
		if call.ctx.Site.DefaultLocale != "en" {
			t.Fatalf("expected default locale en, got %q", call.ctx.Site.DefaultLocale)
		}
		if len(call.ctx.Site.Menus["main"]) == 0 {
			t.Fatalf("expected main menu for locale %q", call.ctx.Page.Locale.Code)
		}
		if call.ctx.Page.Document == nil {
			t.Fatalf("expected document reference in template context")
		}
		if !strings.Contains(string(call.ctx.Page.Content), "<h1>") {
			t.Fatalf("expected rendered markdown body, got %q", call.ctx.Page.Content)
		}
		if call.ctx.Helpers.Locale() != call.ctx.Page.Locale.Code {
			t.Fatalf("expected helpers locale %q, got %q", call.ctx.Page.Locale.Code, call.ctx.Helpers.Locale())
		}
		if got := call.ctx.Helpers.WithBaseURL("company"); got != "https://example.com/company" {
			t.Fatalf("expected absolute url helper, got %q", got)
		}
	}

	var pageWrites int
	for _, call := range storage.ExecCalls() {
		if call.Query != storageOpWrite {
			continue
		}
		if len(call.Args) < 4 {
			t.Fatalf("expected write args to include category, got %d args", len(call.Args))
		}
		if call.Args[3].(string) == string(categoryPage) {
			pageWrites++
		}
	}
	if pageWrites != fixtures.LocalizedCount() {
		t.Fatalf("expected %d page writes, got %d", fixtures.LocalizedCount(), pageWrites)
	}

	if _, ok := storage.files["dist/.sitegen-manifest.json"]; !ok {
		t.Fatalf("expected build manifest to be persisted")
	}
}

func TestBuildUsesWorkerPool(t *testing.T) {
	ctx := context.Background()

	fixtures := newRenderFixtures(time.Date(2024, 2, 5, 14, 30, 0, 0, time.UTC))
	fixtures.Config.Workers = 4

	renderer := &concurrentRenderer{delay: 20 * time.Millisecond}
	svc := NewService(fixtures.Config, Dependencies{
		Documents:  fixtures.Documents,
		Routes:     fixtures.Routes,
		Navigation: fixtures.Menus,
		Renderer:   renderer,
		Storage:    &recordingStorage{},
	})

	result, err := svc.Build(ctx, BuildOptions{})
	if err != nil {
		t.Fatalf("expected concurrent build to succeed, got %v", err)
	}
	if result.PagesBuilt != fixtures.LocalizedCount() {
		t.Fatalf("expected %d rendered pages, got %d", fixtures.LocalizedCount(), result.PagesBuilt)
	}
	if max := renderer.maxConcurrent.Load(); max < 2 {
		t.Fatalf("expected overlapping renders, max concurrency %d", max)
	}
}

func TestBuildDryRunSkipsWrites(t *testing.T) {
	ctx := context.Background()

	fixtures := newRenderFixtures(time.Date(2024, 2, 5, 14, 30, 0, 0, time.UTC))
	renderer := &recordingRenderer{}
	storage := &recordingStorage{}
	svc := NewService(fixtures.Config, Dependencies{
		Documents:  fixtures.Documents,
		Routes:     fixtures.Routes,
		Navigation: fixtures.Menus,
		Renderer:   renderer,
		Storage:    storage,
	})

	result, err := svc.Build(ctx, BuildOptions{DryRun: true})
	if err != nil {
		t.Fatalf("expected dry run to succeed, got %v", err)
	}
	if !result.DryRun {
		t.Fatalf("expected result to report dry run")
	}
	if result.PagesBuilt != fixtures.LocalizedCount() {
		t.Fatalf("expected %d pages evaluated, got %d", fixtures.LocalizedCount(), result.PagesBuilt)
	}
	if len(result.Rendered) != 0 {
		t.Fatalf("expected no rendered artifacts on dry run, got %d", len(result.Rendered))
	}
	if calls := storage.ExecCalls(); len(calls) != 0 {
		t.Fatalf("expected no storage writes on dry run, got %d", len(calls))
	}
	if len(result.Diagnostics) != fixtures.LocalizedCount() {
		t.Fatalf("expected a diagnostic per page, got %d", len(result.Diagnostics))
	}
	for _, diag := range result.Diagnostics {
		if diag.Layout != "detail" {
			t.Fatalf("expected diagnostic layout detail, got %q", diag.Layout)
		}
		if diag.Err != nil {
			t.Fatalf("unexpected diagnostic error: %v", diag.Err)
		}
	}
}

func TestBuildGeneratesSitemapAndRobots(t *testing.T) {
	ctx := context.Background()

	fixtures := newRenderFixtures(time.Date(2024, 2, 5, 14, 30, 0, 0, time.UTC))
	fixtures.Config.GenerateSitemap = true
	fixtures.Config.GenerateRobots = true

	storage := &recordingStorage{}
	svc := NewService(fixtures.Config, Dependencies{
		Documents:  fixtures.Documents,
		Routes:     fixtures.Routes,
		Navigation: fixtures.Menus,
		Renderer:   &recordingRenderer{},
		Storage:    storage,
	})

	if _, err := svc.Build(ctx, BuildOptions{}); err != nil {
		t.Fatalf("expected build to succeed, got %v", err)
	}

	sitemap, ok := storage.files["dist/sitemap.xml"]
	if !ok {
		t.Fatalf("expected sitemap.xml to be written")
	}
	for _, want := range []string{
		"https://example.com/company",
		"https://example.com/vision",
		"https://example.com/es/empresa",
		"https://example.com/es/vision",
	} {
		if !strings.Contains(string(sitemap), "<loc>"+want+"</loc>") {
			t.Fatalf("expected sitemap to list %q:\n%s", want, sitemap)
		}
	}

	robots, ok := storage.files["dist/robots.txt"]
	if !ok {
		t.Fatalf("expected robots.txt to be written")
	}
	if !strings.Contains(string(robots), "Sitemap: https://example.com/sitemap.xml") {
		t.Fatalf("expected robots.txt to advertise the sitemap:\n%s", robots)
	}
}

func TestBuildWritesFeeds(t *testing.T) {
	ctx := context.Background()

	fixtures := newRenderFixtures(time.Date(2024, 2, 5, 14, 30, 0, 0, time.UTC))
	fixtures.Config.GenerateFeeds = true

	storage := &recordingStorage{}
	svc := NewService(fixtures.Config, Dependencies{
		Documents:  fixtures.Documents,
		Routes:     fixtures.Routes,
		Navigation: fixtures.Menus,
		Renderer:   &recordingRenderer{},
		Storage:    storage,
	})

	result, err := svc.Build(ctx, BuildOptions{})
	if err != nil {
		t.Fatalf("expected build to succeed, got %v", err)
	}
	if result.FeedsBuilt != 6 {
		t.Fatalf("expected 6 feed artifacts (per locale rss+atom plus default aliases), got %d", result.FeedsBuilt)
	}

	rss, ok := storage.files["dist/feeds/en.rss.xml"]
	if !ok {
		t.Fatalf("expected en RSS feed to be written")
	}
	content := string(rss)
	if !strings.Contains(content, "<rss") {
		t.Fatalf("expected RSS envelope:\n%s", content)
	}
	if !strings.Contains(content, "https://example.com/vision") {
		t.Fatalf("expected feed item link:\n%s", content)
	}
	visionAt := strings.Index(content, "Vision")
	companyAt := strings.Index(content, "Company")
	if visionAt < 0 || companyAt < 0 || visionAt > companyAt {
		t.Fatalf("expected newest item first (vision before company):\n%s", content)
	}

	atom, ok := storage.files["dist/feeds/es.atom.xml"]
	if !ok {
		t.Fatalf("expected es Atom feed to be written")
	}
	if !strings.Contains(string(atom), `xml:lang="es"`) {
		t.Fatalf("expected Atom feed to carry locale language:\n%s", atom)
	}

	for _, alias := range []string{"dist/feed.xml", "dist/feed.atom.xml"} {
		if _, ok := storage.files[alias]; !ok {
			t.Fatalf("expected default locale alias %q", alias)
		}
	}
}

func TestBuildCopiesStaticAssets(t *testing.T) {
	ctx := context.Background()

	fixtures := newRenderFixtures(time.Date(2024, 2, 5, 14, 30, 0, 0, time.UTC))
	fixtures.Config.CopyAssets = true
	fixtures.Config.StaticDir = "static"

	storage := &recordingStorage{}
	svc := NewService(fixtures.Config, Dependencies{
		Documents:  fixtures.Documents,
		Routes:     fixtures.Routes,
		Navigation: fixtures.Menus,
		Renderer:   &recordingRenderer{},
		Storage:    storage,
		Assets:     newStubAssetResolver(),
	})

	result, err := svc.Build(ctx, BuildOptions{})
	if err != nil {
		t.Fatalf("expected build to succeed, got %v", err)
	}
	if result.AssetsBuilt != 2 {
		t.Fatalf("expected 2 copied assets, got %d", result.AssetsBuilt)
	}
	for _, want := range []string{"dist/css/site.css", "dist/js/app.js"} {
		if _, ok := storage.files[want]; !ok {
			t.Fatalf("expected asset %q to be written", want)
		}
	}

	var cssContentType string
	var assetWrites int
	for _, call := range storage.ExecCalls() {
		if call.Query != storageOpWrite || len(call.Args) < 5 {
			continue
		}
		if call.Args[3].(string) != string(categoryAsset) {
			continue
		}
		assetWrites++
		if call.Args[0].(string) == "dist/css/site.css" {
			cssContentType = call.Args[4].(string)
		}
	}
	if assetWrites != 2 {
		t.Fatalf("expected 2 asset writes, got %d", assetWrites)
	}
	if cssContentType != "text/css" {
		t.Fatalf("expected css content type, got %q", cssContentType)
	}
}

func TestBuildSkipsPagesWithManifest(t *testing.T) {
	ctx := context.Background()

	fixtures := newRenderFixtures(time.Date(2024, 2, 5, 14, 30, 0, 0, time.UTC))
	fixtures.Config.Incremental = true

	storage := &recordingStorage{}
	deps := Dependencies{
		Documents:  fixtures.Documents,
		Routes:     fixtures.Routes,
		Navigation: fixtures.Menus,
		Renderer:   &recordingRenderer{},
		Storage:    storage,
	}

	first, err := NewService(fixtures.Config, deps).Build(ctx, BuildOptions{})
	if err != nil {
		t.Fatalf("expected initial build to succeed, got %v", err)
	}
	if first.PagesBuilt != fixtures.LocalizedCount() {
		t.Fatalf("expected %d pages on first build, got %d", fixtures.LocalizedCount(), first.PagesBuilt)
	}

	raw, ok := storage.files["dist/.sitegen-manifest.json"]
	if !ok {
		t.Fatalf("expected manifest after first build")
	}
	manifest, err := parseManifest(raw)
	if err != nil {
		t.Fatalf("expected manifest to parse, got %v", err)
	}

	svc := NewService(fixtures.Config, deps).(*service)
	buildCtx, err := svc.loadContext(ctx, BuildOptions{})
	if err != nil {
		t.Fatalf("expected load context to succeed, got %v", err)
	}
	for _, page := range buildCtx.Pages {
		expected := joinOutputPath("dist", buildOutputPath(page.Route.Permalink, page.Locale.Code, "en"))
		if !manifest.shouldSkipPage(page.DocumentID, page.Locale.Code, page.Metadata.Hash, expected) {
			t.Fatalf("expected manifest to mark %q as fresh", page.Document.FilePath)
		}
	}

	pageWritesBefore := countWrites(storage, categoryPage)
	renderer := &recordingRenderer{}
	deps.Renderer = renderer
	second, err := NewService(fixtures.Config, deps).Build(ctx, BuildOptions{})
	if err != nil {
		t.Fatalf("expected incremental build to succeed, got %v", err)
	}
	if second.PagesBuilt != 0 {
		t.Fatalf("expected no rebuilt pages, got %d", second.PagesBuilt)
	}
	if second.PagesSkipped != fixtures.LocalizedCount() {
		t.Fatalf("expected %d skipped pages, got %d", fixtures.LocalizedCount(), second.PagesSkipped)
	}
	if len(renderer.calls) != 0 {
		t.Fatalf("expected renderer to stay idle on incremental build, got %d calls", len(renderer.calls))
	}
	if after := countWrites(storage, categoryPage); after != pageWritesBefore {
		t.Fatalf("expected no additional page writes, had %d now %d", pageWritesBefore, after)
	}
}

func TestBuildCleanBuildIgnoresManifest(t *testing.T) {
	ctx := context.Background()

	fixtures := newRenderFixtures(time.Date(2024, 2, 5, 14, 30, 0, 0, time.UTC))
	fixtures.Config.Incremental = true

	storage := &recordingStorage{}
	deps := Dependencies{
		Documents:  fixtures.Documents,
		Routes:     fixtures.Routes,
		Navigation: fixtures.Menus,
		Renderer:   &recordingRenderer{},
		Storage:    storage,
	}
	if _, err := NewService(fixtures.Config, deps).Build(ctx, BuildOptions{}); err != nil {
		t.Fatalf("expected initial build to succeed, got %v", err)
	}

	before := len(storage.ExecCalls())
	renderer := &recordingRenderer{}
	deps.Renderer = renderer
	fixtures.Config.CleanBuild = true
	result, err := NewService(fixtures.Config, deps).Build(ctx, BuildOptions{})
	if err != nil {
		t.Fatalf("expected clean build to succeed, got %v", err)
	}

	calls := storage.ExecCalls()[before:]
	if len(calls) == 0 || calls[0].Query != storageOpRemove {
		t.Fatalf("expected clean build to remove output dir first, calls %v", calls)
	}
	if calls[0].Args[0].(string) != "dist" {
		t.Fatalf("expected removal of dist, got %v", calls[0].Args)
	}
	if result.PagesBuilt != fixtures.LocalizedCount() {
		t.Fatalf("expected full rebuild after clean, got %d", result.PagesBuilt)
	}
	if len(renderer.calls) != fixtures.LocalizedCount() {
		t.Fatalf("expected every page re-rendered, got %d calls", len(renderer.calls))
	}
}

func TestBuildDocumentForcesRender(t *testing.T) {
	ctx := context.Background()

	fixtures := newRenderFixtures(time.Date(2024, 2, 5, 14, 30, 0, 0, time.UTC))
	fixtures.Config.Incremental = true

	storage := &recordingStorage{}
	deps := Dependencies{
		Documents:  fixtures.Documents,
		Routes:     fixtures.Routes,
		Navigation: fixtures.Menus,
		Renderer:   &recordingRenderer{},
		Storage:    storage,
	}
	if _, err := NewService(fixtures.Config, deps).Build(ctx, BuildOptions{}); err != nil {
		t.Fatalf("expected initial build to succeed, got %v", err)
	}

	renderer := &recordingRenderer{}
	deps.Renderer = renderer
	svc := NewService(fixtures.Config, deps)
	if err := svc.BuildDocument(ctx, "company.md", "en"); err != nil {
		t.Fatalf("expected document rebuild to succeed, got %v", err)
	}
	if len(renderer.calls) != 1 {
		t.Fatalf("expected exactly one render despite fresh manifest, got %d", len(renderer.calls))
	}
	if got := renderer.calls[0].ctx.Page.Route.Permalink; got != "/company" {
		t.Fatalf("expected /company to render, got %q", got)
	}

	err := svc.BuildDocument(ctx, "missing.md", "")
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound for unknown path, got %v", err)
	}
}

func TestBuildAssetsForcesCopy(t *testing.T) {
	ctx := context.Background()

	fixtures := newRenderFixtures(time.Date(2024, 2, 5, 14, 30, 0, 0, time.UTC))
	fixtures.Config.Incremental = true
	fixtures.Config.CopyAssets = true
	fixtures.Config.StaticDir = "static"

	storage := &recordingStorage{}
	svc := NewService(fixtures.Config, Dependencies{
		Documents:  fixtures.Documents,
		Routes:     fixtures.Routes,
		Navigation: fixtures.Menus,
		Renderer:   &recordingRenderer{},
		Storage:    storage,
		Assets:     newStubAssetResolver(),
	})

	if _, err := svc.Build(ctx, BuildOptions{}); err != nil {
		t.Fatalf("expected build to succeed, got %v", err)
	}
	if writes := countWrites(storage, categoryAsset); writes != 2 {
		t.Fatalf("expected 2 asset writes after build, got %d", writes)
	}

	if err := svc.BuildAssets(ctx); err != nil {
		t.Fatalf("expected asset rebuild to succeed, got %v", err)
	}
	if writes := countWrites(storage, categoryAsset); writes != 4 {
		t.Fatalf("expected forced asset rewrite, got %d writes", writes)
	}
}

func TestCleanInvokesStorageRemove(t *testing.T) {
	ctx := context.Background()

	fixtures := newRenderFixtures(time.Date(2024, 2, 5, 14, 30, 0, 0, time.UTC))
	storage := &recordingStorage{}
	svc := NewService(fixtures.Config, Dependencies{
		Renderer: &recordingRenderer{},
		Storage:  storage,
	})

	if err := svc.Clean(ctx); err != nil {
		t.Fatalf("expected clean to succeed, got %v", err)
	}

	calls := storage.ExecCalls()
	if len(calls) != 1 {
		t.Fatalf("expected a single storage call, got %d", len(calls))
	}
	if calls[0].Query != storageOpRemove {
		t.Fatalf("expected remove operation, got %q", calls[0].Query)
	}
	if calls[0].Args[0].(string) != "dist" {
		t.Fatalf("expected removal of output dir, got %v", calls[0].Args)
	}
}

func TestGeneratorHooksInvoked(t *testing.T) {
	ctx := context.Background()

	fixtures := newRenderFixtures(time.Date(2024, 2, 5, 14, 30, 0, 0, time.UTC))
	fixtures.Config.CopyAssets = true
	fixtures.Config.StaticDir = "static"

	var beforeBuild, afterBuild, afterPage, beforeClean, afterClean atomic.Int32
	hooks := Hooks{
		BeforeBuild: func(context.Context, BuildOptions) error {
			beforeBuild.Add(1)
			return nil
		},
		AfterBuild: func(context.Context, BuildOptions, *BuildResult) error {
			afterBuild.Add(1)
			return nil
		},
		AfterPage: func(_ context.Context, page RenderedPage) error {
			if page.Route == "" {
				return errors.New("missing route in page hook")
			}
			afterPage.Add(1)
			return nil
		},
		BeforeClean: func(context.Context, string) error {
			beforeClean.Add(1)
			return nil
		},
		AfterClean: func(context.Context, string) error {
			afterClean.Add(1)
			return nil
		},
	}

	svc := NewService(fixtures.Config, Dependencies{
		Documents:  fixtures.Documents,
		Routes:     fixtures.Routes,
		Navigation: fixtures.Menus,
		Renderer:   &recordingRenderer{},
		Storage:    &recordingStorage{},
		Assets:     newStubAssetResolver(),
		Hooks:      hooks,
	})

	if _, err := svc.Build(ctx, BuildOptions{}); err != nil {
		t.Fatalf("expected build to succeed, got %v", err)
	}
	if err := svc.BuildAssets(ctx); err != nil {
		t.Fatalf("expected asset build to succeed, got %v", err)
	}
	if err := svc.BuildDocument(ctx, "company.md", "en"); err != nil {
		t.Fatalf("expected document build to succeed, got %v", err)
	}
	if err := svc.Clean(ctx); err != nil {
		t.Fatalf("expected clean to succeed, got %v", err)
	}

	if got := beforeBuild.Load(); got != 3 {
		t.Fatalf("expected 3 before build hooks, got %d", got)
	}
	if got := afterBuild.Load(); got != 3 {
		t.Fatalf("expected 3 after build hooks, got %d", got)
	}
	if got := afterPage.Load(); got != int32(fixtures.LocalizedCount()+1) {
		t.Fatalf("expected %d page hooks, got %d", fixtures.LocalizedCount()+1, got)
	}
	if got := beforeClean.Load(); got != 1 {
		t.Fatalf("expected 1 before clean hook, got %d", got)
	}
	if got := afterClean.Load(); got != 1 {
		t.Fatalf("expected 1 after clean hook, got %d", got)
	}
}

func TestBuildContinuesPastDocumentFailures(t *testing.T) {
	ctx := context.Background()

	now := time.Date(2024, 2, 5, 14, 30, 0, 0, time.UTC)
	good := newTestDocument("company.md", "en", "Company", "/company", now)
	docs := &stubDocumentSource{results: []*markdown.DocumentResult{
		{
			Path: "broken.md",
			Err:  fmt.Errorf("markdown: parse broken.md: %w", markdown.ErrMalformedFrontMatter),
		},
		{Document: good, Path: good.FilePath},
	}}

	storage := &recordingStorage{}
	svc := NewService(Config{
		OutputDir:     "dist",
		BaseURL:       "https://example.com",
		DefaultLocale: "en",
		Locales:       []string{"en"},
		Workers:       1,
	}, Dependencies{
		Documents: docs,
		Routes:    stubRouteResolver{},
		Renderer:  &recordingRenderer{},
		Storage:   storage,
	})

	result, err := svc.Build(ctx, BuildOptions{})
	if err == nil {
		t.Fatalf("expected malformed document to surface in build error")
	}
	if !errors.Is(err, markdown.ErrMalformedFrontMatter) {
		t.Fatalf("expected malformed front matter in error chain, got %v", err)
	}
	if result.PagesBuilt != 1 {
		t.Fatalf("expected healthy document to render, got %d", result.PagesBuilt)
	}

	var sawFailure bool
	for _, diag := range result.Diagnostics {
		if diag.Path != "broken.md" {
			continue
		}
		sawFailure = true
		if diag.Kind != diagnosticFrontMatter {
			t.Fatalf("expected front matter diagnostic, got %q", diag.Kind)
		}
	}
	if !sawFailure {
		t.Fatalf("expected diagnostic for broken.md, got %v", result.Diagnostics)
	}

	if _, ok := storage.files["dist/company/index.html"]; !ok {
		t.Fatalf("expected healthy page to be written despite failure")
	}
	if _, ok := storage.files["dist/.sitegen-manifest.json"]; ok {
		t.Fatalf("expected manifest to be withheld on failed build")
	}
}

func TestBuildUnknownLayoutSkipsDocument(t *testing.T) {
	ctx := context.Background()

	now := time.Date(2024, 2, 5, 14, 30, 0, 0, time.UTC)
	good := newTestDocument("company.md", "en", "Company", "/company", now)
	bad := newTestDocument("legacy.md", "en", "Legacy", "/legacy", now)
	bad.FrontMatter.Layout = "missing"

	docs := &stubDocumentSource{results: []*markdown.DocumentResult{
		{Document: good, Path: good.FilePath},
		{Document: bad, Path: bad.FilePath},
	}}

	storage := &recordingStorage{}
	svc := NewService(Config{
		OutputDir:     "dist",
		BaseURL:       "https://example.com",
		DefaultLocale: "en",
		Locales:       []string{"en"},
		Workers:       1,
	}, Dependencies{
		Documents: docs,
		Routes:    stubRouteResolver{},
		Renderer:  &layoutGateRenderer{fail: "missing"},
		Storage:   storage,
	})

	result, err := svc.Build(ctx, BuildOptions{})
	if err == nil {
		t.Fatalf("expected unknown layout to surface in build error")
	}
	if !errors.Is(err, layouts.ErrUnknownLayout) {
		t.Fatalf("expected unknown layout in error chain, got %v", err)
	}
	if result.PagesBuilt != 1 {
		t.Fatalf("expected remaining document to render, got %d", result.PagesBuilt)
	}

	var sawLayout bool
	for _, diag := range result.Diagnostics {
		if diag.Path == "legacy.md" && diag.Kind == diagnosticLayout {
			sawLayout = true
		}
	}
	if !sawLayout {
		t.Fatalf("expected unknown layout diagnostic, got %v", result.Diagnostics)
	}

	if _, ok := storage.files["dist/company/index.html"]; !ok {
		t.Fatalf("expected healthy page output to exist")
	}
	if _, ok := storage.files["dist/legacy/index.html"]; ok {
		t.Fatalf("expected no output for document with unknown layout")
	}
}

func TestBuildLocaleFilter(t *testing.T) {
	ctx := context.Background()

	fixtures := newRenderFixtures(time.Date(2024, 2, 5, 14, 30, 0, 0, time.UTC))
	storage := &recordingStorage{}
	svc := NewService(fixtures.Config, Dependencies{
		Documents:  fixtures.Documents,
		Routes:     fixtures.Routes,
		Navigation: fixtures.Menus,
		Renderer:   &recordingRenderer{},
		Storage:    storage,
	})

	result, err := svc.Build(ctx, BuildOptions{Locales: []string{"es"}})
	if err != nil {
		t.Fatalf("expected scoped build to succeed, got %v", err)
	}
	if len(result.Locales) != 1 || result.Locales[0] != "es" {
		t.Fatalf("expected es locale scope, got %v", result.Locales)
	}
	if result.PagesBuilt != 2 {
		t.Fatalf("expected 2 localized pages, got %d", result.PagesBuilt)
	}
	for _, page := range result.Rendered {
		if !strings.HasPrefix(page.Output, "dist/es/") {
			t.Fatalf("expected es output paths only, got %q", page.Output)
		}
	}
}

func TestDisabledService(t *testing.T) {
	ctx := context.Background()
	svc := NewDisabledService()

	if _, err := svc.Build(ctx, BuildOptions{}); !errors.Is(err, ErrServiceDisabled) {
		t.Fatalf("expected ErrServiceDisabled from Build, got %v", err)
	}
	if err := svc.BuildDocument(ctx, "company.md", "en"); !errors.Is(err, ErrServiceDisabled) {
		t.Fatalf("expected ErrServiceDisabled from BuildDocument, got %v", err)
	}
	if err := svc.BuildAssets(ctx); !errors.Is(err, ErrServiceDisabled) {
		t.Fatalf("expected ErrServiceDisabled from BuildAssets, got %v", err)
	}
	if err := svc.BuildSitemap(ctx); !errors.Is(err, ErrServiceDisabled) {
		t.Fatalf("expected ErrServiceDisabled from BuildSitemap, got %v", err)
	}
	if err := svc.Clean(ctx); !errors.Is(err, ErrServiceDisabled) {
		t.Fatalf("expected ErrServiceDisabled from Clean, got %v", err)
	}
}

func countWrites(storage *recordingStorage, category writeCategory) int {
	var count int
	for _, call := range storage.ExecCalls() {
		if call.Query != storageOpWrite || len(call.Args) < 4 {
			continue
		}
		if value, ok := call.Args[3].(string); ok && value == string(category) {
			count++
		}
	}
	return count
}

type renderFixtures struct {
	Config    Config
	Documents *stubDocumentSource
	Routes    stubRouteResolver
	Menus     *stubMenuSource
	Paths     []string
}

func (f *renderFixtures) LocalizedCount() int {
	return len(f.Paths)
}

func newRenderFixtures(now time.Time) *renderFixtures {
	docs := []*interfaces.Document{
		newTestDocument("company.md", "en", "Company", "/company", now.Add(-2*time.Hour)),
		newTestDocument("company.es.md", "es", "Empresa", "/es/empresa", now.Add(-2*time.Hour)),
		newTestDocument("vision.md", "en", "Vision", "/vision", now.Add(-30*time.Minute)),
		newTestDocument("vision.es.md", "es", "Visión", "/es/vision", now.Add(-30*time.Minute)),
	}

	results := make([]*markdown.DocumentResult, 0, len(docs))
	paths := make([]string, 0, len(docs))
	for _, doc := range docs {
		results = append(results, &markdown.DocumentResult{Document: doc, Path: doc.FilePath})
		paths = append(paths, doc.FilePath)
	}

	return &renderFixtures{
		Config: Config{
			OutputDir:     "dist",
			BaseURL:       "https://example.com",
			SiteTitle:     "Example",
			DefaultLocale: "en",
			Locales:       []string{"en", "es"},
			Workers:       1,
		},
		Documents: &stubDocumentSource{results: results},
		Routes:    stubRouteResolver{},
		Menus:     &stubMenuSource{},
		Paths:     paths,
	}
}

func newTestDocument(filePath, locale, title, permalink string, modified time.Time) *interfaces.Document {
	body := []byte("# " + title + "\n")
	sum := sha256.Sum256(body)
	return &interfaces.Document{
		FilePath: filePath,
		Locale:   locale,
		FrontMatter: interfaces.FrontMatter{
			Layout:    "detail",
			Title:     title,
			Permalink: permalink,
			Date:      modified,
			Raw: map[string]any{
				"layout":    "detail",
				"title":     title,
				"permalink": permalink,
			},
		},
		Body:         body,
		BodyHTML:     []byte("<h1>" + title + "</h1>\n"),
		LastModified: modified,
		Checksum:     sum[:],
	}
}

type stubDocumentSource struct {
	mu      sync.Mutex
	results []*markdown.DocumentResult
}

func (s *stubDocumentSource) LoadDirectoryResults(_ context.Context, _ string, _ interfaces.LoadOptions) ([]*markdown.DocumentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*markdown.DocumentResult, len(s.results))
	copy(out, s.results)
	return out, nil
}

func (s *stubDocumentSource) Render(_ context.Context, source []byte, _ interfaces.ParseOptions) ([]byte, error) {
	return source, nil
}

type stubRouteResolver struct{}

func (stubRouteResolver) Resolve(_ context.Context, doc *interfaces.Document) (routes.Route, error) {
	if doc == nil {
		return routes.Route{}, routes.ErrDocumentRequired
	}
	permalink := strings.TrimSpace(doc.FrontMatter.Permalink)
	if permalink == "" {
		return routes.Route{}, fmt.Errorf("routes: resolve %s: %w", doc.FilePath, routes.ErrNoSlug)
	}
	return routes.Route{
		Slug:      path.Base(permalink),
		Permalink: permalink,
	}, nil
}

type stubMenuSource struct {
	err error
}

func (s *stubMenuSource) ResolveAll(_ context.Context, locale string) (map[string][]navigation.Node, error) {
	if s.err != nil {
		return nil, s.err
	}
	home := "/"
	if locale != "" && locale != "en" {
		home = "/" + locale + "/"
	}
	return map[string][]navigation.Node{
		"main": {{Label: "Home", URL: home, Position: 1}},
	}, nil
}

type stubAssetResolver struct {
	assets map[string][]byte
}

func newStubAssetResolver() *stubAssetResolver {
	return &stubAssetResolver{assets: map[string][]byte{
		"css/site.css": []byte("body { margin: 0; }"),
		"js/app.js":    []byte(`console.log("ready");`),
	}}
}

func (r *stubAssetResolver) List(_ context.Context, origin string) ([]string, error) {
	if origin != OriginStatic {
		return nil, nil
	}
	names := make([]string, 0, len(r.assets))
	for name := range r.assets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (r *stubAssetResolver) Open(_ context.Context, origin, name string) (io.ReadCloser, error) {
	data, ok := r.assets[name]
	if !ok {
		return nil, fmt.Errorf("stub asset %s/%s not found", origin, name)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (r *stubAssetResolver) ResolvePath(_ string, name string) (string, error) {
	return name, nil
}

type storageCall struct {
	Query string
	Args  []any
}

type recordingStorage struct {
	mu    sync.Mutex
	execs []storageCall
	files map[string][]byte
}

func (r *recordingStorage) Exec(_ context.Context, query string, args ...any) (interfaces.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.execs = append(r.execs, storageCall{Query: query, Args: args})
	if r.files == nil {
		r.files = map[string][]byte{}
	}
	switch query {
	case storageOpWrite:
		if len(args) >= 2 {
			target, _ := args[0].(string)
			if reader, ok := args[1].(io.Reader); ok && target != "" {
				data, err := io.ReadAll(reader)
				if err != nil {
					return nil, err
				}
				r.files[target] = data
			}
		}
	case storageOpRemove:
		if len(args) >= 1 {
			target, _ := args[0].(string)
			delete(r.files, target)
			prefix := target + "/"
			for name := range r.files {
				if strings.HasPrefix(name, prefix) {
					delete(r.files, name)
				}
			}
		}
	}
	return noopResult{}, nil
}

func (r *recordingStorage) Query(_ context.Context, query string, args ...any) (interfaces.Rows, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if query == storageOpRead && len(args) > 0 {
		if target, ok := args[0].(string); ok {
			if data, ok := r.files[target]; ok {
				buf := make([]byte, len(data))
				copy(buf, data)
				return &bufferedRows{data: [][]byte{buf}}, nil
			}
		}
	}
	return &bufferedRows{}, nil
}

func (r *recordingStorage) Transaction(_ context.Context, fn func(tx interfaces.Transaction) error) error {
	return fn(&recordingTx{storage: r})
}

func (r *recordingStorage) ExecCalls() []storageCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]storageCall, len(r.execs))
	copy(out, r.execs)
	return out
}

type recordingTx struct {
	storage *recordingStorage
}

func (t *recordingTx) Exec(ctx context.Context, query string, args ...any) (interfaces.Result, error) {
	return t.storage.Exec(ctx, query, args...)
}

func (t *recordingTx) Query(ctx context.Context, query string, args ...any) (interfaces.Rows, error) {
	return t.storage.Query(ctx, query, args...)
}

func (t *recordingTx) Transaction(ctx context.Context, fn func(tx interfaces.Transaction) error) error {
	return t.storage.Transaction(ctx, fn)
}

func (t *recordingTx) Commit() error   { return nil }
func (t *recordingTx) Rollback() error { return nil }

type noopResult struct{}

func (noopResult) LastInsertId() (int64, error) { return 0, nil }
func (noopResult) RowsAffected() (int64, error) { return 0, nil }

type bufferedRows struct {
	data  [][]byte
	index int
}

func (r *bufferedRows) Next() bool {
	if r.index >= len(r.data) {
		return false
	}
	r.index++
	return true
}

func (r *bufferedRows) Scan(dest ...any) error {
	if r.index == 0 || r.index > len(r.data) {
		return errors.New("bufferedRows: scan without next")
	}
	if len(dest) == 0 {
		return nil
	}
	row := r.data[r.index-1]
	switch out := dest[0].(type) {
	case *[]byte:
		buf := make([]byte, len(row))
		copy(buf, row)
		*out = buf
	case *string:
		*out = string(row)
	default:
		return fmt.Errorf("bufferedRows: unsupported scan target %T", dest[0])
	}
	return nil
}

func (r *bufferedRows) Close() error { return nil }

type renderCall struct {
	name string
	ctx  TemplateContext
}

type recordingRenderer struct {
	mu    sync.Mutex
	calls []renderCall
}

func (r *recordingRenderer) RenderTemplate(name string, data any, out ...io.Writer) (string, error) {
	tplCtx, ok := data.(TemplateContext)
	if !ok {
		return "", fmt.Errorf("recordingRenderer: unexpected context %T", data)
	}
	r.mu.Lock()
	r.calls = append(r.calls, renderCall{name: name, ctx: tplCtx})
	r.mu.Unlock()

	html := fmt.Sprintf("<html data-path=%q>%s</html>", tplCtx.Page.Route.Permalink, tplCtx.Page.Content)
	for _, w := range out {
		if _, err := io.WriteString(w, html); err != nil {
			return "", err
		}
	}
	return html, nil
}

func (r *recordingRenderer) Render(name string, data any, out ...io.Writer) (string, error) {
	return r.RenderTemplate(name, data, out...)
}

func (r *recordingRenderer) RenderString(templateContent string, data any, out ...io.Writer) (string, error) {
	return r.RenderTemplate(templateContent, data, out...)
}

func (r *recordingRenderer) RegisterFilter(string, func(any, any) (any, error)) error { return nil }

func (r *recordingRenderer) GlobalContext(any) error { return nil }

type concurrentRenderer struct {
	recordingRenderer
	delay         time.Duration
	current       atomic.Int32
	maxConcurrent atomic.Int32
}

func (r *concurrentRenderer) RenderTemplate(name string, data any, out ...io.Writer) (string, error) {
	current := r.current.Add(1)
	defer r.current.Add(-1)
	for {
		max := r.maxConcurrent.Load()
		if current <= max || r.maxConcurrent.CompareAndSwap(max, current) {
			break
		}
	}
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	return r.recordingRenderer.RenderTemplate(name, data, out...)
}

type layoutGateRenderer struct {
	recordingRenderer
	fail string
}

func (r *layoutGateRenderer) RenderTemplate(name string, data any, out ...io.Writer) (string, error) {
	if name == r.fail {
		return "", &layouts.UnknownLayoutError{Layout: name}
	}
	return r.recordingRenderer.RenderTemplate(name, data, out...)
}
