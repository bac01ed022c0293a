package generator

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-sitegen/internal/logging"
	"github.com/goliatone/go-sitegen/internal/markdown"
	"github.com/goliatone/go-sitegen/internal/navigation"
	"github.com/goliatone/go-sitegen/internal/routes"
	"github.com/goliatone/go-sitegen/pkg/interfaces"
	gotheme "github.com/goliatone/go-theme"
	"github.com/google/uuid"
)

var (
	// ErrServiceDisabled indicates the generator feature is disabled.
	ErrServiceDisabled = errors.New("generator: service disabled")
	// ErrDocumentNotFound indicates a targeted rebuild matched no document.
	ErrDocumentNotFound = errors.New("generator: document not found")
	errRendererRequired = errors.New("generator: template renderer is required")
)

// Service describes the static site generator contract.
type Service interface {
	Build(ctx context.Context, opts BuildOptions) (*BuildResult, error)
	BuildDocument(ctx context.Context, path string, locale string) error
	BuildAssets(ctx context.Context) error
	BuildSitemap(ctx context.Context) error
	Clean(ctx context.Context) error
}

// Config captures runtime behaviour toggles for the generator.
type Config struct {
	OutputDir         string
	BaseURL           string
	SiteTitle         string
	SiteDescription   string
	SiteParams        map[string]any
	CleanBuild        bool
	Incremental       bool
	CopyAssets        bool
	StaticDir         string
	GenerateSitemap   bool
	GenerateRobots    bool
	GenerateFeeds     bool
	Workers           int
	DefaultLocale     string
	Locales           []string
	FrontMatterSchema map[string]any
	StrictFrontMatter bool
	Theme             ThemeSettings
}

// ThemeSettings selects the active theme and controls how its values surface
// in templates.
type ThemeSettings struct {
	Name              string
	Variant           string
	CSSVariablePrefix string
	PartialFallbacks  map[string]string
}

// BuildOptions narrows the scope of a generator run. Force bypasses the
// incremental manifest so matched documents always re-render.
type BuildOptions struct {
	Locales       []string
	Paths         []string
	Force         bool
	DryRun        bool
	IncludeDrafts bool
}

// BuildResult reports aggregated build metadata.
type BuildResult struct {
	PagesBuilt    int
	PagesSkipped  int
	AssetsBuilt   int
	AssetsSkipped int
	FeedsBuilt    int
	Locales       []string
	Duration      time.Duration
	Rendered      []RenderedPage
	Diagnostics   []RenderDiagnostic
	Errors        []error
	DryRun        bool
}

// DocumentSource loads the Markdown corpus and re-renders fragments after
// shortcode expansion.
type DocumentSource interface {
	LoadDirectoryResults(ctx context.Context, dir string, opts interfaces.LoadOptions) ([]*markdown.DocumentResult, error)
	Render(ctx context.Context, source []byte, opts interfaces.ParseOptions) ([]byte, error)
}

// RouteResolver maps documents onto site routes.
type RouteResolver interface {
	Resolve(ctx context.Context, doc *interfaces.Document) (routes.Route, error)
}

// MenuSource resolves the configured menus for a locale.
type MenuSource interface {
	ResolveAll(ctx context.Context, locale string) (map[string][]navigation.Node, error)
}

// ThemeSource resolves the active theme selection.
type ThemeSource interface {
	Selection(name, variant string) (*gotheme.Selection, error)
}

// Hooks lets hosts observe build lifecycle events. All hooks are optional;
// hook errors join the build error without interrupting remaining phases.
// Hooks may be invoked from render workers and must be safe for concurrent
// use.
type Hooks struct {
	BeforeBuild func(ctx context.Context, opts BuildOptions) error
	AfterBuild  func(ctx context.Context, opts BuildOptions, result *BuildResult) error
	AfterPage   func(ctx context.Context, page RenderedPage) error
	BeforeClean func(ctx context.Context, outputDir string) error
	AfterClean  func(ctx context.Context, outputDir string) error
}

func (h Hooks) beforeBuild(ctx context.Context, opts BuildOptions) error {
	if h.BeforeBuild == nil {
		return nil
	}
	return h.BeforeBuild(ctx, opts)
}

func (h Hooks) afterBuild(ctx context.Context, opts BuildOptions, result *BuildResult) error {
	if h.AfterBuild == nil {
		return nil
	}
	return h.AfterBuild(ctx, opts, result)
}

func (h Hooks) afterPage(ctx context.Context, page RenderedPage) error {
	if h.AfterPage == nil {
		return nil
	}
	return h.AfterPage(ctx, page)
}

func (h Hooks) beforeClean(ctx context.Context, outputDir string) error {
	if h.BeforeClean == nil {
		return nil
	}
	return h.BeforeClean(ctx, outputDir)
}

func (h Hooks) afterClean(ctx context.Context, outputDir string) error {
	if h.AfterClean == nil {
		return nil
	}
	return h.AfterClean(ctx, outputDir)
}

// Dependencies lists the services required by the generator.
type Dependencies struct {
	Documents  DocumentSource
	Routes     RouteResolver
	Navigation MenuSource
	Shortcodes interfaces.ShortcodeProcessor
	Themes     ThemeSource
	Renderer   interfaces.TemplateRenderer
	Storage    interfaces.StorageProvider
	Assets     AssetResolver
	Logger     interfaces.Logger
	Hooks      Hooks
}

// NewService wires a generator implementation with the provided configuration and dependencies.
func NewService(cfg Config, deps Dependencies) Service {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NoOp()
	}
	return &service{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		now:    time.Now,
	}
}

// NewDisabledService returns a Service that fails all operations with ErrServiceDisabled.
func NewDisabledService() Service {
	return disabledService{}
}

type service struct {
	cfg    Config
	deps   Dependencies
	logger interfaces.Logger
	now    func() time.Time
}

type disabledService struct{}

func (s *service) Build(ctx context.Context, opts BuildOptions) (*BuildResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.deps.Renderer == nil {
		return nil, errRendererRequired
	}
	if err := s.deps.Hooks.beforeBuild(ctx, opts); err != nil {
		return nil, fmt.Errorf("generator: before build hook: %w", err)
	}

	start := time.Now()
	buildCtx, err := s.loadContext(ctx, opts)
	if err != nil {
		return nil, err
	}

	selection, err := s.themeSelection()
	if err != nil {
		return nil, fmt.Errorf("generator: theme selection: %w", err)
	}
	themeCtx := buildThemeContext(selection, s.cfg.Theme)

	result := &BuildResult{
		Locales:     make([]string, 0, len(buildCtx.Locales)),
		DryRun:      opts.DryRun,
		Diagnostics: make([]RenderDiagnostic, 0, len(buildCtx.Failures)+len(buildCtx.Pages)),
	}
	for _, spec := range buildCtx.Locales {
		result.Locales = append(result.Locales, spec.Code)
	}

	siteMeta := SiteMetadata{
		Title:         strings.TrimSpace(s.cfg.SiteTitle),
		Description:   strings.TrimSpace(s.cfg.SiteDescription),
		BaseURL:       strings.TrimRight(s.cfg.BaseURL, "/"),
		DefaultLocale: buildCtx.DefaultLocale,
		Locales:       append([]LocaleSpec(nil), buildCtx.Locales...),
		Params:        s.cfg.SiteParams,
	}
	if siteMeta.Params == nil {
		siteMeta.Params = map[string]any{}
	}

	var (
		mu          sync.Mutex
		rendered    = make([]RenderedPage, 0, len(buildCtx.Pages))
		errorsSlice []error
		baseDir     = strings.Trim(strings.TrimSpace(s.cfg.OutputDir), "/")
		pageKeys    = map[string]struct{}{}
	)

	writer := newArtifactWriter(s.deps.Storage)

	var manifest *buildManifest
	if s.cfg.CleanBuild && !opts.DryRun {
		if err := writer.Remove(ctx, baseDir); err != nil {
			errorsSlice = append(errorsSlice, fmt.Errorf("generator: clean output: %w", err))
		}
		manifest = newBuildManifest()
	} else {
		loaded, manifestErr := s.loadManifest(ctx)
		if manifestErr != nil {
			errorsSlice = append(errorsSlice, manifestErr)
		}
		manifest = loaded
	}
	if manifest == nil {
		manifest = newBuildManifest()
	}

	for _, failure := range buildCtx.Failures {
		diag := RenderDiagnostic{
			Path:   failure.Path,
			Locale: failure.Locale,
			Kind:   failure.Kind,
			Err:    failure.Err,
		}
		result.Diagnostics = append(result.Diagnostics, diag)
		errorsSlice = append(errorsSlice, failure.Err)
		logging.WithDocumentContext(s.logger, failure.Path, failure.Locale, failure.Kind).
			Error("generator.document_failed", "error", failure.Err.Error())
	}

	collect := func(outcome renderOutcome) {
		mu.Lock()
		defer mu.Unlock()
		result.Diagnostics = append(result.Diagnostics, outcome.diagnostic)
		if manifest != nil && outcome.diagnostic.DocumentID != uuid.Nil {
			key := manifest.pageKey(outcome.diagnostic.DocumentID, outcome.diagnostic.Locale)
			if key != "" {
				pageKeys[key] = struct{}{}
			}
		}
		if outcome.err != nil {
			errorsSlice = append(errorsSlice, outcome.err)
			logging.WithDocumentContext(s.logger, outcome.diagnostic.Path, outcome.diagnostic.Locale, outcome.diagnostic.Kind).
				Error("generator.render_failed", "error", outcome.err.Error())
			return
		}
		if outcome.skipped {
			result.PagesSkipped++
			return
		}
		result.PagesBuilt++
		if !opts.DryRun {
			rendered = append(rendered, outcome.page)
		}
	}

	appendError := func(err error) {
		mu.Lock()
		errorsSlice = append(errorsSlice, err)
		mu.Unlock()
	}

	handle := func(outcome renderOutcome) {
		collect(outcome)
		if outcome.err != nil || outcome.skipped {
			return
		}
		if err := s.deps.Hooks.afterPage(ctx, outcome.page); err != nil {
			appendError(fmt.Errorf("generator: after page hook: %w", err))
		}
	}

	workerCount := s.effectiveWorkerCount(len(buildCtx.Locales))
	if workerCount <= 1 || len(buildCtx.Pages) <= 1 {
		for _, page := range buildCtx.Pages {
			select {
			case <-ctx.Done():
				handle(renderOutcome{
					diagnostic: RenderDiagnostic{
						DocumentID: page.DocumentID,
						Path:       page.Document.FilePath,
						Locale:     page.Locale.Code,
						Route:      page.Route.Permalink,
						Err:        ctx.Err(),
					},
					err: ctx.Err(),
				})
				return result, ctx.Err()
			default:
				outcome := s.renderPage(ctx, siteMeta, themeCtx, buildCtx, page, manifest, baseDir)
				handle(outcome)
			}
		}
	} else {
		if err := s.renderConcurrently(ctx, siteMeta, themeCtx, buildCtx, workerCount, manifest, baseDir, handle); err != nil {
			appendError(err)
		}
	}

	if opts.DryRun {
		result.Rendered = rendered
		result.Duration = time.Since(start)
		if err := s.deps.Hooks.afterBuild(ctx, opts, result); err != nil {
			errorsSlice = append(errorsSlice, fmt.Errorf("generator: after build hook: %w", err))
		}
		if len(errorsSlice) > 0 {
			result.Errors = append(result.Errors, errorsSlice...)
			return result, errors.Join(errorsSlice...)
		}
		return result, nil
	}

	if err := s.persistPages(ctx, writer, buildCtx, rendered); err != nil {
		errorsSlice = append(errorsSlice, err)
	}

	assetSummary, err := s.copyAssets(ctx, writer, selection, buildCtx.Options, manifest, baseDir)
	if err != nil {
		errorsSlice = append(errorsSlice, err)
	} else {
		result.AssetsBuilt += assetSummary.Built
		result.AssetsSkipped += assetSummary.Skipped
	}

	if s.cfg.GenerateSitemap {
		sitemapPages := s.mergeRenderedForSitemap(buildCtx, rendered, manifest)
		if err := s.writeSitemap(ctx, writer, siteMeta, buildCtx, sitemapPages); err != nil {
			errorsSlice = append(errorsSlice, err)
		}
	}

	if s.cfg.GenerateRobots {
		if err := s.writeRobots(ctx, writer, siteMeta); err != nil {
			errorsSlice = append(errorsSlice, err)
		}
	}

	if s.cfg.GenerateFeeds {
		feedDocs := s.buildFeedDocuments(buildCtx)
		count, err := s.writeFeeds(ctx, writer, siteMeta, buildCtx, feedDocs)
		if err != nil {
			errorsSlice = append(errorsSlice, err)
		}
		result.FeedsBuilt += count
	}

	if manifest != nil && len(errorsSlice) == 0 {
		manifest.GeneratedAt = buildCtx.GeneratedAt
		sourceByID := make(map[uuid.UUID]string, len(buildCtx.Pages))
		for _, data := range buildCtx.Pages {
			if data != nil && data.Document != nil {
				sourceByID[data.DocumentID] = data.Document.FilePath
			}
		}
		for _, page := range rendered {
			if page.DocumentID == uuid.Nil || strings.TrimSpace(page.Checksum) == "" {
				continue
			}
			entry := manifestPage{
				DocumentID:   page.DocumentID.String(),
				Locale:       page.Locale,
				Source:       sourceByID[page.DocumentID],
				Route:        page.Route,
				Output:       page.Output,
				Layout:       page.Layout,
				Hash:         page.Metadata.Hash,
				Checksum:     page.Checksum,
				LastModified: page.Metadata.LastModified,
				RenderedAt:   buildCtx.GeneratedAt,
			}
			manifest.setPage(entry)
		}
		if len(opts.Paths) == 0 && len(opts.Locales) == 0 {
			manifest.prunePages(pageKeys)
			manifest.pruneAssets(assetSummary.Keys)
		}
		if err := s.persistManifest(ctx, writer, manifest); err != nil {
			errorsSlice = append(errorsSlice, err)
		}
	}

	result.Rendered = rendered
	result.Duration = time.Since(start)
	if err := s.deps.Hooks.afterBuild(ctx, opts, result); err != nil {
		errorsSlice = append(errorsSlice, fmt.Errorf("generator: after build hook: %w", err))
	}
	if len(errorsSlice) > 0 {
		result.Errors = append(result.Errors, errorsSlice...)
		return result, errors.Join(errorsSlice...)
	}
	return result, nil
}

// BuildDocument rebuilds a single source document, bypassing the incremental
// manifest so the output is always refreshed.
func (s *service) BuildDocument(ctx context.Context, docPath string, locale string) error {
	opts := BuildOptions{
		Paths: []string{docPath},
		Force: true,
	}
	if strings.TrimSpace(locale) != "" {
		opts.Locales = []string{locale}
	}
	result, err := s.Build(ctx, opts)
	if err != nil {
		return err
	}
	if result.PagesBuilt == 0 && result.PagesSkipped == 0 {
		return fmt.Errorf("generator: build document %q: %w", docPath, ErrDocumentNotFound)
	}
	return nil
}

// BuildAssets copies theme and static assets without rendering pages.
func (s *service) BuildAssets(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	opts := BuildOptions{Force: true}
	if err := s.deps.Hooks.beforeBuild(ctx, opts); err != nil {
		return fmt.Errorf("generator: before build hook: %w", err)
	}

	start := time.Now()
	selection, err := s.themeSelection()
	if err != nil {
		return fmt.Errorf("generator: theme selection: %w", err)
	}

	writer := newArtifactWriter(s.deps.Storage)
	baseDir := strings.Trim(strings.TrimSpace(s.cfg.OutputDir), "/")

	manifest, err := s.loadManifest(ctx)
	if err != nil {
		return err
	}

	result := &BuildResult{}
	summary, copyErr := s.copyAssets(ctx, writer, selection, opts, manifest, baseDir)
	if copyErr == nil {
		result.AssetsBuilt = summary.Built
		result.AssetsSkipped = summary.Skipped
		if manifest != nil {
			if err := s.persistManifest(ctx, writer, manifest); err != nil {
				copyErr = err
			}
		}
	}
	result.Duration = time.Since(start)

	if err := s.deps.Hooks.afterBuild(ctx, opts, result); err != nil {
		if copyErr != nil {
			return errors.Join(copyErr, fmt.Errorf("generator: after build hook: %w", err))
		}
		return fmt.Errorf("generator: after build hook: %w", err)
	}
	return copyErr
}

// BuildSitemap regenerates sitemap.xml from the current document corpus and
// the incremental manifest, without rendering pages.
func (s *service) BuildSitemap(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	opts := BuildOptions{}
	if err := s.deps.Hooks.beforeBuild(ctx, opts); err != nil {
		return fmt.Errorf("generator: before build hook: %w", err)
	}

	start := time.Now()
	buildCtx, err := s.loadContext(ctx, opts)
	if err != nil {
		return err
	}
	manifest, err := s.loadManifest(ctx)
	if err != nil {
		return err
	}

	siteMeta := SiteMetadata{
		Title:         strings.TrimSpace(s.cfg.SiteTitle),
		Description:   strings.TrimSpace(s.cfg.SiteDescription),
		BaseURL:       strings.TrimRight(s.cfg.BaseURL, "/"),
		DefaultLocale: buildCtx.DefaultLocale,
		Locales:       append([]LocaleSpec(nil), buildCtx.Locales...),
	}

	writer := newArtifactWriter(s.deps.Storage)
	pages := s.mergeRenderedForSitemap(buildCtx, nil, manifest)
	writeErr := s.writeSitemap(ctx, writer, siteMeta, buildCtx, pages)

	result := &BuildResult{Duration: time.Since(start)}
	for _, spec := range buildCtx.Locales {
		result.Locales = append(result.Locales, spec.Code)
	}
	if err := s.deps.Hooks.afterBuild(ctx, opts, result); err != nil {
		if writeErr != nil {
			return errors.Join(writeErr, fmt.Errorf("generator: after build hook: %w", err))
		}
		return fmt.Errorf("generator: after build hook: %w", err)
	}
	return writeErr
}

// Clean removes the output directory.
func (s *service) Clean(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	target := strings.Trim(strings.TrimSpace(s.cfg.OutputDir), "/")
	if target == "" {
		return nil
	}
	if err := s.deps.Hooks.beforeClean(ctx, target); err != nil {
		return fmt.Errorf("generator: before clean hook: %w", err)
	}
	writer := newArtifactWriter(s.deps.Storage)
	if err := writer.Remove(ctx, target); err != nil {
		return fmt.Errorf("generator: clean output: %w", err)
	}
	if err := s.deps.Hooks.afterClean(ctx, target); err != nil {
		return fmt.Errorf("generator: after clean hook: %w", err)
	}
	return nil
}

func (s *service) themeSelection() (*gotheme.Selection, error) {
	if s.deps.Themes == nil {
		return nil, nil
	}
	return s.deps.Themes.Selection(s.cfg.Theme.Name, s.cfg.Theme.Variant)
}

func (s *service) renderConcurrently(
	ctx context.Context,
	siteMeta SiteMetadata,
	themeCtx ThemeContext,
	buildCtx *BuildContext,
	workers int,
	manifest *buildManifest,
	baseDir string,
	collect func(renderOutcome),
) error {
	grouped := groupPagesByLocale(buildCtx.Pages)
	if len(grouped) == 0 {
		return nil
	}

	jobs := make(chan []*PageData)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range jobs {
				for _, page := range batch {
					select {
					case <-ctx.Done():
						collect(renderOutcome{
							diagnostic: RenderDiagnostic{
								DocumentID: page.DocumentID,
								Path:       page.Document.FilePath,
								Locale:     page.Locale.Code,
								Route:      page.Route.Permalink,
								Err:        ctx.Err(),
							},
							err: ctx.Err(),
						})
						return
					default:
						outcome := s.renderPage(ctx, siteMeta, themeCtx, buildCtx, page, manifest, baseDir)
						collect(outcome)
					}
				}
			}
		}()
	}

	for _, locale := range buildCtx.Locales {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		case jobs <- grouped[locale.Code]:
		}
	}
	close(jobs)
	wg.Wait()
	return nil
}

func (s *service) renderPage(
	ctx context.Context,
	siteMeta SiteMetadata,
	themeCtx ThemeContext,
	buildCtx *BuildContext,
	data *PageData,
	manifest *buildManifest,
	baseDir string,
) renderOutcome {
	route := data.Route.Permalink
	outcome := renderOutcome{
		diagnostic: RenderDiagnostic{
			DocumentID: data.DocumentID,
			Path:       data.Document.FilePath,
			Locale:     data.Locale.Code,
			Route:      route,
			Layout:     data.Layout,
		},
	}

	select {
	case <-ctx.Done():
		outcome.err = ctx.Err()
		outcome.diagnostic.Err = ctx.Err()
		outcome.diagnostic.Kind = classifyDiagnostic(ctx.Err())
		return outcome
	default:
	}

	if s.cfg.Incremental && manifest != nil && !buildCtx.Options.Force {
		destRel := buildOutputPath(route, data.Locale.Code, buildCtx.DefaultLocale)
		expectedOutput := joinOutputPath(baseDir, destRel)
		if manifest.shouldSkipPage(data.DocumentID, data.Locale.Code, data.Metadata.Hash, expectedOutput) {
			outcome.skipped = true
			outcome.diagnostic.Skipped = true
			return outcome
		}
	}

	localizedMeta := siteMeta
	if menus, ok := buildCtx.Menus[data.Locale.Code]; ok {
		localizedMeta.Menus = menus
	}

	templateCtx := TemplateContext{
		Site: localizedMeta,
		Page: PageRenderingContext{
			Document: data.Document,
			Title:    data.Document.FrontMatter.Title,
			Summary:  data.Document.FrontMatter.Summary,
			Content:  htmlContent(data.Content),
			Route:    data.Route,
			Layout:   data.Layout,
			Locale:   data.Locale,
			Params:   data.Document.FrontMatter.Custom,
			Metadata: data.Metadata,
		},
		Build: BuildMetadata{
			GeneratedAt: buildCtx.GeneratedAt,
			Options:     buildCtx.Options,
		},
		Theme:   themeCtx,
		Helpers: newTemplateHelpers(siteMeta.DefaultLocale, data.Locale, siteMeta.BaseURL),
	}

	start := time.Now()
	rendered, err := s.deps.Renderer.RenderTemplate(data.Layout, templateCtx)
	duration := time.Since(start)
	outcome.diagnostic.Duration = duration
	if err != nil {
		wrapped := fmt.Errorf("generator: render %s (%s): %w", data.Document.FilePath, data.Locale.Code, err)
		outcome.err = wrapped
		outcome.diagnostic.Err = wrapped
		outcome.diagnostic.Kind = classifyDiagnostic(err)
		return outcome
	}

	outcome.page = RenderedPage{
		DocumentID: data.DocumentID,
		Locale:     data.Locale.Code,
		Route:      route,
		Layout:     data.Layout,
		HTML:       rendered,
		Metadata:   data.Metadata,
		Duration:   duration,
	}
	return outcome
}

func (s *service) persistPages(
	ctx context.Context,
	writer artifactWriter,
	buildCtx *BuildContext,
	pages []RenderedPage,
) error {
	if len(pages) == 0 {
		return nil
	}
	baseDir := strings.Trim(strings.TrimSpace(s.cfg.OutputDir), "/")
	dirCache := map[string]struct{}{}
	if baseDir != "" {
		dirCache[baseDir] = struct{}{}
		if err := writer.EnsureDir(ctx, baseDir); err != nil {
			return err
		}
	}
	for i := range pages {
		route := pages[i].Route
		destRel := buildOutputPath(route, pages[i].Locale, buildCtx.DefaultLocale)
		if strings.TrimSpace(destRel) == "" {
			destRel = "index.html"
		}
		fullPath := joinOutputPath(baseDir, destRel)
		if err := ensureDir(ctx, writer, dirCache, path.Dir(fullPath)); err != nil {
			return err
		}
		checksum := computeHashFromString(pages[i].HTML)
		pages[i].Output = fullPath
		pages[i].Checksum = checksum

		metadata := map[string]string{
			"document_id": pages[i].DocumentID.String(),
			"route":       route,
		}
		if layout := strings.TrimSpace(pages[i].Layout); layout != "" {
			metadata["layout"] = layout
		}
		if s.cfg.Incremental {
			metadata["incremental"] = "true"
		}
		req := writeFileRequest{
			Path:        fullPath,
			Content:     strings.NewReader(pages[i].HTML),
			Size:        int64(len(pages[i].HTML)),
			Locale:      pages[i].Locale,
			Category:    categoryPage,
			ContentType: "text/html; charset=utf-8",
			Checksum:    checksum,
			Metadata:    metadata,
		}
		if err := writer.WriteFile(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

type assetCopySummary struct {
	Built   int
	Skipped int
	Keys    map[string]struct{}
}

// copyAssets publishes theme assets under assets/ and static files at their
// relative paths in the output root.
func (s *service) copyAssets(
	ctx context.Context,
	writer artifactWriter,
	selection *gotheme.Selection,
	opts BuildOptions,
	manifest *buildManifest,
	baseDir string,
) (assetCopySummary, error) {
	summary := assetCopySummary{Keys: map[string]struct{}{}}
	if !s.cfg.CopyAssets || s.deps.Assets == nil {
		return summary, nil
	}
	if strings.TrimSpace(baseDir) == "" {
		baseDir = strings.Trim(strings.TrimSpace(s.cfg.OutputDir), "/")
	}
	dirCache := map[string]struct{}{}
	if baseDir != "" {
		dirCache[baseDir] = struct{}{}
		if err := writer.EnsureDir(ctx, baseDir); err != nil {
			return summary, err
		}
	}

	copyOne := func(origin, name, destRel string) error {
		key := ""
		if manifest != nil {
			key = manifest.assetKey(origin, name)
			if _, ok := summary.Keys[key]; ok {
				return nil
			}
			summary.Keys[key] = struct{}{}
		}
		reader, err := s.deps.Assets.Open(ctx, origin, name)
		if err != nil {
			return err
		}
		data, err := io.ReadAll(reader)
		_ = reader.Close()
		if err != nil {
			return err
		}
		fullPath := joinOutputPath(baseDir, destRel)
		checksum := computeHash(data)
		if manifest != nil && s.cfg.Incremental && !opts.Force {
			if manifest.shouldSkipAsset(origin, name, checksum, fullPath) {
				summary.Skipped++
				return nil
			}
		}
		if err := ensureDir(ctx, writer, dirCache, path.Dir(fullPath)); err != nil {
			return err
		}
		req := writeFileRequest{
			Path:        fullPath,
			Content:     bytes.NewReader(data),
			Size:        int64(len(data)),
			Category:    categoryAsset,
			ContentType: detectAssetContentType(destRel),
			Checksum:    checksum,
			Metadata: map[string]string{
				"origin": origin,
				"asset":  name,
			},
		}
		if err := writer.WriteFile(ctx, req); err != nil {
			return err
		}
		summary.Built++
		if manifest != nil {
			manifest.setAsset(manifestAsset{
				Key:      key,
				Origin:   origin,
				Source:   name,
				Output:   fullPath,
				Checksum: checksum,
				Size:     int64(len(data)),
				CopiedAt: s.now(),
			})
		}
		return nil
	}

	if selection != nil {
		origin := strings.TrimSpace(selection.Theme)
		if origin == "" {
			origin = strings.TrimSpace(s.cfg.Theme.Name)
		}
		for _, asset := range collectThemeAssets(selection) {
			resolved, err := s.deps.Assets.ResolvePath(origin, asset)
			if err != nil {
				return summary, err
			}
			if strings.TrimSpace(resolved) == "" {
				resolved = strings.TrimLeft(strings.TrimSpace(asset), "/")
			}
			if err := copyOne(origin, asset, path.Join("assets", resolved)); err != nil {
				return summary, err
			}
		}
	}

	if strings.TrimSpace(s.cfg.StaticDir) != "" {
		names, err := s.deps.Assets.List(ctx, OriginStatic)
		if err != nil {
			return summary, err
		}
		for _, name := range names {
			if err := copyOne(OriginStatic, name, name); err != nil {
				return summary, err
			}
		}
	}

	return summary, nil
}

// mergeRenderedForSitemap combines this run's rendered pages with manifest
// entries for pages the incremental build skipped. Documents that failed and
// never built are left out so the sitemap only lists URLs that exist.
func (s *service) mergeRenderedForSitemap(
	buildCtx *BuildContext,
	rendered []RenderedPage,
	manifest *buildManifest,
) []RenderedPage {
	if buildCtx == nil {
		return append([]RenderedPage(nil), rendered...)
	}

	renderedByKey := make(map[string]RenderedPage, len(rendered))
	for _, page := range rendered {
		if manifest == nil {
			break
		}
		key := manifest.pageKey(page.DocumentID, page.Locale)
		renderedByKey[key] = page
	}
	if manifest == nil {
		return append([]RenderedPage(nil), rendered...)
	}

	sitemap := make([]RenderedPage, 0, len(buildCtx.Pages))
	for _, data := range buildCtx.Pages {
		key := manifest.pageKey(data.DocumentID, data.Locale.Code)
		if page, ok := renderedByKey[key]; ok {
			sitemap = append(sitemap, page)
			continue
		}
		if entry, ok := manifest.lookupPage(data.DocumentID, data.Locale.Code); ok {
			sitemap = append(sitemap, RenderedPage{
				DocumentID: data.DocumentID,
				Locale:     data.Locale.Code,
				Route:      entry.Route,
				Output:     entry.Output,
				Layout:     entry.Layout,
				Metadata: DependencyMetadata{
					Hash:         entry.Hash,
					LastModified: entry.LastModified,
				},
				Checksum: entry.Checksum,
			})
		}
	}
	return sitemap
}

func (s *service) loadManifest(ctx context.Context) (*buildManifest, error) {
	if s.deps.Storage == nil {
		return newBuildManifest(), nil
	}
	target := s.manifestTargetPath()
	if strings.TrimSpace(target) == "" {
		return newBuildManifest(), nil
	}
	rows, err := s.deps.Storage.Query(ctx, storageOpRead, target)
	if err != nil {
		return nil, fmt.Errorf("generator: read manifest: %w", err)
	}
	if rows == nil {
		return newBuildManifest(), nil
	}
	defer rows.Close()
	if !rows.Next() {
		return newBuildManifest(), nil
	}
	var data []byte
	if err := rows.Scan(&data); err != nil {
		return nil, fmt.Errorf("generator: scan manifest: %w", err)
	}
	manifest, err := parseManifest(data)
	if err != nil {
		return nil, err
	}
	return manifest, nil
}

func (s *service) manifestTargetPath() string {
	base := strings.Trim(strings.TrimSpace(s.cfg.OutputDir), "/")
	return joinOutputPath(base, manifestFileName)
}

func (s *service) persistManifest(ctx context.Context, writer artifactWriter, manifest *buildManifest) error {
	if manifest == nil {
		return nil
	}
	data, err := manifest.marshal()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	target := s.manifestTargetPath()
	if strings.TrimSpace(target) == "" {
		return nil
	}
	dirCache := map[string]struct{}{}
	if err := ensureDir(ctx, writer, dirCache, path.Dir(target)); err != nil {
		return err
	}
	metadata := map[string]string{
		"version": strconv.Itoa(manifest.Version),
	}
	if !manifest.GeneratedAt.IsZero() {
		metadata["generated_at"] = manifest.GeneratedAt.UTC().Format(time.RFC3339)
	}
	req := writeFileRequest{
		Path:        target,
		Content:     bytes.NewReader(data),
		Size:        int64(len(data)),
		Category:    categoryManifest,
		ContentType: "application/json",
		Checksum:    computeHash(data),
		Metadata:    metadata,
	}
	return writer.WriteFile(ctx, req)
}

func (s *service) writeSitemap(
	ctx context.Context,
	writer artifactWriter,
	siteMeta SiteMetadata,
	buildCtx *BuildContext,
	pages []RenderedPage,
) error {
	content := buildSitemap(siteMeta.BaseURL, pages, buildCtx.GeneratedAt)
	baseDir := strings.Trim(strings.TrimSpace(s.cfg.OutputDir), "/")
	fullPath := joinOutputPath(baseDir, "sitemap.xml")
	if err := ensureDir(ctx, writer, map[string]struct{}{}, path.Dir(fullPath)); err != nil {
		return err
	}
	checksum := computeHashFromString(content)
	req := writeFileRequest{
		Path:        fullPath,
		Content:     strings.NewReader(content),
		Size:        int64(len(content)),
		Category:    categorySitemap,
		ContentType: "application/xml",
		Checksum:    checksum,
		Metadata: map[string]string{
			"generated_at": buildCtx.GeneratedAt.UTC().Format(time.RFC3339),
		},
	}
	return writer.WriteFile(ctx, req)
}

func (s *service) writeRobots(
	ctx context.Context,
	writer artifactWriter,
	siteMeta SiteMetadata,
) error {
	content := buildRobots(siteMeta.BaseURL, s.cfg.GenerateSitemap)
	baseDir := strings.Trim(strings.TrimSpace(s.cfg.OutputDir), "/")
	fullPath := joinOutputPath(baseDir, "robots.txt")
	if err := ensureDir(ctx, writer, map[string]struct{}{}, path.Dir(fullPath)); err != nil {
		return err
	}
	checksum := computeHashFromString(content)
	req := writeFileRequest{
		Path:        fullPath,
		Content:     strings.NewReader(content),
		Size:        int64(len(content)),
		Category:    categoryRobots,
		ContentType: "text/plain; charset=utf-8",
		Checksum:    checksum,
		Metadata: map[string]string{
			"generated_at": s.now().UTC().Format(time.RFC3339),
		},
	}
	return writer.WriteFile(ctx, req)
}

func (s *service) effectiveWorkerCount(localeCount int) int {
	workers := s.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers < 1 {
		workers = 1
	}
	if localeCount > 0 && workers > localeCount {
		return localeCount
	}
	return workers
}

func groupPagesByLocale(pages []*PageData) map[string][]*PageData {
	grouped := make(map[string][]*PageData, len(pages))
	for _, page := range pages {
		if page == nil {
			continue
		}
		code := page.Locale.Code
		grouped[code] = append(grouped[code], page)
	}
	return grouped
}

func ensureDir(ctx context.Context, writer artifactWriter, cache map[string]struct{}, dir string) error {
	dir = strings.Trim(dir, " ")
	if dir == "" || dir == "." {
		return nil
	}
	if cache != nil {
		if _, ok := cache[dir]; ok {
			return nil
		}
		cache[dir] = struct{}{}
	}
	return writer.EnsureDir(ctx, dir)
}

func joinOutputPath(base string, rel string) string {
	if strings.TrimSpace(base) == "" {
		return strings.TrimLeft(rel, "/")
	}
	return path.Join(strings.Trim(base, "/"), rel)
}

func computeHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func computeHashFromString(content string) string {
	return computeHash([]byte(content))
}

func (disabledService) Build(context.Context, BuildOptions) (*BuildResult, error) {
	return nil, ErrServiceDisabled
}

func (disabledService) BuildDocument(context.Context, string, string) error {
	return ErrServiceDisabled
}

func (disabledService) BuildAssets(context.Context) error {
	return ErrServiceDisabled
}

func (disabledService) BuildSitemap(context.Context) error {
	return ErrServiceDisabled
}

func (disabledService) Clean(context.Context) error {
	return ErrServiceDisabled
}
