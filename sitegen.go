package sitegen

import (
	sitecmd "github.com/goliatone/go-sitegen/internal/commands/site"
	"github.com/goliatone/go-sitegen/internal/di"
	"github.com/goliatone/go-sitegen/internal/generator"
	"github.com/goliatone/go-sitegen/internal/layouts"
	"github.com/goliatone/go-sitegen/internal/navigation"
	"github.com/goliatone/go-sitegen/internal/routes"
	"github.com/goliatone/go-sitegen/pkg/interfaces"
)

// GeneratorService exports the static site generator contract.
type GeneratorService = generator.Service

// BuildOptions exports the generator build options.
type BuildOptions = generator.BuildOptions

// BuildResult exports the generator build summary.
type BuildResult = generator.BuildResult

// RenderedPage exports the per-page build record.
type RenderedPage = generator.RenderedPage

// RenderDiagnostic exports the per-document failure record builds collect.
type RenderDiagnostic = generator.RenderDiagnostic

// GeneratorHooks exports the build lifecycle hooks.
type GeneratorHooks = generator.Hooks

// MarkdownService exports the document loading and rendering contract.
type MarkdownService = interfaces.MarkdownService

// TemplateRenderer exports the layout rendering contract.
type TemplateRenderer = interfaces.TemplateRenderer

// ShortcodeProcessor exports the shortcode expansion contract.
type ShortcodeProcessor = interfaces.ShortcodeProcessor

// RouteResolver exports the permalink resolver.
type RouteResolver = routes.Resolver

// NavigationResolver exports the config-menu resolver.
type NavigationResolver = navigation.Resolver

// LayoutEngine exports the html/template layout engine.
type LayoutEngine = layouts.Engine

// ThemeSelector exports the theme manifest selector.
type ThemeSelector = layouts.ThemeSelector

// BuildCommand exports the site build command message.
type BuildCommand = sitecmd.BuildSiteCommand

// DiffCommand exports the dry-run build command message.
type DiffCommand = sitecmd.DiffSiteCommand

// CleanCommand exports the output clean command message.
type CleanCommand = sitecmd.CleanSiteCommand

// SitemapCommand exports the sitemap build command message.
type SitemapCommand = sitecmd.BuildSitemapCommand

// ResultEnvelope exports the command result callback payload.
type ResultEnvelope = sitecmd.ResultEnvelope

// Generator sentinels re-exported for hosts that branch on build outcomes.
var (
	ErrServiceDisabled  = generator.ErrServiceDisabled
	ErrDocumentNotFound = generator.ErrDocumentNotFound
)

// Commands groups the command handlers the module registers for dispatch.
type Commands struct {
	Build   *sitecmd.BuildSiteHandler
	Diff    *sitecmd.DiffSiteHandler
	Clean   *sitecmd.CleanSiteHandler
	Sitemap *sitecmd.BuildSitemapHandler
}

// Module represents the top level site generator runtime façade.
type Module struct {
	container *di.Container
}

// New constructs a module using the provided configuration and optional DI
// overrides.
func New(cfg Config, opts ...di.Option) (*Module, error) {
	container, err := di.NewContainer(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Module{container: container}, nil
}

// Container exposes the underlying DI container for advanced integrations.
func (m *Module) Container() *di.Container {
	return m.container
}

// Generator returns the configured generator service.
func (m *Module) Generator() GeneratorService {
	return m.container.Generator()
}

// Markdown returns the configured markdown service.
func (m *Module) Markdown() MarkdownService {
	return m.container.MarkdownService()
}

// Layouts returns the configured template renderer.
func (m *Module) Layouts() TemplateRenderer {
	return m.container.TemplateRenderer()
}

// Routes returns the configured route resolver.
func (m *Module) Routes() *RouteResolver {
	return m.container.RouteResolver()
}

// Navigation returns the configured menu resolver. It is nil unless the
// navigation feature is enabled.
func (m *Module) Navigation() *NavigationResolver {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.NavigationResolver()
}

// Shortcodes returns the configured shortcode processor.
func (m *Module) Shortcodes() ShortcodeProcessor {
	return m.container.ShortcodeProcessor()
}

// Themes returns the theme selector, nil unless the themes feature is
// enabled.
func (m *Module) Themes() *ThemeSelector {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.ThemeSelector()
}

// Commands returns the command handlers for the generator operations.
func (m *Module) Commands() Commands {
	return Commands{
		Build:   m.container.BuildHandler(),
		Diff:    m.container.DiffHandler(),
		Clean:   m.container.CleanHandler(),
		Sitemap: m.container.SitemapHandler(),
	}
}

// Logger returns the configured logger provider. It is nil when the logging
// feature is disabled and no override was supplied.
func (m *Module) Logger() interfaces.LoggerProvider {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.LoggerProvider()
}
