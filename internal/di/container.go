package di

import (
	"path/filepath"
	"strings"

	"github.com/goliatone/go-sitegen/internal/commands"
	sitecmd "github.com/goliatone/go-sitegen/internal/commands/site"
	"github.com/goliatone/go-sitegen/internal/generator"
	"github.com/goliatone/go-sitegen/internal/layouts"
	"github.com/goliatone/go-sitegen/internal/logging"
	"github.com/goliatone/go-sitegen/internal/logging/console"
	"github.com/goliatone/go-sitegen/internal/logging/gologger"
	"github.com/goliatone/go-sitegen/internal/markdown"
	"github.com/goliatone/go-sitegen/internal/navigation"
	"github.com/goliatone/go-sitegen/internal/routes"
	"github.com/goliatone/go-sitegen/internal/runtimeconfig"
	"github.com/goliatone/go-sitegen/internal/shortcode"
	"github.com/goliatone/go-sitegen/internal/storage"
	"github.com/goliatone/go-sitegen/pkg/interfaces"
	urlkit "github.com/goliatone/go-urlkit"
)

// Container wires module dependencies. Configuration is translated into
// concrete services once, during construction; hosts swap individual pieces
// through options.
type Container struct {
	Config runtimeconfig.Config

	loggerProvider interfaces.LoggerProvider
	renderer       interfaces.TemplateRenderer
	parser         interfaces.MarkdownParser
	genStorage     interfaces.StorageProvider
	assets         generator.AssetResolver
	hooks          generator.Hooks

	markdownSvc   *markdown.Service
	layoutEngine  *layouts.Engine
	themeSelector *layouts.ThemeSelector
	routeManager  *urlkit.RouteManager
	routeResolver *routes.Resolver
	navResolver   *navigation.Resolver
	shortcodeSvc  interfaces.ShortcodeProcessor
	generatorSvc  generator.Service

	buildHandler   *sitecmd.BuildSiteHandler
	diffHandler    *sitecmd.DiffSiteHandler
	cleanHandler   *sitecmd.CleanSiteHandler
	sitemapHandler *sitecmd.BuildSitemapHandler
}

// Option mutates the container before it is finalised.
type Option func(*Container)

// WithLoggerProvider overrides the logger provider derived from the logging
// configuration.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		c.loggerProvider = provider
	}
}

// WithGeneratorStorage overrides the storage provider build artifacts are
// written through.
func WithGeneratorStorage(sp interfaces.StorageProvider) Option {
	return func(c *Container) {
		c.genStorage = sp
	}
}

// WithTemplateRenderer overrides the default layout engine. When set, the
// layout directory is never touched and layout reloads become the host's
// responsibility.
func WithTemplateRenderer(tr interfaces.TemplateRenderer) Option {
	return func(c *Container) {
		c.renderer = tr
	}
}

// WithMarkdownParser overrides the Goldmark parser used for document bodies.
func WithMarkdownParser(mp interfaces.MarkdownParser) Option {
	return func(c *Container) {
		c.parser = mp
	}
}

// WithAssetResolver overrides the asset resolver used when copying static
// and theme assets.
func WithAssetResolver(ar generator.AssetResolver) Option {
	return func(c *Container) {
		c.assets = ar
	}
}

// WithShortcodeProcessor overrides the shortcode pipeline applied to document
// bodies before Markdown rendering.
func WithShortcodeProcessor(sp interfaces.ShortcodeProcessor) Option {
	return func(c *Container) {
		c.shortcodeSvc = sp
	}
}

// WithGeneratorService overrides the default generator service binding.
func WithGeneratorService(svc generator.Service) Option {
	return func(c *Container) {
		c.generatorSvc = svc
	}
}

// WithGeneratorHooks attaches build lifecycle hooks to the generator.
func WithGeneratorHooks(hooks generator.Hooks) Option {
	return func(c *Container) {
		c.hooks = hooks
	}
}

// NewContainer creates a container with the provided configuration.
func NewContainer(cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Container{Config: cfg}

	for _, opt := range opts {
		opt(c)
	}

	if err := c.configureLogging(); err != nil {
		return nil, err
	}
	if err := c.configureMarkdown(); err != nil {
		return nil, err
	}
	if err := c.configureLayouts(); err != nil {
		return nil, err
	}
	c.configureRoutes()
	c.configureNavigation()
	if err := c.configureShortcodes(); err != nil {
		return nil, err
	}
	c.configureStorage()
	c.configureGenerator()
	c.configureHandlers()

	return c, nil
}

func (c *Container) configureLogging() error {
	if c.loggerProvider != nil || !c.Config.Features.Logger {
		return nil
	}

	logCfg := c.Config.Logging
	switch strings.ToLower(strings.TrimSpace(logCfg.Provider)) {
	case "gologger":
		provider, err := gologger.NewProvider(gologger.Config{
			Level:     logCfg.Level,
			Format:    logCfg.Format,
			AddSource: logCfg.AddSource,
			Focus:     logCfg.Focus,
		})
		if err != nil {
			return err
		}
		c.loggerProvider = provider
	default:
		c.loggerProvider = console.NewProvider(console.Options{
			MinLevel: consoleMinLevel(logCfg.Level),
		})
	}
	return nil
}

func (c *Container) configureMarkdown() error {
	svc, err := markdown.NewService(markdown.Config{
		BasePath:       c.Config.Content.Dir,
		DefaultLocale:  c.Config.Site.DefaultLocale,
		Locales:        c.Config.Site.Locales,
		LocalePatterns: c.Config.Content.LocalePatterns,
		Pattern:        c.Config.Content.Pattern,
		Recursive:      c.Config.Content.Recursive,
		Parser: interfaces.ParseOptions{
			Extensions: c.Config.Markdown.Extensions,
			Sanitize:   c.Config.Markdown.Sanitize,
			HardWraps:  c.Config.Markdown.HardWraps,
			SafeMode:   c.Config.Markdown.SafeMode,
			HeadingIDs: c.Config.Markdown.HeadingIDs,
		},
	}, c.parser)
	if err != nil {
		return err
	}
	c.markdownSvc = svc
	return nil
}

func (c *Container) configureLayouts() error {
	if c.renderer == nil {
		engine, err := layouts.NewEngine(layouts.Config{
			Dir:     c.Config.Layouts.Dir,
			Default: c.Config.Layouts.Default,
		})
		if err != nil {
			return err
		}
		c.layoutEngine = engine
		c.renderer = engine
	}

	if c.Config.Features.Themes {
		c.themeSelector = layouts.NewThemeSelector(layouts.ThemeOptions{
			BasePath:       c.Config.Theme.BasePath,
			DefaultTheme:   c.Config.Theme.Name,
			DefaultVariant: c.Config.Theme.Variant,
		}, nil)
	}
	return nil
}

func (c *Container) configureRoutes() {
	routesCfg := routes.Config{
		DefaultGroup:  strings.TrimSpace(c.Config.Routes.DefaultGroup),
		LocaleGroups:  c.Config.Routes.LocaleGroups,
		SectionRoutes: c.Config.Routes.SectionRoutes,
	}

	if len(c.Config.Routes.Groups) > 0 {
		manager := urlkit.NewRouteManager(&urlkit.Config{
			Groups: routeGroups(c.Config.Routes.Groups, c.Config.Site.BaseURL),
		})
		c.routeManager = manager
		routesCfg.Manager = manager
	}

	c.routeResolver = routes.NewResolver(routesCfg)
}

func (c *Container) configureNavigation() {
	if !c.Config.Features.Navigation {
		return
	}

	menus := make(map[string][]navigation.Item, len(c.Config.Navigation.Menus))
	for name, items := range c.Config.Navigation.Menus {
		menus[name] = menuItems(items)
	}

	c.navResolver = navigation.NewResolver(
		navigation.Config{Menus: menus},
		c.routeResolver,
		logging.NavigationLogger(c.loggerProvider),
	)
}

func (c *Container) configureShortcodes() error {
	if c.shortcodeSvc != nil {
		return nil
	}
	if !c.Config.Features.Shortcodes {
		c.shortcodeSvc = shortcode.NewNoOpProcessor()
		return nil
	}

	registry := shortcode.NewRegistry(shortcode.NewValidator())
	if err := shortcode.RegisterBuiltIns(registry, nil); err != nil {
		return err
	}
	c.shortcodeSvc = shortcode.NewService(
		registry,
		shortcode.WithLogger(logging.ShortcodeLogger(c.loggerProvider)),
	)
	return nil
}

func (c *Container) configureStorage() {
	if c.genStorage == nil {
		outputDir := strings.TrimSpace(c.Config.Generator.OutputDir)
		// Build artifact paths carry the output directory with leading and
		// trailing slashes trimmed, so the storage base must match that form.
		c.genStorage = storage.NewFilesystemStorage(outputDir, strings.Trim(outputDir, "/"))
	}

	if c.assets != nil || !c.Config.Generator.CopyAssets {
		return
	}

	resolver := generator.NewDirAssetResolver()
	if staticDir := strings.TrimSpace(c.Config.Generator.StaticDir); staticDir != "" {
		resolver.Mount(generator.OriginStatic, staticDir)
	}
	if c.themeSelector != nil {
		if theme := strings.TrimSpace(c.Config.Theme.Name); theme != "" {
			resolver.Mount(theme, filepath.Join(c.themeSelector.ThemePath(theme), "assets"))
		}
	}
	c.assets = resolver
}

func (c *Container) configureGenerator() {
	if c.generatorSvc != nil {
		return
	}
	if !c.Config.Enabled {
		c.generatorSvc = generator.NewDisabledService()
		return
	}

	deps := generator.Dependencies{
		Documents:  c.markdownSvc,
		Routes:     c.routeResolver,
		Shortcodes: c.shortcodeSvc,
		Renderer:   c.renderer,
		Storage:    c.genStorage,
		Assets:     c.assets,
		Logger:     logging.GeneratorLogger(c.loggerProvider),
		Hooks:      c.hooks,
	}
	if c.navResolver != nil {
		deps.Navigation = c.navResolver
	}
	if c.themeSelector != nil {
		deps.Themes = c.themeSelector
	}

	c.generatorSvc = generator.NewService(generator.Config{
		OutputDir:         c.Config.Generator.OutputDir,
		BaseURL:           c.Config.Site.BaseURL,
		SiteTitle:         c.Config.Site.Title,
		SiteDescription:   c.Config.Site.Description,
		SiteParams:        c.Config.Site.Params,
		CleanBuild:        c.Config.Generator.CleanBuild,
		Incremental:       c.Config.Generator.Incremental,
		CopyAssets:        c.Config.Generator.CopyAssets,
		StaticDir:         c.Config.Generator.StaticDir,
		GenerateSitemap:   c.Config.Generator.GenerateSitemap,
		GenerateRobots:    c.Config.Generator.GenerateRobots,
		GenerateFeeds:     c.Config.Generator.GenerateFeeds,
		Workers:           c.Config.Generator.Workers,
		DefaultLocale:     c.Config.Site.DefaultLocale,
		Locales:           c.Config.Site.Locales,
		FrontMatterSchema: c.Config.FrontMatter.Schema,
		StrictFrontMatter: c.Config.FrontMatter.Strict,
		Theme: generator.ThemeSettings{
			Name:              c.Config.Theme.Name,
			Variant:           c.Config.Theme.Variant,
			CSSVariablePrefix: c.Config.Theme.CSSVariablePrefix,
			PartialFallbacks:  c.Config.Theme.PartialFallbacks,
		},
	}, deps)
}

func (c *Container) configureHandlers() {
	logger := commands.CommandLogger(c.loggerProvider, "site")
	gates := sitecmd.FeatureGates{
		GeneratorEnabled: func() bool { return c.Config.Enabled },
	}
	timeout := c.Config.Generator.RenderTimeout.Std()

	buildOpts := []commands.HandlerOption[sitecmd.BuildSiteCommand]{}
	diffOpts := []commands.HandlerOption[sitecmd.DiffSiteCommand]{}
	if timeout > 0 {
		buildOpts = append(buildOpts, commands.WithTimeout[sitecmd.BuildSiteCommand](timeout))
		diffOpts = append(diffOpts, commands.WithTimeout[sitecmd.DiffSiteCommand](timeout))
	}

	c.buildHandler = sitecmd.NewBuildSiteHandler(c.generatorSvc, logger, gates, buildOpts...)
	c.diffHandler = sitecmd.NewDiffSiteHandler(c.generatorSvc, logger, gates, diffOpts...)
	c.cleanHandler = sitecmd.NewCleanSiteHandler(c.generatorSvc, logger, gates)
	c.sitemapHandler = sitecmd.NewBuildSitemapHandler(c.generatorSvc, logger, gates)
}

// LoggerProvider exposes the configured logger provider. It is nil when the
// logging feature is disabled and no override was supplied.
func (c *Container) LoggerProvider() interfaces.LoggerProvider {
	return c.loggerProvider
}

// MarkdownService exposes the configured Markdown service.
func (c *Container) MarkdownService() *markdown.Service {
	return c.markdownSvc
}

// TemplateRenderer exposes the configured template renderer.
func (c *Container) TemplateRenderer() interfaces.TemplateRenderer {
	return c.renderer
}

// LayoutEngine exposes the default layout engine. It is nil when a custom
// template renderer was supplied.
func (c *Container) LayoutEngine() *layouts.Engine {
	return c.layoutEngine
}

// ThemeSelector exposes the theme selector, nil unless themes are enabled.
func (c *Container) ThemeSelector() *layouts.ThemeSelector {
	return c.themeSelector
}

// RouteManager exposes the urlkit manager built from the routes configuration.
func (c *Container) RouteManager() *urlkit.RouteManager {
	return c.routeManager
}

// RouteResolver exposes the configured route resolver.
func (c *Container) RouteResolver() *routes.Resolver {
	return c.routeResolver
}

// NavigationResolver exposes the menu resolver, nil unless navigation is
// enabled.
func (c *Container) NavigationResolver() *navigation.Resolver {
	return c.navResolver
}

// ShortcodeProcessor exposes the configured shortcode pipeline.
func (c *Container) ShortcodeProcessor() interfaces.ShortcodeProcessor {
	return c.shortcodeSvc
}

// GeneratorStorage exposes the storage provider build artifacts flow through.
func (c *Container) GeneratorStorage() interfaces.StorageProvider {
	return c.genStorage
}

// AssetResolver exposes the configured asset resolver.
func (c *Container) AssetResolver() generator.AssetResolver {
	return c.assets
}

// Generator returns the configured generator service.
func (c *Container) Generator() generator.Service {
	return c.generatorSvc
}

// BuildHandler returns the site build command handler.
func (c *Container) BuildHandler() *sitecmd.BuildSiteHandler {
	return c.buildHandler
}

// DiffHandler returns the dry-run build command handler.
func (c *Container) DiffHandler() *sitecmd.DiffSiteHandler {
	return c.diffHandler
}

// CleanHandler returns the output clean command handler.
func (c *Container) CleanHandler() *sitecmd.CleanSiteHandler {
	return c.cleanHandler
}

// SitemapHandler returns the sitemap build command handler.
func (c *Container) SitemapHandler() *sitecmd.BuildSitemapHandler {
	return c.sitemapHandler
}

func consoleMinLevel(level string) *console.Level {
	var min console.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		min = console.LevelTrace
	case "debug":
		min = console.LevelDebug
	case "info":
		min = console.LevelInfo
	case "warn", "warning":
		min = console.LevelWarn
	case "error":
		min = console.LevelError
	case "fatal":
		min = console.LevelFatal
	default:
		return nil
	}
	return &min
}

func routeGroups(groups []runtimeconfig.RouteGroupConfig, baseURL string) []urlkit.GroupConfig {
	converted := make([]urlkit.GroupConfig, 0, len(groups))
	for _, group := range groups {
		groupBase := strings.TrimSpace(group.BaseURL)
		if groupBase == "" {
			groupBase = strings.TrimSpace(baseURL)
		}
		converted = append(converted, urlkit.GroupConfig{
			Name:    group.Name,
			BaseURL: groupBase,
			Path:    group.Path,
			Paths:   group.Paths,
			Groups:  routeGroups(group.Groups, ""),
		})
	}
	return converted
}

func menuItems(items []runtimeconfig.MenuItemConfig) []navigation.Item {
	converted := make([]navigation.Item, 0, len(items))
	for _, item := range items {
		converted = append(converted, navigation.Item{
			Label:    item.Label,
			URL:      item.URL,
			Route:    item.Route,
			Params:   item.Params,
			Children: menuItems(item.Children),
		})
	}
	return converted
}
