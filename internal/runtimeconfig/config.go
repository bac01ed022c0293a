package runtimeconfig

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrThemesFeatureRequired indicates inconsistent theme configuration.
var ErrThemesFeatureRequired = errors.New("sitegen config: themes feature must be enabled to configure a theme")

// ErrNavigationFeatureRequired indicates menus were configured with the navigation feature off.
var ErrNavigationFeatureRequired = errors.New("sitegen config: navigation feature must be enabled to configure menus")

var ErrContentDirRequired = errors.New("sitegen config: content directory is required")
var ErrLayoutDirRequired = errors.New("sitegen config: layout directory is required")
var ErrOutputDirRequired = errors.New("sitegen config: output directory is required")
var ErrDefaultLayoutRequired = errors.New("sitegen config: default layout is required")
var ErrWorkersInvalid = errors.New("sitegen config: generator workers must be zero or positive")
var ErrLoggingProviderRequired = errors.New("sitegen config: logging provider is required when logging feature is enabled")
var ErrLoggingProviderUnknown = errors.New("sitegen config: logging provider is invalid")
var ErrLoggingLevelInvalid = errors.New("sitegen config: logging level is invalid")
var ErrLoggingFormatInvalid = errors.New("sitegen config: logging format is invalid")

// Config aggregates feature flags and behaviour bindings for the sitegen module.
// Fields intentionally use simple types so host applications can extend them
// later; yaml tags allow the same structs to be hydrated from a site config
// file via LoadFile.
type Config struct {
	Enabled     bool              `yaml:"enabled"`
	Site        SiteConfig        `yaml:"site"`
	Content     ContentConfig     `yaml:"content"`
	Markdown    MarkdownConfig    `yaml:"markdown"`
	Layouts     LayoutConfig      `yaml:"layouts"`
	Theme       ThemeConfig       `yaml:"theme"`
	Generator   GeneratorConfig   `yaml:"generator"`
	Routes      RoutesConfig      `yaml:"routes"`
	Navigation  NavigationConfig  `yaml:"navigation"`
	FrontMatter FrontMatterConfig `yaml:"front_matter"`
	Watch       WatchConfig       `yaml:"watch"`
	Server      ServerConfig      `yaml:"server"`
	Features    Features          `yaml:"features"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// SiteConfig captures site-wide metadata surfaced to layout templates.
type SiteConfig struct {
	Title         string         `yaml:"title"`
	Description   string         `yaml:"description"`
	BaseURL       string         `yaml:"base_url"`
	DefaultLocale string         `yaml:"default_locale"`
	Locales       []string       `yaml:"locales"`
	Params        map[string]any `yaml:"params"`
}

// ContentConfig captures filesystem behaviour for Markdown discovery.
type ContentConfig struct {
	Dir            string            `yaml:"dir"`
	Pattern        string            `yaml:"pattern"`
	Recursive      bool              `yaml:"recursive"`
	LocalePatterns map[string]string `yaml:"locale_patterns"`
}

// MarkdownConfig mirrors interfaces.ParseOptions for runtime configuration.
type MarkdownConfig struct {
	Extensions []string `yaml:"extensions"`
	Sanitize   bool     `yaml:"sanitize"`
	HardWraps  bool     `yaml:"hard_wraps"`
	SafeMode   bool     `yaml:"safe_mode"`
	HeadingIDs bool     `yaml:"heading_ids"`
}

// LayoutConfig captures where layout templates live and which one applies when
// a document does not name its own.
type LayoutConfig struct {
	Dir     string `yaml:"dir"`
	Default string `yaml:"default"`
}

// ThemeConfig captures configuration for the optional theme layer.
type ThemeConfig struct {
	BasePath          string            `yaml:"base_path"`
	Name              string            `yaml:"name"`
	Variant           string            `yaml:"variant"`
	CSSVariablePrefix string            `yaml:"css_variable_prefix"`
	PartialFallbacks  map[string]string `yaml:"partial_fallbacks"`
}

// GeneratorConfig captures behaviour for site builds.
type GeneratorConfig struct {
	OutputDir       string   `yaml:"output_dir"`
	CleanBuild      bool     `yaml:"clean_build"`
	Incremental     bool     `yaml:"incremental"`
	CopyAssets      bool     `yaml:"copy_assets"`
	StaticDir       string   `yaml:"static_dir"`
	GenerateSitemap bool     `yaml:"generate_sitemap"`
	GenerateRobots  bool     `yaml:"generate_robots"`
	GenerateFeeds   bool     `yaml:"generate_feeds"`
	Workers         int      `yaml:"workers"`
	RenderTimeout   Duration `yaml:"render_timeout"`
}

// RoutesConfig captures permalink route templates. Groups follow the urlkit
// group/path shape; SectionRoutes maps a content section (top-level directory)
// onto a named route inside DefaultGroup.
type RoutesConfig struct {
	Groups        []RouteGroupConfig `yaml:"groups"`
	DefaultGroup  string             `yaml:"default_group"`
	LocaleGroups  map[string]string  `yaml:"locale_groups"`
	SectionRoutes map[string]string  `yaml:"section_routes"`
}

// RouteGroupConfig mirrors a urlkit group so route templates can be declared
// in the site config file.
type RouteGroupConfig struct {
	Name    string             `yaml:"name"`
	BaseURL string             `yaml:"base_url"`
	Path    string             `yaml:"path"`
	Paths   map[string]string  `yaml:"paths"`
	Groups  []RouteGroupConfig `yaml:"groups"`
}

// NavigationConfig captures config-defined menus rendered by layouts.
type NavigationConfig struct {
	Menus map[string][]MenuItemConfig `yaml:"menus"`
}

// MenuItemConfig declares one navigation entry. Either URL or Route (plus
// optional Params) identifies the target.
type MenuItemConfig struct {
	Label    string            `yaml:"label"`
	URL      string            `yaml:"url"`
	Route    string            `yaml:"route"`
	Params   map[string]string `yaml:"params"`
	Children []MenuItemConfig  `yaml:"children"`
}

// FrontMatterConfig captures schema validation behaviour for document metadata.
type FrontMatterConfig struct {
	Schema map[string]any `yaml:"schema"`
	Strict bool           `yaml:"strict"`
}

// WatchConfig captures content watcher behaviour.
type WatchConfig struct {
	Debounce Duration `yaml:"debounce"`
}

// ServerConfig captures preview server behaviour.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Features toggles module functionality.
type Features struct {
	Themes     bool `yaml:"themes"`
	Navigation bool `yaml:"navigation"`
	Shortcodes bool `yaml:"shortcodes"`
	Logger     bool `yaml:"logger"`
}

// LoggingConfig captures provider-specific options for runtime logging.
type LoggingConfig struct {
	Provider  string   `yaml:"provider"`
	Level     string   `yaml:"level"`
	Format    string   `yaml:"format"`
	AddSource bool     `yaml:"add_source"`
	Focus     []string `yaml:"focus"`
}

// DefaultConfig returns opinionated defaults for a conventional site tree:
// Markdown under content/, templates under layouts/, output under dist/.
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		Site: SiteConfig{
			DefaultLocale: "en",
			Locales:       []string{"en"},
			Params:        map[string]any{},
		},
		Content: ContentConfig{
			Dir:            "content",
			Pattern:        "*.md",
			Recursive:      true,
			LocalePatterns: map[string]string{},
		},
		Markdown: MarkdownConfig{},
		Layouts: LayoutConfig{
			Dir:     "layouts",
			Default: "default",
		},
		Theme: ThemeConfig{
			BasePath: "themes",
		},
		Generator: GeneratorConfig{
			OutputDir:       "dist",
			CleanBuild:      true,
			Incremental:     false,
			CopyAssets:      true,
			StaticDir:       "static",
			GenerateSitemap: true,
			GenerateRobots:  false,
			GenerateFeeds:   false,
			Workers:         0,
			RenderTimeout:   0,
		},
		Routes: RoutesConfig{
			SectionRoutes: map[string]string{},
		},
		Navigation: NavigationConfig{
			Menus: map[string][]MenuItemConfig{},
		},
		FrontMatter: FrontMatterConfig{},
		Watch: WatchConfig{
			Debounce: Duration(200 * time.Millisecond),
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Features: Features{},
		Logging: LoggingConfig{
			Provider: "console",
			Level:    "info",
			Format:   "",
		},
	}
}

// Validate performs high-level consistency checks.
func (cfg Config) Validate() error {
	if strings.TrimSpace(cfg.Content.Dir) == "" {
		return ErrContentDirRequired
	}
	if strings.TrimSpace(cfg.Layouts.Dir) == "" {
		return ErrLayoutDirRequired
	}
	if strings.TrimSpace(cfg.Layouts.Default) == "" {
		return ErrDefaultLayoutRequired
	}
	if strings.TrimSpace(cfg.Generator.OutputDir) == "" {
		return ErrOutputDirRequired
	}
	if cfg.Generator.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrWorkersInvalid, cfg.Generator.Workers)
	}
	if !cfg.Features.Themes {
		if strings.TrimSpace(cfg.Theme.Name) != "" {
			return ErrThemesFeatureRequired
		}
	}
	if !cfg.Features.Navigation {
		if len(cfg.Navigation.Menus) > 0 {
			return ErrNavigationFeatureRequired
		}
	}
	if cfg.Features.Logger {
		provider := normalizeProvider(cfg.Logging.Provider)
		if provider == "" {
			return ErrLoggingProviderRequired
		}
		if !isSupportedProvider(provider) {
			return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
		}
		if level := strings.TrimSpace(cfg.Logging.Level); level != "" && !isSupportedLevel(level) {
			return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
		}
		if provider == "gologger" {
			if format := strings.TrimSpace(cfg.Logging.Format); format != "" && !isSupportedFormat(format) {
				return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
			}
		}
	}
	return nil
}

func normalizeProvider(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}

func isSupportedProvider(provider string) bool {
	switch provider {
	case "console", "gologger":
		return true
	default:
		return false
	}
}

func isSupportedLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "console", "pretty":
		return true
	default:
		return false
	}
}
