package sitegen

import "github.com/goliatone/go-sitegen/internal/runtimeconfig"

// DefaultConfigFile is the file name the CLI scans for when no explicit
// config path is supplied.
const DefaultConfigFile = runtimeconfig.DefaultConfigFile

var (
	ErrConfigFileNotFound        = runtimeconfig.ErrConfigFileNotFound
	ErrThemesFeatureRequired     = runtimeconfig.ErrThemesFeatureRequired
	ErrNavigationFeatureRequired = runtimeconfig.ErrNavigationFeatureRequired
	ErrContentDirRequired        = runtimeconfig.ErrContentDirRequired
	ErrLayoutDirRequired         = runtimeconfig.ErrLayoutDirRequired
	ErrOutputDirRequired         = runtimeconfig.ErrOutputDirRequired
	ErrDefaultLayoutRequired     = runtimeconfig.ErrDefaultLayoutRequired
	ErrWorkersInvalid            = runtimeconfig.ErrWorkersInvalid
	ErrLoggingProviderRequired   = runtimeconfig.ErrLoggingProviderRequired
	ErrLoggingProviderUnknown    = runtimeconfig.ErrLoggingProviderUnknown
	ErrLoggingLevelInvalid       = runtimeconfig.ErrLoggingLevelInvalid
	ErrLoggingFormatInvalid      = runtimeconfig.ErrLoggingFormatInvalid
)

type (
	Config            = runtimeconfig.Config
	SiteConfig        = runtimeconfig.SiteConfig
	ContentConfig     = runtimeconfig.ContentConfig
	MarkdownConfig    = runtimeconfig.MarkdownConfig
	LayoutConfig      = runtimeconfig.LayoutConfig
	ThemeConfig       = runtimeconfig.ThemeConfig
	GeneratorConfig   = runtimeconfig.GeneratorConfig
	RoutesConfig      = runtimeconfig.RoutesConfig
	RouteGroupConfig  = runtimeconfig.RouteGroupConfig
	NavigationConfig  = runtimeconfig.NavigationConfig
	MenuItemConfig    = runtimeconfig.MenuItemConfig
	FrontMatterConfig = runtimeconfig.FrontMatterConfig
	WatchConfig       = runtimeconfig.WatchConfig
	ServerConfig      = runtimeconfig.ServerConfig
	Features          = runtimeconfig.Features
	LoggingConfig     = runtimeconfig.LoggingConfig
	Duration          = runtimeconfig.Duration
)

func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}

// LoadConfig reads a YAML site configuration file.
func LoadConfig(path string) (Config, error) {
	return runtimeconfig.LoadFile(path)
}

// LoadConfigIfPresent reads a YAML site configuration file, returning
// defaults when the file does not exist.
func LoadConfigIfPresent(path string) (Config, error) {
	return runtimeconfig.LoadFileIfPresent(path)
}
