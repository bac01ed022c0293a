package bootstrap

import (
	"fmt"
	"strings"

	sitegen "github.com/goliatone/go-sitegen"
	"github.com/goliatone/go-sitegen/internal/di"
	"github.com/goliatone/go-sitegen/pkg/interfaces"
)

// Options captures the config file location and flag overrides for CLI bootstraps.
type Options struct {
	ConfigPath     string
	ContentDir     string
	OutputDir      string
	LayoutsDir     string
	BaseURL        string
	ServerAddr     string
	LoggerProvider interfaces.LoggerProvider
}

// Resources wraps the constructed module together with the effective
// configuration it was built from.
type Resources struct {
	Module *sitegen.Module
	Config sitegen.Config
}

// BuildModule loads configuration, overlays the flag overrides, and
// constructs a sitegen module. An explicit config path must exist; without
// one the conventional sitegen.yaml is used when present and defaults apply
// otherwise.
func BuildModule(opts Options) (*Resources, error) {
	var (
		cfg sitegen.Config
		err error
	)
	if path := strings.TrimSpace(opts.ConfigPath); path != "" {
		cfg, err = sitegen.LoadConfig(path)
	} else {
		cfg, err = sitegen.LoadConfigIfPresent(sitegen.DefaultConfigFile)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if dir := strings.TrimSpace(opts.ContentDir); dir != "" {
		cfg.Content.Dir = dir
	}
	if dir := strings.TrimSpace(opts.OutputDir); dir != "" {
		cfg.Generator.OutputDir = dir
	}
	if dir := strings.TrimSpace(opts.LayoutsDir); dir != "" {
		cfg.Layouts.Dir = dir
	}
	if baseURL := strings.TrimSpace(opts.BaseURL); baseURL != "" {
		cfg.Site.BaseURL = baseURL
	}
	if addr := strings.TrimSpace(opts.ServerAddr); addr != "" {
		cfg.Server.Addr = addr
	}

	diOpts := []di.Option{}
	if opts.LoggerProvider != nil {
		diOpts = append(diOpts, di.WithLoggerProvider(opts.LoggerProvider))
	}

	module, err := sitegen.New(cfg, diOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise sitegen module: %w", err)
	}

	return &Resources{
		Module: module,
		Config: cfg,
	}, nil
}

// SplitList parses a comma separated value list into a trimmed slice.
func SplitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
