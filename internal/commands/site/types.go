package sitecmd

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-sitegen/internal/generator"
)

const (
	buildSiteMessageType   = "sitegen.site.build"
	diffSiteMessageType    = "sitegen.site.diff"
	cleanSiteMessageType   = "sitegen.site.clean"
	sitemapSiteMessageType = "sitegen.site.sitemap"
)

// ResultCallback receives build results produced by generator operations. The callback is optional
// and is invoked synchronously from the handler when a BuildResult is available.
type ResultCallback func(ResultEnvelope)

// ResultEnvelope captures the outcome of a site command execution that generated a BuildResult.
type ResultEnvelope struct {
	Result   *generator.BuildResult
	Metadata map[string]any
}

// BuildSiteCommand executes a generator build using the provided filters.
type BuildSiteCommand struct {
	Paths          []string       `json:"paths,omitempty"`
	Locales        []string       `json:"locales,omitempty"`
	Force          bool           `json:"force,omitempty"`
	DryRun         bool           `json:"dry_run,omitempty"`
	IncludeDrafts  bool           `json:"include_drafts,omitempty"`
	AssetsOnly     bool           `json:"assets_only,omitempty"`
	ResultCallback ResultCallback `json:"-"`
}

// Type implements command.Message.
func (BuildSiteCommand) Type() string { return buildSiteMessageType }

// Validate ensures locales and document path filters are well-formed.
func (m BuildSiteCommand) Validate() error {
	errs := validation.Errors{}
	if err := validateLocales(m.Locales, "sitegen.site.build.locale_invalid"); err != nil {
		errs["locales"] = err
	}
	if err := validatePaths(m.Paths, "sitegen.site.build.path_invalid"); err != nil {
		errs["paths"] = err
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// DiffSiteCommand performs a dry-run build to surface differences without writing artifacts.
type DiffSiteCommand struct {
	Paths          []string       `json:"paths,omitempty"`
	Locales        []string       `json:"locales,omitempty"`
	Force          bool           `json:"force,omitempty"`
	IncludeDrafts  bool           `json:"include_drafts,omitempty"`
	ResultCallback ResultCallback `json:"-"`
}

// Type implements command.Message.
func (DiffSiteCommand) Type() string { return diffSiteMessageType }

// Validate ensures locales and document path filters are well-formed.
func (m DiffSiteCommand) Validate() error {
	errs := validation.Errors{}
	if err := validateLocales(m.Locales, "sitegen.site.diff.locale_invalid"); err != nil {
		errs["locales"] = err
	}
	if err := validatePaths(m.Paths, "sitegen.site.diff.path_invalid"); err != nil {
		errs["paths"] = err
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// CleanSiteCommand clears generator artifacts from the configured storage backend.
type CleanSiteCommand struct{}

// Type implements command.Message.
func (CleanSiteCommand) Type() string { return cleanSiteMessageType }

// Validate satisfies command.Message; there are no payload constraints.
func (CleanSiteCommand) Validate() error { return nil }

// BuildSitemapCommand regenerates the sitemap and robots artifacts from the
// current document corpus without rewriting pages.
type BuildSitemapCommand struct{}

// Type implements command.Message.
func (BuildSitemapCommand) Type() string { return sitemapSiteMessageType }

// Validate satisfies command.Message; there are no payload constraints.
func (BuildSitemapCommand) Validate() error { return nil }

// FeatureGates exposes runtime switches used to guard handler execution.
type FeatureGates struct {
	GeneratorEnabled func() bool
}

func (g FeatureGates) generatorEnabled() bool {
	if g.GeneratorEnabled == nil {
		return false
	}
	return g.GeneratorEnabled()
}

func validateLocales(locales []string, code string) error {
	for _, locale := range locales {
		if strings.TrimSpace(locale) == "" {
			return validation.NewError(code, "locales must not contain empty values")
		}
	}
	return nil
}

func validatePaths(paths []string, code string) error {
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			return validation.NewError(code, "paths must not contain empty values")
		}
	}
	return nil
}
