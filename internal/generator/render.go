package generator

import (
	"errors"
	"html/template"
	"strings"
	"time"

	"github.com/goliatone/go-sitegen/internal/layouts"
	"github.com/goliatone/go-sitegen/internal/markdown"
	"github.com/goliatone/go-sitegen/internal/navigation"
	"github.com/goliatone/go-sitegen/internal/routes"
	"github.com/goliatone/go-sitegen/internal/validation"
	"github.com/goliatone/go-sitegen/pkg/interfaces"
	gotheme "github.com/goliatone/go-theme"
	"github.com/google/uuid"
)

// TemplateContext captures the data contract passed to TemplateRenderer implementations.
type TemplateContext struct {
	Site    SiteMetadata
	Page    PageRenderingContext
	Build   BuildMetadata
	Theme   ThemeContext
	Helpers TemplateHelpers
}

// SiteMetadata exposes site wide information required by templates.
type SiteMetadata struct {
	Title         string
	Description   string
	BaseURL       string
	DefaultLocale string
	Locales       []LocaleSpec
	Menus         map[string][]navigation.Node
	Params        map[string]any
}

// BuildMetadata surfaces high level build information to templates.
type BuildMetadata struct {
	GeneratedAt time.Time
	Options     BuildOptions
}

// PageRenderingContext contains the resolved data for a single document and
// locale combination. Content carries the rendered Markdown body; templates
// embed it without further escaping.
type PageRenderingContext struct {
	Document *interfaces.Document
	Title    string
	Summary  string
	Content  template.HTML
	Route    routes.Route
	Layout   string
	Locale   LocaleSpec
	Params   map[string]any
	Metadata DependencyMetadata
}

// ThemeContext surfaces go-theme selection data to templates.
type ThemeContext struct {
	Name      string
	Variant   string
	Tokens    map[string]string
	CSSVars   map[string]string
	Partials  map[string]string
	AssetURL  func(string) string
	Template  func(string, string) string
	Selection *gotheme.Selection
}

// TemplateHelpers exposes convenience helpers for template authors.
type TemplateHelpers struct {
	locale        LocaleSpec
	defaultLocale string
	baseURL       string
}

func newTemplateHelpers(defaultLocale string, locale LocaleSpec, baseURL string) TemplateHelpers {
	return TemplateHelpers{
		locale:        locale,
		defaultLocale: defaultLocale,
		baseURL:       strings.TrimRight(baseURL, "/"),
	}
}

// Locale returns the active locale code.
func (h TemplateHelpers) Locale() string {
	return h.locale.Code
}

// IsLocale reports whether the provided locale code matches the active locale.
func (h TemplateHelpers) IsLocale(code string) bool {
	return strings.EqualFold(strings.TrimSpace(code), h.locale.Code)
}

// IsDefaultLocale reports whether the current locale matches the configured default.
func (h TemplateHelpers) IsDefaultLocale() bool {
	return strings.EqualFold(h.locale.Code, h.defaultLocale)
}

// BaseURL returns the configured site base URL.
func (h TemplateHelpers) BaseURL() string {
	return h.baseURL
}

// WithBaseURL prefixes the provided path with the configured base URL.
func (h TemplateHelpers) WithBaseURL(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return h.baseURL
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if h.baseURL == "" {
		return path
	}
	return h.baseURL + path
}

// LocalePrefix returns the locale aware prefix for paths.
func (h TemplateHelpers) LocalePrefix() string {
	if h.IsDefaultLocale() {
		return ""
	}
	return "/" + strings.TrimPrefix(strings.TrimSpace(h.locale.Code), "/")
}

func buildThemeContext(selection *gotheme.Selection, cfg ThemeSettings) ThemeContext {
	empty := ThemeContext{
		Tokens:   map[string]string{},
		CSSVars:  map[string]string{},
		Partials: map[string]string{},
		AssetURL: func(string) string { return "" },
		Template: func(_ string, fallback string) string { return fallback },
	}
	if selection == nil {
		return empty
	}

	cssPrefix := cfg.CSSVariablePrefix
	tokens := selection.Tokens()
	cssVars := selection.CSSVariables(cssPrefix)
	partials := selection.Partials(cfg.PartialFallbacks)

	return ThemeContext{
		Name:      selection.Theme,
		Variant:   selection.Variant,
		Tokens:    tokens,
		CSSVars:   cssVars,
		Partials:  partials,
		AssetURL:  func(key string) string { url, _ := selection.Asset(key); return url },
		Template:  selection.Template,
		Selection: selection,
	}
}

func htmlContent(content []byte) template.HTML {
	return template.HTML(content)
}

// RenderedPage captures the rendered HTML output for a document.
type RenderedPage struct {
	DocumentID uuid.UUID
	Locale     string
	Route      string
	Output     string
	Layout     string
	HTML       string
	Metadata   DependencyMetadata
	Duration   time.Duration
	Checksum   string
}

// Diagnostic kinds classifying document local failures.
const (
	diagnosticFrontMatter = "malformed_front_matter"
	diagnosticUnreadable  = "unreadable_file"
	diagnosticLoad        = "load"
	diagnosticSchema      = "front_matter_schema"
	diagnosticRoute       = "route"
	diagnosticLayout      = "unknown_layout"
	diagnosticRender      = "render"
)

// RenderDiagnostic records rendering timing and failures for individual
// documents. Kind classifies the failure so callers can report what went
// wrong without unwrapping errors.
type RenderDiagnostic struct {
	DocumentID uuid.UUID
	Path       string
	Locale     string
	Route      string
	Layout     string
	Kind       string
	Duration   time.Duration
	Skipped    bool
	Err        error
}

type renderOutcome struct {
	page       RenderedPage
	diagnostic RenderDiagnostic
	err        error
	skipped    bool
}

// classifyDiagnostic maps an error onto the kind reported for the document
// that produced it.
func classifyDiagnostic(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, markdown.ErrMalformedFrontMatter):
		return diagnosticFrontMatter
	case errors.Is(err, markdown.ErrUnreadableFile):
		return diagnosticUnreadable
	case errors.Is(err, layouts.ErrUnknownLayout):
		return diagnosticLayout
	case errors.Is(err, validation.ErrSchemaValidation):
		return diagnosticSchema
	case errors.Is(err, routes.ErrNoSlug), errors.Is(err, routes.ErrDocumentRequired):
		return diagnosticRoute
	default:
		return diagnosticRender
	}
}
