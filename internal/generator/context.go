package generator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-sitegen/internal/identity"
	"github.com/goliatone/go-sitegen/internal/navigation"
	"github.com/goliatone/go-sitegen/internal/routes"
	"github.com/goliatone/go-sitegen/internal/validation"
	"github.com/goliatone/go-sitegen/pkg/interfaces"
	"github.com/google/uuid"
)

var (
	errDocumentsRequired = errors.New("generator: document source is required")
	errRoutesRequired    = errors.New("generator: route resolver is required")
)

// BuildContext aggregates the localized document data required to execute a
// static build. Failures carries the documents that could not be prepared;
// they become diagnostics without stopping the build.
type BuildContext struct {
	GeneratedAt   time.Time
	DefaultLocale string
	Locales       []LocaleSpec
	Pages         []*PageData
	Menus         map[string]map[string][]navigation.Node
	Options       BuildOptions
	Failures      []LoadFailure
}

// LocaleSpec captures resolved locale information for a build.
type LocaleSpec struct {
	Code      string
	IsDefault bool
}

// PageData encapsulates one document prepared for rendering. Content holds
// the final body HTML, after shortcode expansion when that feature is on.
type PageData struct {
	DocumentID uuid.UUID
	Document   *interfaces.Document
	Content    []byte
	Route      routes.Route
	Layout     string
	Locale     LocaleSpec
	Metadata   DependencyMetadata
}

// DependencyMetadata tracks hashes and timestamps for incremental builds.
type DependencyMetadata struct {
	Sources      map[string]string
	Hash         string
	LastModified time.Time
}

// LoadFailure records a document that could not be loaded or prepared. The
// failure is local to the path; remaining documents continue through the
// pipeline.
type LoadFailure struct {
	Path   string
	Locale string
	Kind   string
	Err    error
}

func (s *service) loadContext(ctx context.Context, opts BuildOptions) (*BuildContext, error) {
	if s.deps.Documents == nil {
		return nil, errDocumentsRequired
	}
	if s.deps.Routes == nil {
		return nil, errRoutesRequired
	}

	locales := s.resolveLocales(opts)
	s.logger.Debug("generator.locales_resolved", "locales", locales.codes())

	results, err := s.deps.Documents.LoadDirectoryResults(ctx, "", interfaces.LoadOptions{})
	if err != nil {
		return nil, err
	}

	buildCtx := &BuildContext{
		GeneratedAt:   s.now(),
		DefaultLocale: locales.defaultCode,
		Locales:       locales.ordered,
		Menus:         map[string]map[string][]navigation.Node{},
		Options:       opts,
	}

	pathFilter := newPathFilter(opts.Paths)

	for _, result := range results {
		if result == nil {
			continue
		}
		if result.Err != nil {
			kind := classifyDiagnostic(result.Err)
			if kind == diagnosticRender {
				kind = diagnosticLoad
			}
			buildCtx.Failures = append(buildCtx.Failures, LoadFailure{
				Path: result.Path,
				Kind: kind,
				Err:  result.Err,
			})
			continue
		}

		doc := result.Document
		if doc == nil {
			continue
		}
		spec, ok := locales.spec(doc.Locale)
		if !ok {
			continue
		}
		if !pathFilter.matches(doc.FilePath) {
			continue
		}
		if doc.FrontMatter.Draft && !opts.IncludeDrafts {
			continue
		}

		if err := s.validateFrontMatter(doc); err != nil {
			if s.cfg.StrictFrontMatter {
				buildCtx.Failures = append(buildCtx.Failures, LoadFailure{
					Path:   doc.FilePath,
					Locale: doc.Locale,
					Kind:   diagnosticSchema,
					Err:    err,
				})
				continue
			}
			s.logger.Warn("generator.front_matter_schema",
				"path", doc.FilePath,
				"error", err.Error(),
			)
		}

		route, err := s.deps.Routes.Resolve(ctx, doc)
		if err != nil {
			buildCtx.Failures = append(buildCtx.Failures, LoadFailure{
				Path:   doc.FilePath,
				Locale: doc.Locale,
				Kind:   diagnosticRoute,
				Err:    err,
			})
			continue
		}

		layout := strings.TrimSpace(doc.FrontMatter.Layout)
		page := &PageData{
			DocumentID: identity.DocumentUUID(doc.FilePath),
			Document:   doc,
			Content:    s.expandShortcodes(ctx, doc),
			Route:      route,
			Layout:     layout,
			Locale:     spec,
		}
		page.Metadata = computeDependencyMetadata(doc, route, layout)
		buildCtx.Pages = append(buildCtx.Pages, page)
	}

	if s.deps.Navigation != nil {
		for _, spec := range buildCtx.Locales {
			menus, err := s.deps.Navigation.ResolveAll(ctx, spec.Code)
			if err != nil {
				return nil, err
			}
			buildCtx.Menus[spec.Code] = menus
		}
	}

	return buildCtx, nil
}

// validateFrontMatter checks the document metadata against the configured
// schema. Drafts validate partially so incomplete documents can still be
// previewed with IncludeDrafts.
func (s *service) validateFrontMatter(doc *interfaces.Document) error {
	if len(s.cfg.FrontMatterSchema) == 0 {
		return nil
	}
	if doc.FrontMatter.Draft {
		return validation.ValidatePartialPayload(s.cfg.FrontMatterSchema, doc.FrontMatter.Raw)
	}
	return validation.ValidatePayload(s.cfg.FrontMatterSchema, doc.FrontMatter.Raw)
}

// expandShortcodes runs the shortcode processor over the Markdown body and
// re-renders it when expansion changed anything. Failures downgrade to
// warnings and the already rendered body passes through untouched, keeping
// the failing invocation visible in the output.
func (s *service) expandShortcodes(ctx context.Context, doc *interfaces.Document) []byte {
	if s.deps.Shortcodes == nil {
		return doc.BodyHTML
	}

	body := string(doc.Body)
	processed, err := s.deps.Shortcodes.Process(ctx, body, doc.Locale)
	if err != nil {
		s.logger.Warn("generator.shortcode_failed",
			"path", doc.FilePath,
			"error", err.Error(),
		)
		return doc.BodyHTML
	}
	if processed == body {
		return doc.BodyHTML
	}

	html, err := s.deps.Documents.Render(ctx, []byte(processed), interfaces.ParseOptions{})
	if err != nil {
		s.logger.Warn("generator.shortcode_render_failed",
			"path", doc.FilePath,
			"error", err.Error(),
		)
		return doc.BodyHTML
	}
	return html
}

type localeSet struct {
	ordered     []LocaleSpec
	byCode      map[string]LocaleSpec
	defaultCode string
}

// resolveLocales derives the build's locale scope from the configuration,
// narrowed by any locales requested on the options. The default locale always
// orders first.
func (s *service) resolveLocales(opts BuildOptions) localeSet {
	defaultCode := strings.ToLower(strings.TrimSpace(s.cfg.DefaultLocale))
	if defaultCode == "" {
		defaultCode = "en"
	}

	configured := []string{defaultCode}
	seen := map[string]struct{}{defaultCode: {}}
	for _, code := range s.cfg.Locales {
		code = strings.ToLower(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		configured = append(configured, code)
	}

	requested := map[string]struct{}{}
	for _, code := range opts.Locales {
		code = strings.ToLower(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		requested[code] = struct{}{}
	}

	set := localeSet{
		byCode:      map[string]LocaleSpec{},
		defaultCode: defaultCode,
	}
	for _, code := range configured {
		if len(requested) > 0 {
			if _, ok := requested[code]; !ok {
				continue
			}
		}
		spec := LocaleSpec{Code: code, IsDefault: code == defaultCode}
		set.ordered = append(set.ordered, spec)
		set.byCode[code] = spec
	}
	return set
}

// spec resolves a document locale against the build scope. Documents without
// a locale belong to the default locale.
func (l localeSet) spec(code string) (LocaleSpec, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		code = l.defaultCode
	}
	spec, ok := l.byCode[code]
	return spec, ok
}

func (l localeSet) codes() []string {
	codes := make([]string, 0, len(l.ordered))
	for _, spec := range l.ordered {
		codes = append(codes, spec.Code)
	}
	return codes
}

// pathFilter narrows a build to an explicit set of source files.
type pathFilter struct {
	paths map[string]struct{}
}

func newPathFilter(paths []string) *pathFilter {
	if len(paths) == 0 {
		return nil
	}
	filter := &pathFilter{paths: map[string]struct{}{}}
	for _, p := range paths {
		p = normalizeSourcePath(p)
		if p == "" {
			continue
		}
		filter.paths[p] = struct{}{}
	}
	return filter
}

func (f *pathFilter) matches(filePath string) bool {
	if f == nil || len(f.paths) == 0 {
		return true
	}
	_, ok := f.paths[normalizeSourcePath(filePath)]
	return ok
}

func normalizeSourcePath(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	p = strings.TrimPrefix(p, "./")
	if p == "" {
		return ""
	}
	return path.Clean(p)
}

// computeDependencyMetadata derives the incremental build fingerprint for a
// document: the source checksum plus everything else that shapes the page.
func computeDependencyMetadata(doc *interfaces.Document, route routes.Route, layout string) DependencyMetadata {
	sources := map[string]string{
		"content": hex.EncodeToString(doc.Checksum),
		"route":   route.Permalink,
	}
	if layout != "" {
		sources["layout"] = layout
	}

	return DependencyMetadata{
		Sources:      sources,
		Hash:         hashSources(sources),
		LastModified: documentLastModified(doc),
	}
}

// documentLastModified prefers the front matter date over the file mtime when
// the date is later, matching how feeds report publication times.
func documentLastModified(doc *interfaces.Document) time.Time {
	modified := doc.LastModified
	if doc.FrontMatter.Date.After(modified) {
		modified = doc.FrontMatter.Date
	}
	return modified
}

func hashSources(sources map[string]string) string {
	if len(sources) == 0 {
		return ""
	}
	keys := make([]string, 0, len(sources))
	for key := range sources {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	hasher := sha256.New()
	for _, key := range keys {
		hasher.Write([]byte(key))
		hasher.Write([]byte("="))
		hasher.Write([]byte(sources[key]))
		hasher.Write([]byte{0})
	}
	return hex.EncodeToString(hasher.Sum(nil))
}
