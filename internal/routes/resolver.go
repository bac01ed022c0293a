// Package routes turns documents into site-relative permalinks. Explicit
// front matter permalinks win, then configured go-urlkit route patterns, then
// a deterministic /<section>/<slug> fallback.
package routes

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	urlkit "github.com/goliatone/go-urlkit"

	"github.com/goliatone/go-sitegen/pkg/interfaces"
)

var (
	ErrDocumentRequired = errors.New("routes: document required")
	ErrNoSlug           = errors.New("routes: no usable slug")
	ErrManagerRequired  = errors.New("routes: route manager not configured")
)

// Config wires the resolver to an optional go-urlkit route manager.
type Config struct {
	// Manager holds the configured route groups. A nil manager disables
	// pattern-based permalinks and every document uses the fallback form.
	Manager *urlkit.RouteManager
	// DefaultGroup is the dot-separated group path used for lookups.
	DefaultGroup string
	// LocaleGroups overrides the group per locale (e.g. "es" -> "site.es").
	LocaleGroups map[string]string
	// SectionRoutes maps a section to the route name that renders it. A
	// section without an entry uses its own name as the route name.
	SectionRoutes map[string]string
}

// Resolver computes the permalink for each document.
type Resolver struct {
	manager       *urlkit.RouteManager
	defaultGroup  string
	localeGroups  map[string]string
	sectionRoutes map[string]string

	mu         sync.RWMutex
	groupCache map[string]*urlkit.Group
}

// Route describes where a document is published.
type Route struct {
	Slug      string
	Section   string
	Permalink string
}

// NewResolver constructs a Resolver from the supplied configuration.
func NewResolver(cfg Config) *Resolver {
	return &Resolver{
		manager:       cfg.Manager,
		defaultGroup:  strings.TrimSpace(cfg.DefaultGroup),
		localeGroups:  cfg.LocaleGroups,
		sectionRoutes: cfg.SectionRoutes,
		groupCache:    make(map[string]*urlkit.Group),
	}
}

// Resolve computes the slug, section, and permalink for a document.
func (r *Resolver) Resolve(ctx context.Context, doc *interfaces.Document) (Route, error) {
	_ = ctx // reserved for future use
	if doc == nil {
		return Route{}, ErrDocumentRequired
	}

	derived, err := DeriveSlug(doc)
	if err != nil {
		return Route{}, err
	}

	route := Route{
		Slug:    derived,
		Section: Section(doc.FilePath, doc.Locale),
	}

	if permalink := strings.TrimSpace(doc.FrontMatter.Permalink); permalink != "" {
		route.Permalink = normalizePermalink(permalink)
		return route, nil
	}

	if built := r.buildPatternURL(doc.Locale, route.Section, route.Slug, EffectiveDate(doc)); built != "" {
		route.Permalink = built
		return route, nil
	}

	route.Permalink = fallbackPermalink(route.Section, route.Slug)
	return route, nil
}

// buildPatternURL renders the configured route pattern for the section, or ""
// when no pattern applies. Params beyond what a pattern mentions are ignored
// by the path compiler, so the full set is always supplied.
func (r *Resolver) buildPatternURL(locale, section, slugValue string, date time.Time) string {
	if r == nil || r.manager == nil {
		return ""
	}

	groupPath := r.defaultGroup
	localeKey := strings.ToLower(strings.TrimSpace(locale))
	if r.localeGroups != nil {
		if override, ok := r.localeGroups[localeKey]; ok && strings.TrimSpace(override) != "" {
			groupPath = strings.TrimSpace(override)
		}
	}
	if groupPath == "" {
		return ""
	}

	group, err := r.groupForPath(groupPath)
	if err != nil || group == nil {
		return ""
	}

	routeName := r.routeName(section)
	if routeName == "" {
		return ""
	}

	builder, err := r.safeBuilder(group, routeName)
	if err != nil || builder == nil {
		return ""
	}

	builder.WithParam("slug", slugValue)
	if section != "" {
		builder.WithParam("section", section)
	}
	if !date.IsZero() {
		builder.WithParam("year", fmt.Sprintf("%04d", date.Year()))
		builder.WithParam("month", fmt.Sprintf("%02d", int(date.Month())))
		builder.WithParam("day", fmt.Sprintf("%02d", date.Day()))
	}

	built, err := builder.Build()
	if err != nil {
		return ""
	}
	return pathOnly(built)
}

// BuildURL renders a named route with explicit params, honoring the per
// locale group overrides. Navigation menus use this to target routes declared
// in the site config.
func (r *Resolver) BuildURL(locale, route string, params map[string]string) (string, error) {
	if r == nil || r.manager == nil {
		return "", ErrManagerRequired
	}

	groupPath := r.defaultGroup
	localeKey := strings.ToLower(strings.TrimSpace(locale))
	if r.localeGroups != nil {
		if override, ok := r.localeGroups[localeKey]; ok && strings.TrimSpace(override) != "" {
			groupPath = strings.TrimSpace(override)
		}
	}
	if groupPath == "" {
		return "", ErrManagerRequired
	}

	group, err := r.groupForPath(groupPath)
	if err != nil {
		return "", err
	}

	builder, err := r.safeBuilder(group, strings.TrimSpace(route))
	if err != nil {
		return "", err
	}

	for key, value := range params {
		builder.WithParam(key, value)
	}

	built, err := builder.Build()
	if err != nil {
		return "", err
	}
	return pathOnly(built), nil
}

func (r *Resolver) routeName(section string) string {
	if r.sectionRoutes != nil {
		if name, ok := r.sectionRoutes[section]; ok {
			return strings.TrimSpace(name)
		}
	}
	return section
}

func (r *Resolver) groupForPath(groupPath string) (*urlkit.Group, error) {
	r.mu.RLock()
	group, ok := r.groupCache[groupPath]
	r.mu.RUnlock()
	if ok {
		return group, nil
	}

	parts := strings.Split(groupPath, ".")
	if len(parts) == 0 {
		return nil, fmt.Errorf("routes: invalid route group path %q", groupPath)
	}

	root, err := lookupGroup(r.manager, parts[0])
	if err != nil {
		return nil, err
	}
	current := root
	for _, part := range parts[1:] {
		current, err = lookupChildGroup(current, part)
		if err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	r.groupCache[groupPath] = current
	r.mu.Unlock()
	return current, nil
}

func (r *Resolver) safeBuilder(group *urlkit.Group, route string) (*urlkit.Builder, error) {
	if group == nil {
		return nil, fmt.Errorf("routes: urlkit group is nil")
	}
	var (
		builder *urlkit.Builder
		err     error
	)
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("routes: urlkit builder panic: %v", rec)
		}
	}()
	builder = group.Builder(route)
	return builder, err
}

func lookupGroup(manager *urlkit.RouteManager, name string) (*urlkit.Group, error) {
	if manager == nil {
		return nil, fmt.Errorf("routes: route manager not configured")
	}
	var (
		group *urlkit.Group
		err   error
	)
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("routes: route group %q not found", name)
		}
	}()
	group = manager.Group(name)
	return group, err
}

func lookupChildGroup(parent *urlkit.Group, name string) (*urlkit.Group, error) {
	if parent == nil {
		return nil, fmt.Errorf("routes: parent group is nil")
	}
	var (
		group *urlkit.Group
		err   error
	)
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("routes: child group %q not found", name)
		}
	}()
	group = parent.Group(name)
	return group, err
}

func normalizePermalink(permalink string) string {
	permalink = strings.TrimSpace(permalink)
	if permalink == "" {
		return "/"
	}
	if !strings.HasPrefix(permalink, "/") {
		permalink = "/" + permalink
	}
	return path.Clean(permalink)
}

func fallbackPermalink(section, slugValue string) string {
	if slugValue == indexSlug {
		if section == "" {
			return "/"
		}
		return "/" + section
	}
	if section == "" {
		return "/" + slugValue
	}
	return "/" + section + "/" + slugValue
}

// pathOnly strips scheme and host from a built URL, keeping the path portion
// that the generator maps to an output file.
func pathOnly(built string) string {
	parsed, err := url.Parse(built)
	if err != nil {
		return built
	}
	if parsed.Path == "" {
		return "/"
	}
	return parsed.Path
}
