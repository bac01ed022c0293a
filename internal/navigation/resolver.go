// Package navigation turns config declared menus into renderable node trees.
// Menus live in the site configuration rather than a database; each entry
// either carries a literal URL or names a route that the routes resolver can
// build. Entries whose target cannot be resolved fall back to "#" so layouts
// always receive a usable href.
package navigation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-sitegen/internal/identity"
	"github.com/goliatone/go-sitegen/internal/logging"
	"github.com/goliatone/go-sitegen/pkg/interfaces"
	"github.com/google/uuid"
)

var ErrMenuNotFound = errors.New("navigation: menu not found")

// Item declares one menu entry prior to resolution. Either URL or Route plus
// Params identifies the target; children nest beneath the entry.
type Item struct {
	Label    string
	URL      string
	Route    string
	Params   map[string]string
	Children []Item
}

// Node is a resolved menu entry handed to layout templates.
type Node struct {
	ID       uuid.UUID `json:"id"`
	Label    string    `json:"label"`
	URL      string    `json:"url"`
	Position int       `json:"position"`
	Children []Node    `json:"children,omitempty"`
}

// URLBuilder renders a named route into a locale aware path.
type URLBuilder interface {
	BuildURL(locale, route string, params map[string]string) (string, error)
}

// Config declares the menus available to templates, keyed by menu code.
type Config struct {
	Menus map[string][]Item
}

// Resolver resolves configured menus on demand. Resolution is deterministic:
// node IDs derive from the menu code and entry target, and positions follow
// declaration order.
type Resolver struct {
	menus  map[string][]Item
	urls   URLBuilder
	logger interfaces.Logger
}

// NewResolver builds a Resolver. The URL builder may be nil, in which case
// route backed entries resolve to the "#" fallback.
func NewResolver(cfg Config, urls URLBuilder, logger interfaces.Logger) *Resolver {
	if logger == nil {
		logger = logging.NoOp()
	}
	return &Resolver{
		menus:  cfg.Menus,
		urls:   urls,
		logger: logger,
	}
}

// Menu resolves the named menu for a locale.
func (r *Resolver) Menu(ctx context.Context, name, locale string) ([]Node, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	items, ok := r.menus[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMenuNotFound, name)
	}
	menuID := identity.MenuUUID(name)
	return r.resolveItems(ctx, name, menuID, items, locale), nil
}

// ResolveAll resolves every configured menu for a locale, keyed by menu code.
func (r *Resolver) ResolveAll(ctx context.Context, locale string) (map[string][]Node, error) {
	resolved := make(map[string][]Node, len(r.menus))

	names := make([]string, 0, len(r.menus))
	for name := range r.menus {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		nodes, err := r.Menu(ctx, name, locale)
		if err != nil {
			return nil, err
		}
		resolved[name] = nodes
	}
	return resolved, nil
}

func (r *Resolver) resolveItems(ctx context.Context, menuCode string, menuID uuid.UUID, items []Item, locale string) []Node {
	if len(items) == 0 {
		return nil
	}

	nodes := make([]Node, 0, len(items))
	for position, item := range items {
		node := Node{
			ID:       identity.MenuItemUUID(menuID, itemKey(item)),
			Label:    strings.TrimSpace(item.Label),
			URL:      r.resolveTarget(ctx, menuCode, item, locale),
			Position: position,
		}
		node.Children = r.resolveItems(ctx, menuCode, menuID, item.Children, locale)
		nodes = append(nodes, node)
	}
	return nodes
}

func (r *Resolver) resolveTarget(ctx context.Context, menuCode string, item Item, locale string) string {
	if url := strings.TrimSpace(item.URL); url != "" {
		return url
	}

	route := strings.TrimSpace(item.Route)
	if route == "" {
		r.logger.Warn("navigation.item_without_target",
			"menu", menuCode,
			"label", item.Label,
		)
		return "#"
	}
	if r.urls == nil {
		r.logger.Warn("navigation.url_builder_missing",
			"menu", menuCode,
			"route", route,
		)
		return "#"
	}

	built, err := r.urls.BuildURL(locale, route, item.Params)
	if err != nil || strings.TrimSpace(built) == "" {
		logger := r.logger
		if err != nil {
			logger = logging.WithFields(logger, map[string]any{"error": err.Error()})
		}
		logger.Warn("navigation.route_unresolved",
			"menu", menuCode,
			"route", route,
			"locale", locale,
		)
		return "#"
	}
	return built
}

// itemKey picks the stable identity key for an entry: the route when one is
// declared, the literal URL otherwise, the label as a last resort.
func itemKey(item Item) string {
	if route := strings.TrimSpace(item.Route); route != "" {
		return route
	}
	if url := strings.TrimSpace(item.URL); url != "" {
		return url
	}
	return strings.ToLower(strings.TrimSpace(item.Label))
}
