package routes

import (
	"context"
	"testing"
	"time"

	urlkit "github.com/goliatone/go-urlkit"

	"github.com/goliatone/go-sitegen/pkg/interfaces"
)

func newTestManager() *urlkit.RouteManager {
	return urlkit.NewRouteManager(&urlkit.Config{
		Groups: []urlkit.GroupConfig{
			{
				Name:    "site",
				BaseURL: "https://example.com",
				Paths: map[string]string{
					"page": "/pages/:slug",
					"blog": "/blog/:year/:month/:day/:slug",
				},
				Groups: []urlkit.GroupConfig{
					{
						Name: "es",
						Path: "/es",
						Paths: map[string]string{
							"page": "/paginas/:slug",
						},
					},
				},
			},
		},
	})
}

func TestResolve_ExplicitPermalink(t *testing.T) {
	resolver := NewResolver(Config{})

	route, err := resolver.Resolve(context.Background(), &interfaces.Document{
		FilePath: "en/blog/post.md",
		Locale:   "en",
		FrontMatter: interfaces.FrontMatter{
			Slug:      "post",
			Permalink: "custom/place/",
		},
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if route.Permalink != "/custom/place" {
		t.Fatalf("expected normalized explicit permalink, got %q", route.Permalink)
	}
	if route.Section != "blog" {
		t.Fatalf("expected section blog, got %q", route.Section)
	}
}

func TestResolve_SectionRoutePattern(t *testing.T) {
	resolver := NewResolver(Config{
		Manager:      newTestManager(),
		DefaultGroup: "site",
	})

	route, err := resolver.Resolve(context.Background(), &interfaces.Document{
		FilePath: "en/blog/2020-01-01-hello.md",
		Locale:   "en",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if route.Permalink != "/blog/2020/01/01/hello" {
		t.Fatalf("expected dated blog permalink, got %q", route.Permalink)
	}
	if route.Slug != "hello" {
		t.Fatalf("expected slug hello, got %q", route.Slug)
	}
}

func TestResolve_RootSectionMapping(t *testing.T) {
	resolver := NewResolver(Config{
		Manager:       newTestManager(),
		DefaultGroup:  "site",
		SectionRoutes: map[string]string{"": "page"},
	})

	route, err := resolver.Resolve(context.Background(), &interfaces.Document{
		FilePath: "en/about.md",
		Locale:   "en",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if route.Permalink != "/pages/about" {
		t.Fatalf("expected mapped page permalink, got %q", route.Permalink)
	}
}

func TestResolve_LocaleGroup(t *testing.T) {
	resolver := NewResolver(Config{
		Manager:       newTestManager(),
		DefaultGroup:  "site",
		LocaleGroups:  map[string]string{"es": "site.es"},
		SectionRoutes: map[string]string{"": "page"},
	})

	route, err := resolver.Resolve(context.Background(), &interfaces.Document{
		FilePath: "es/acerca.md",
		Locale:   "es",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if route.Permalink != "/es/paginas/acerca" {
		t.Fatalf("expected locale group permalink, got %q", route.Permalink)
	}
}

func TestResolve_FallbackWithoutManager(t *testing.T) {
	resolver := NewResolver(Config{})

	cases := []struct {
		path string
		want string
	}{
		{"en/blog/hello.md", "/blog/hello"},
		{"en/about.md", "/about"},
		{"en/index.md", "/"},
		{"en/blog/index.md", "/blog"},
	}

	for _, tc := range cases {
		route, err := resolver.Resolve(context.Background(), &interfaces.Document{
			FilePath: tc.path,
			Locale:   "en",
		})
		if err != nil {
			t.Fatalf("Resolve %s: %v", tc.path, err)
		}
		if route.Permalink != tc.want {
			t.Fatalf("Resolve %s = %q, want %q", tc.path, route.Permalink, tc.want)
		}
	}
}

func TestResolve_FallbackOnUnknownRoute(t *testing.T) {
	resolver := NewResolver(Config{
		Manager:      newTestManager(),
		DefaultGroup: "site",
	})

	route, err := resolver.Resolve(context.Background(), &interfaces.Document{
		FilePath: "en/docs/intro.md",
		Locale:   "en",
		FrontMatter: interfaces.FrontMatter{
			Date: time.Date(2024, time.May, 2, 0, 0, 0, 0, time.UTC),
		},
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if route.Permalink != "/docs/intro" {
		t.Fatalf("expected fallback permalink for unmapped section, got %q", route.Permalink)
	}
}

func TestResolve_NilDocument(t *testing.T) {
	resolver := NewResolver(Config{})
	if _, err := resolver.Resolve(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil document")
	}
}

func TestBuildURL(t *testing.T) {
	resolver := NewResolver(Config{
		Manager:      newTestManager(),
		DefaultGroup: "site",
		LocaleGroups: map[string]string{"es": "site.es"},
	})

	built, err := resolver.BuildURL("en", "page", map[string]string{"slug": "team"})
	if err != nil {
		t.Fatalf("BuildURL: %v", err)
	}
	if built != "/pages/team" {
		t.Fatalf("expected /pages/team, got %q", built)
	}

	built, err = resolver.BuildURL("es", "page", map[string]string{"slug": "equipo"})
	if err != nil {
		t.Fatalf("BuildURL es: %v", err)
	}
	if built != "/es/paginas/equipo" {
		t.Fatalf("expected locale aware URL, got %q", built)
	}
}

func TestBuildURL_UnknownRoute(t *testing.T) {
	resolver := NewResolver(Config{
		Manager:      newTestManager(),
		DefaultGroup: "site",
	})

	if _, err := resolver.BuildURL("en", "missing", nil); err == nil {
		t.Fatalf("expected error for unknown route")
	}
}

func TestBuildURL_WithoutManager(t *testing.T) {
	resolver := NewResolver(Config{})
	if _, err := resolver.BuildURL("en", "page", nil); err == nil {
		t.Fatalf("expected error without route manager")
	}
}
