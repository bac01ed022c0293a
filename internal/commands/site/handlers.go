package sitecmd

import (
	"context"
	"strings"

	"github.com/goliatone/go-sitegen/internal/commands"
	"github.com/goliatone/go-sitegen/internal/generator"
	"github.com/goliatone/go-sitegen/pkg/interfaces"
)

// BuildSiteHandler orchestrates generator builds using the shared command handler foundation.
type BuildSiteHandler struct {
	inner *commands.Handler[BuildSiteCommand]
}

// NewBuildSiteHandler constructs a handler wired to the provided generator service.
func NewBuildSiteHandler(service generator.Service, logger interfaces.Logger, gates FeatureGates, opts ...commands.HandlerOption[BuildSiteCommand]) *BuildSiteHandler {
	baseLogger := commands.EnsureLogger(logger)

	exec := func(ctx context.Context, msg BuildSiteCommand) error {
		if service == nil || !gates.generatorEnabled() {
			return generator.ErrServiceDisabled
		}

		if msg.AssetsOnly {
			if err := service.BuildAssets(ctx); err != nil {
				return err
			}
			invokeCallback(msg.ResultCallback, ResultEnvelope{
				Result: nil,
				Metadata: map[string]any{
					"operation": "build_assets",
				},
			})
			return nil
		}

		paths := normalizeFilter(msg.Paths)
		locales := normalizeFilter(msg.Locales)

		// A single document with at most one locale can take the direct
		// path; dry runs and draft builds need the full option set.
		if len(paths) == 1 && len(locales) <= 1 && !msg.DryRun && !msg.IncludeDrafts {
			locale := ""
			if len(locales) == 1 {
				locale = locales[0]
			}
			if err := service.BuildDocument(ctx, paths[0], locale); err != nil {
				return err
			}
			invokeCallback(msg.ResultCallback, ResultEnvelope{
				Result: nil,
				Metadata: map[string]any{
					"operation": "build_document",
					"path":      paths[0],
					"locale":    locale,
				},
			})
			return nil
		}

		options := generator.BuildOptions{
			Force:         msg.Force,
			DryRun:        msg.DryRun,
			IncludeDrafts: msg.IncludeDrafts,
			Paths:         paths,
			Locales:       locales,
		}

		result, err := service.Build(ctx, options)
		invokeCallback(msg.ResultCallback, ResultEnvelope{
			Result: result,
			Metadata: map[string]any{
				"operation": "build",
			},
		})
		if err != nil {
			return err
		}
		return nil
	}

	handlerOpts := []commands.HandlerOption[BuildSiteCommand]{
		commands.WithLogger[BuildSiteCommand](baseLogger),
		commands.WithOperation[BuildSiteCommand]("site.build"),
		commands.WithMessageFields(func(msg BuildSiteCommand) map[string]any {
			fields := map[string]any{}
			if len(msg.Paths) > 0 {
				fields["paths"] = len(msg.Paths)
			}
			if len(msg.Locales) > 0 {
				fields["locales"] = len(msg.Locales)
			}
			if msg.Force {
				fields["force"] = true
			}
			if msg.DryRun {
				fields["dry_run"] = true
			}
			if msg.IncludeDrafts {
				fields["include_drafts"] = true
			}
			if msg.AssetsOnly {
				fields["assets_only"] = true
			}
			return fields
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[BuildSiteCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &BuildSiteHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[BuildSiteCommand].
func (h *BuildSiteHandler) Execute(ctx context.Context, msg BuildSiteCommand) error {
	return h.inner.Execute(ctx, msg)
}

// DiffSiteHandler performs dry-run builds for diffing workflows.
type DiffSiteHandler struct {
	inner *commands.Handler[DiffSiteCommand]
}

// NewDiffSiteHandler constructs a handler that executes generator dry-runs.
func NewDiffSiteHandler(service generator.Service, logger interfaces.Logger, gates FeatureGates, opts ...commands.HandlerOption[DiffSiteCommand]) *DiffSiteHandler {
	baseLogger := commands.EnsureLogger(logger)

	exec := func(ctx context.Context, msg DiffSiteCommand) error {
		if service == nil || !gates.generatorEnabled() {
			return generator.ErrServiceDisabled
		}

		options := generator.BuildOptions{
			Force:         msg.Force,
			DryRun:        true,
			IncludeDrafts: msg.IncludeDrafts,
			Paths:         normalizeFilter(msg.Paths),
			Locales:       normalizeFilter(msg.Locales),
		}

		result, err := service.Build(ctx, options)
		invokeCallback(msg.ResultCallback, ResultEnvelope{
			Result: result,
			Metadata: map[string]any{
				"operation": "diff",
			},
		})
		if err != nil {
			return err
		}
		return nil
	}

	handlerOpts := []commands.HandlerOption[DiffSiteCommand]{
		commands.WithLogger[DiffSiteCommand](baseLogger),
		commands.WithOperation[DiffSiteCommand]("site.diff"),
		commands.WithMessageFields(func(msg DiffSiteCommand) map[string]any {
			fields := map[string]any{}
			if len(msg.Paths) > 0 {
				fields["paths"] = len(msg.Paths)
			}
			if len(msg.Locales) > 0 {
				fields["locales"] = len(msg.Locales)
			}
			if msg.Force {
				fields["force"] = true
			}
			if msg.IncludeDrafts {
				fields["include_drafts"] = true
			}
			return fields
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[DiffSiteCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &DiffSiteHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[DiffSiteCommand].
func (h *DiffSiteHandler) Execute(ctx context.Context, msg DiffSiteCommand) error {
	return h.inner.Execute(ctx, msg)
}

// CleanSiteHandler clears generator artifacts.
type CleanSiteHandler struct {
	inner *commands.Handler[CleanSiteCommand]
}

// NewCleanSiteHandler constructs a handler that cleans generator output.
func NewCleanSiteHandler(service generator.Service, logger interfaces.Logger, gates FeatureGates, opts ...commands.HandlerOption[CleanSiteCommand]) *CleanSiteHandler {
	baseLogger := commands.EnsureLogger(logger)

	exec := func(ctx context.Context, msg CleanSiteCommand) error {
		if service == nil || !gates.generatorEnabled() {
			return generator.ErrServiceDisabled
		}
		return service.Clean(ctx)
	}

	handlerOpts := []commands.HandlerOption[CleanSiteCommand]{
		commands.WithLogger[CleanSiteCommand](baseLogger),
		commands.WithOperation[CleanSiteCommand]("site.clean"),
		commands.WithTelemetry(commands.DefaultTelemetry[CleanSiteCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &CleanSiteHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[CleanSiteCommand].
func (h *CleanSiteHandler) Execute(ctx context.Context, msg CleanSiteCommand) error {
	return h.inner.Execute(ctx, msg)
}

// BuildSitemapHandler regenerates sitemap and robots artifacts.
type BuildSitemapHandler struct {
	inner *commands.Handler[BuildSitemapCommand]
}

// NewBuildSitemapHandler constructs a handler that rebuilds the sitemap.
func NewBuildSitemapHandler(service generator.Service, logger interfaces.Logger, gates FeatureGates, opts ...commands.HandlerOption[BuildSitemapCommand]) *BuildSitemapHandler {
	baseLogger := commands.EnsureLogger(logger)

	exec := func(ctx context.Context, msg BuildSitemapCommand) error {
		if service == nil || !gates.generatorEnabled() {
			return generator.ErrServiceDisabled
		}
		return service.BuildSitemap(ctx)
	}

	handlerOpts := []commands.HandlerOption[BuildSitemapCommand]{
		commands.WithLogger[BuildSitemapCommand](baseLogger),
		commands.WithOperation[BuildSitemapCommand]("site.sitemap"),
		commands.WithTelemetry(commands.DefaultTelemetry[BuildSitemapCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &BuildSitemapHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[BuildSitemapCommand].
func (h *BuildSitemapHandler) Execute(ctx context.Context, msg BuildSitemapCommand) error {
	return h.inner.Execute(ctx, msg)
}

// normalizeFilter trims entries, drops empties, and removes case-insensitive
// duplicates while preserving order.
func normalizeFilter(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := map[string]struct{}{}
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func invokeCallback(cb ResultCallback, envelope ResultEnvelope) {
	if cb == nil {
		return
	}
	cb(envelope)
}
