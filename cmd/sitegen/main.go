// Command sitegen builds, previews, and watches static sites.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	sitegen "github.com/goliatone/go-sitegen"
	"github.com/goliatone/go-sitegen/cmd/sitegen/internal/bootstrap"
	sitecmd "github.com/goliatone/go-sitegen/internal/commands/site"
	"github.com/goliatone/go-sitegen/internal/generator"
	"github.com/goliatone/go-sitegen/internal/logging"
	"github.com/goliatone/go-sitegen/internal/server"
	"github.com/goliatone/go-sitegen/internal/watch"
)

const shutdownTimeout = 5 * time.Second

type buildExecutor interface {
	Execute(ctx context.Context, msg sitecmd.BuildSiteCommand) error
}

type diffExecutor interface {
	Execute(ctx context.Context, msg sitecmd.DiffSiteCommand) error
}

type cleanExecutor interface {
	Execute(ctx context.Context, msg sitecmd.CleanSiteCommand) error
}

type sitemapExecutor interface {
	Execute(ctx context.Context, msg sitecmd.BuildSitemapCommand) error
}

type handlerSet struct {
	build   buildExecutor
	diff    diffExecutor
	clean   cleanExecutor
	sitemap sitemapExecutor
}

type moduleOptions struct {
	configPath string
	contentDir string
	outputDir  string
	layoutsDir string
	baseURL    string
	serverAddr string
}

type moduleResources struct {
	handlers handlerSet
	module   *sitegen.Module
	config   sitegen.Config
}

var moduleBuilder = buildModule

func buildModule(opts moduleOptions) (*moduleResources, error) {
	resources, err := bootstrap.BuildModule(bootstrap.Options{
		ConfigPath: opts.configPath,
		ContentDir: opts.contentDir,
		OutputDir:  opts.outputDir,
		LayoutsDir: opts.layoutsDir,
		BaseURL:    opts.baseURL,
		ServerAddr: opts.serverAddr,
	})
	if err != nil {
		return nil, err
	}

	commandSet := resources.Module.Commands()
	handlers := handlerSet{}
	if commandSet.Build != nil {
		handlers.build = commandSet.Build
	}
	if commandSet.Diff != nil {
		handlers.diff = commandSet.Diff
	}
	if commandSet.Clean != nil {
		handlers.clean = commandSet.Clean
	}
	if commandSet.Sitemap != nil {
		handlers.sitemap = commandSet.Sitemap
	}

	return &moduleResources{
		handlers: handlers,
		module:   resources.Module,
		config:   resources.Config,
	}, nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("sitegen: %v", err)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return errors.New("missing subcommand: expected build, diff, clean, sitemap, serve, or watch")
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "build":
		return runBuild(rest)
	case "diff":
		return runDiff(rest)
	case "clean":
		return runClean(rest)
	case "sitemap":
		return runSitemap(rest)
	case "serve":
		return runServe(rest)
	case "watch":
		return runWatch(rest)
	default:
		return fmt.Errorf("unknown subcommand %q: expected build, diff, clean, sitemap, serve, or watch", cmd)
	}
}

// bindModuleFlags registers the flags shared by every subcommand.
func bindModuleFlags(fs *flag.FlagSet) *moduleOptions {
	opts := &moduleOptions{}
	fs.StringVar(&opts.configPath, "config", "", "Path to the config file (defaults to sitegen.yaml when present)")
	fs.StringVar(&opts.contentDir, "content", "", "Override the content directory")
	fs.StringVar(&opts.outputDir, "output", "", "Override the output directory")
	fs.StringVar(&opts.layoutsDir, "layouts", "", "Override the layouts directory")
	fs.StringVar(&opts.baseURL, "base-url", "", "Override the site base URL")
	return opts
}

// stringListFlag collects repeatable, comma separated flag values.
type stringListFlag struct {
	values []string
}

func (f *stringListFlag) String() string {
	return strings.Join(f.values, ",")
}

func (f *stringListFlag) Set(value string) error {
	f.values = append(f.values, bootstrap.SplitList(value)...)
	return nil
}

func runBuild(args []string) error {
	fs := flag.NewFlagSet("sitegen build", flag.ExitOnError)
	opts := bindModuleFlags(fs)
	paths := &stringListFlag{}
	locales := &stringListFlag{}
	fs.Var(paths, "path", "Limit the build to a document path (repeatable, comma separated)")
	fs.Var(locales, "locale", "Limit the build to a locale (repeatable, comma separated)")
	force := fs.Bool("force", false, "Rebuild documents even when the manifest reports them fresh")
	drafts := fs.Bool("drafts", false, "Include draft documents")
	dryRun := fs.Bool("dry-run", false, "Report what would be built without writing artifacts")
	assetsOnly := fs.Bool("assets-only", false, "Copy static and theme assets without rendering pages")

	if err := fs.Parse(args); err != nil {
		return err
	}

	resources, err := moduleBuilder(*opts)
	if err != nil {
		return fmt.Errorf("bootstrap module: %w", err)
	}
	if resources.handlers.build == nil {
		return errors.New("build handler not configured")
	}

	cmd := sitecmd.BuildSiteCommand{
		Paths:          paths.values,
		Locales:        locales.values,
		Force:          *force,
		DryRun:         *dryRun,
		IncludeDrafts:  *drafts,
		AssetsOnly:     *assetsOnly,
		ResultCallback: logSummary,
	}
	return resources.handlers.build.Execute(context.Background(), cmd)
}

func runDiff(args []string) error {
	fs := flag.NewFlagSet("sitegen diff", flag.ExitOnError)
	opts := bindModuleFlags(fs)
	paths := &stringListFlag{}
	locales := &stringListFlag{}
	fs.Var(paths, "path", "Limit the diff to a document path (repeatable, comma separated)")
	fs.Var(locales, "locale", "Limit the diff to a locale (repeatable, comma separated)")
	force := fs.Bool("force", false, "Report every document as stale")
	drafts := fs.Bool("drafts", false, "Include draft documents")

	if err := fs.Parse(args); err != nil {
		return err
	}

	resources, err := moduleBuilder(*opts)
	if err != nil {
		return fmt.Errorf("bootstrap module: %w", err)
	}
	if resources.handlers.diff == nil {
		return errors.New("diff handler not configured")
	}

	cmd := sitecmd.DiffSiteCommand{
		Paths:          paths.values,
		Locales:        locales.values,
		Force:          *force,
		IncludeDrafts:  *drafts,
		ResultCallback: logSummary,
	}
	return resources.handlers.diff.Execute(context.Background(), cmd)
}

func runClean(args []string) error {
	fs := flag.NewFlagSet("sitegen clean", flag.ExitOnError)
	opts := bindModuleFlags(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}

	resources, err := moduleBuilder(*opts)
	if err != nil {
		return fmt.Errorf("bootstrap module: %w", err)
	}
	if resources.handlers.clean == nil {
		return errors.New("clean handler not configured")
	}

	if err := resources.handlers.clean.Execute(context.Background(), sitecmd.CleanSiteCommand{}); err != nil {
		return err
	}
	log.Printf("module=site operation=clean output cleared")
	return nil
}

func runSitemap(args []string) error {
	fs := flag.NewFlagSet("sitegen sitemap", flag.ExitOnError)
	opts := bindModuleFlags(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}

	resources, err := moduleBuilder(*opts)
	if err != nil {
		return fmt.Errorf("bootstrap module: %w", err)
	}
	if resources.handlers.sitemap == nil {
		return errors.New("sitemap handler not configured")
	}

	if err := resources.handlers.sitemap.Execute(context.Background(), sitecmd.BuildSitemapCommand{}); err != nil {
		return err
	}
	log.Printf("module=site operation=build_sitemap sitemap rebuilt")
	return nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("sitegen serve", flag.ExitOnError)
	opts := bindModuleFlags(fs)
	addr := fs.String("addr", "", "Listen address (defaults to the configured server address)")
	watchFiles := fs.Bool("watch", false, "Rebuild when source files change")

	if err := fs.Parse(args); err != nil {
		return err
	}
	opts.serverAddr = strings.TrimSpace(*addr)

	resources, err := moduleBuilder(*opts)
	if err != nil {
		return fmt.Errorf("bootstrap module: %w", err)
	}
	if resources.module == nil {
		return errors.New("serve requires a configured module")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := resources.module.Generator().Build(ctx, generator.BuildOptions{})
	if err != nil {
		return fmt.Errorf("initial build: %w", err)
	}
	logBuildResult("build", result)

	cfg := resources.config
	provider := resources.module.Container().LoggerProvider()
	srv, err := server.New(server.Config{
		Addr: cfg.Server.Addr,
		Dir:  cfg.Generator.OutputDir,
	}, logging.ServerLogger(provider))
	if err != nil {
		return err
	}

	if *watchFiles {
		watcher, err := newWatcher(resources, false)
		if err != nil {
			return err
		}
		defer watcher.Close()
		go func() {
			if err := watcher.Run(ctx); err != nil {
				log.Printf("module=site operation=watch error=%v", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("module=site operation=serve shutdown error=%v", err)
		}
	}()

	log.Printf("module=site operation=serve addr=%s dir=%s", cfg.Server.Addr, cfg.Generator.OutputDir)
	return srv.Start()
}

func runWatch(args []string) error {
	fs := flag.NewFlagSet("sitegen watch", flag.ExitOnError)
	opts := bindModuleFlags(fs)
	drafts := fs.Bool("drafts", false, "Include draft documents in rebuilds")

	if err := fs.Parse(args); err != nil {
		return err
	}

	resources, err := moduleBuilder(*opts)
	if err != nil {
		return fmt.Errorf("bootstrap module: %w", err)
	}
	if resources.module == nil {
		return errors.New("watch requires a configured module")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := resources.module.Generator().Build(ctx, generator.BuildOptions{IncludeDrafts: *drafts})
	if err != nil {
		return fmt.Errorf("initial build: %w", err)
	}
	logBuildResult("build", result)

	watcher, err := newWatcher(resources, *drafts)
	if err != nil {
		return err
	}
	defer watcher.Close()

	log.Printf("module=site operation=watch content=%s", resources.config.Content.Dir)
	return watcher.Run(ctx)
}

// newWatcher wires the module's generator and layout engine into a filesystem
// watcher covering the content, layout, theme, and static directories.
func newWatcher(resources *moduleResources, drafts bool) (*watch.Watcher, error) {
	cfg := resources.config

	extra := []string{cfg.Layouts.Dir}
	if cfg.Features.Themes && strings.TrimSpace(cfg.Theme.BasePath) != "" {
		extra = append(extra, cfg.Theme.BasePath)
	}
	if cfg.Generator.CopyAssets && strings.TrimSpace(cfg.Generator.StaticDir) != "" {
		extra = append(extra, cfg.Generator.StaticDir)
	}

	container := resources.module.Container()
	deps := watch.Dependencies{
		Builder: resources.module.Generator(),
		Logger:  logging.WatchLogger(container.LoggerProvider()),
	}
	if engine := container.LayoutEngine(); engine != nil {
		deps.Reloader = engine
	}

	return watch.New(watch.Config{
		ContentDir:    cfg.Content.Dir,
		ExtraDirs:     existingDirs(extra),
		Debounce:      cfg.Watch.Debounce.Std(),
		IncludeDrafts: drafts,
	}, deps)
}

// existingDirs drops blank entries and directories that are not on disk, so
// optional theme and static roots never fail watcher registration.
func existingDirs(dirs []string) []string {
	out := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			out = append(out, dir)
		}
	}
	return out
}

// logSummary reports a command outcome on the process log. Build results get
// the full counter set; result-free operations log their metadata.
func logSummary(envelope sitecmd.ResultEnvelope) {
	operation, _ := envelope.Metadata["operation"].(string)
	if operation == "" {
		operation = "build"
	}

	if envelope.Result == nil {
		fields := make([]string, 0, len(envelope.Metadata))
		for key, value := range envelope.Metadata {
			if key == "operation" {
				continue
			}
			text := fmt.Sprintf("%v", value)
			if strings.TrimSpace(text) == "" {
				continue
			}
			fields = append(fields, fmt.Sprintf("%s=%s", key, text))
		}
		sort.Strings(fields)
		suffix := ""
		if len(fields) > 0 {
			suffix = " " + strings.Join(fields, " ")
		}
		log.Printf("module=site operation=%s%s", operation, suffix)
		return
	}

	logBuildResult(operation, envelope.Result)
}

func logBuildResult(operation string, result *generator.BuildResult) {
	if result == nil {
		return
	}
	log.Printf(
		"module=site operation=%s summary pages_built=%d pages_skipped=%d assets_built=%d feeds_built=%d errors=%d dry_run=%t duration=%s",
		operation,
		result.PagesBuilt,
		result.PagesSkipped,
		result.AssetsBuilt,
		result.FeedsBuilt,
		len(result.Errors),
		result.DryRun,
		result.Duration,
	)
}
