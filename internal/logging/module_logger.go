package logging

import (
	"context"
	"strings"

	"github.com/goliatone/go-sitegen/pkg/interfaces"
)

const (
	rootModule       = "sitegen"
	markdownModule   = "sitegen.markdown"
	layoutsModule    = "sitegen.layouts"
	generatorModule  = "sitegen.generator"
	routesModule     = "sitegen.routes"
	navigationModule = "sitegen.navigation"
	shortcodeModule  = "sitegen.shortcode"
	commandsModule   = "sitegen.commands"
	watchModule      = "sitegen.watch"
	serverModule     = "sitegen.server"
)

const (
	fieldDocumentPath = "document_path"
	fieldLocale       = "locale"
	fieldErrorKind    = "error_kind"
)

// ModuleLogger returns a module-scoped logger, defaulting to a no-op
// implementation when no provider is supplied. The returned logger attaches
// the module identifier as structured context so downstream entries can be
// filtered predictably.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	if module == "" {
		module = rootModule
	}

	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}

	if fieldsLogger, ok := logger.(interfaces.FieldsLogger); ok {
		return fieldsLogger.WithFields(map[string]any{
			"module": module,
		})
	}

	return WithFields(logger, map[string]any{
		"module": module,
	})
}

// MarkdownLogger returns the logger namespace reserved for content loading and
// front matter workflows.
func MarkdownLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, markdownModule)
}

// LayoutsLogger returns the logger namespace reserved for the layout engine.
func LayoutsLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, layoutsModule)
}

// GeneratorLogger returns the logger namespace reserved for site builds.
func GeneratorLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, generatorModule)
}

// RoutesLogger returns the logger namespace reserved for permalink resolution.
func RoutesLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, routesModule)
}

// NavigationLogger returns the logger namespace reserved for menu resolution.
func NavigationLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, navigationModule)
}

// ShortcodeLogger returns the logger namespace reserved for shortcode expansion.
func ShortcodeLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, shortcodeModule)
}

// CommandsLogger returns the logger namespace reserved for command handlers.
func CommandsLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, commandsModule)
}

// WatchLogger returns the logger namespace reserved for the content watcher.
func WatchLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, watchModule)
}

// ServerLogger returns the logger namespace reserved for the preview server.
func ServerLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, serverModule)
}

// WithDocumentContext enriches the provided logger with common document fields
// such as file path, locale, and error kind. Empty values are ignored.
func WithDocumentContext(logger interfaces.Logger, path, locale, kind string) interfaces.Logger {
	fields := map[string]any{}
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		fields[fieldDocumentPath] = trimmed
	}
	if trimmed := strings.TrimSpace(locale); trimmed != "" {
		fields[fieldLocale] = trimmed
	}
	if trimmed := strings.TrimSpace(kind); trimmed != "" {
		fields[fieldErrorKind] = trimmed
	}
	return WithFields(logger, fields)
}

// NoOp returns a logger that drops every log entry. It satisfies the Logger
// contract so services can safely operate when logging is disabled.
func NoOp() interfaces.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var _ interfaces.Logger = noopLogger{}

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) interfaces.Logger {
	return n
}

func (n noopLogger) WithContext(context.Context) interfaces.Logger {
	return n
}
