package di

import (
	"context"
	"testing"

	"github.com/goliatone/go-sitegen/pkg/interfaces"
)

func TestConfigureLoggerProviderDefaultsToConsole(t *testing.T) {
	cfg := testSiteConfig(t)
	cfg.Features.Logger = true
	cfg.Logging.Provider = "console"
	cfg.Logging.Level = "warn"

	container, err := NewContainer(cfg)
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}

	provider := container.LoggerProvider()
	if provider == nil {
		t.Fatal("expected console logger provider")
	}
	if provider.GetLogger("sitegen.test") == nil {
		t.Fatal("expected logger from console provider")
	}
}

func TestConfigureLoggerProviderKeepsOverride(t *testing.T) {
	cfg := testSiteConfig(t)

	override := &staticLoggerProvider{}
	container, err := NewContainer(cfg, WithLoggerProvider(override))
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}

	// The override wins even while the logging feature is off.
	if container.LoggerProvider() != interfaces.LoggerProvider(override) {
		t.Fatalf("expected logger provider override, got %T", container.LoggerProvider())
	}
}

type staticLoggerProvider struct{}

func (staticLoggerProvider) GetLogger(string) interfaces.Logger {
	return noOpTestLogger{}
}

type noOpTestLogger struct{}

func (noOpTestLogger) Trace(string, ...any) {}
func (noOpTestLogger) Debug(string, ...any) {}
func (noOpTestLogger) Info(string, ...any)  {}
func (noOpTestLogger) Warn(string, ...any)  {}
func (noOpTestLogger) Error(string, ...any) {}
func (noOpTestLogger) Fatal(string, ...any) {}

func (l noOpTestLogger) WithContext(context.Context) interfaces.Logger {
	return l
}
