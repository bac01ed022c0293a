package runtimeconfig_test

import (
	"errors"
	"testing"

	"github.com/goliatone/go-sitegen/internal/runtimeconfig"
)

func TestConfigValidate_DefaultsAreValid(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() returned unexpected error: %v", err)
	}
}

func TestConfigValidate_RequiresContentDir(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Content.Dir = " "

	err := cfg.Validate()
	if !errors.Is(err, runtimeconfig.ErrContentDirRequired) {
		t.Fatalf("expected ErrContentDirRequired, got %v", err)
	}
}

func TestConfigValidate_RequiresLayoutDir(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Layouts.Dir = ""

	err := cfg.Validate()
	if !errors.Is(err, runtimeconfig.ErrLayoutDirRequired) {
		t.Fatalf("expected ErrLayoutDirRequired, got %v", err)
	}
}

func TestConfigValidate_RequiresDefaultLayout(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Layouts.Default = ""

	err := cfg.Validate()
	if !errors.Is(err, runtimeconfig.ErrDefaultLayoutRequired) {
		t.Fatalf("expected ErrDefaultLayoutRequired, got %v", err)
	}
}

func TestConfigValidate_RequiresOutputDir(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Generator.OutputDir = " "

	err := cfg.Validate()
	if !errors.Is(err, runtimeconfig.ErrOutputDirRequired) {
		t.Fatalf("expected ErrOutputDirRequired, got %v", err)
	}
}

func TestConfigValidate_RejectsNegativeWorkers(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Generator.Workers = -1

	err := cfg.Validate()
	if !errors.Is(err, runtimeconfig.ErrWorkersInvalid) {
		t.Fatalf("expected ErrWorkersInvalid, got %v", err)
	}
}

func TestConfigValidate_ThemeRequiresFeatureFlag(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Theme.Name = "marketing"

	err := cfg.Validate()
	if !errors.Is(err, runtimeconfig.ErrThemesFeatureRequired) {
		t.Fatalf("expected ErrThemesFeatureRequired, got %v", err)
	}

	cfg.Features.Themes = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() returned unexpected error: %v", err)
	}
}

func TestConfigValidate_MenusRequireNavigationFeature(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Navigation.Menus = map[string][]runtimeconfig.MenuItemConfig{
		"main": {{Label: "Home", URL: "/"}},
	}

	err := cfg.Validate()
	if !errors.Is(err, runtimeconfig.ErrNavigationFeatureRequired) {
		t.Fatalf("expected ErrNavigationFeatureRequired, got %v", err)
	}

	cfg.Features.Navigation = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() returned unexpected error: %v", err)
	}
}

func TestConfigValidate_RequiresLoggingProviderWhenFeatureEnabled(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Features.Logger = true
	cfg.Logging.Provider = ""

	err := cfg.Validate()
	if !errors.Is(err, runtimeconfig.ErrLoggingProviderRequired) {
		t.Fatalf("expected ErrLoggingProviderRequired, got %v", err)
	}
}

func TestConfigValidate_RejectsUnknownLoggingProvider(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Features.Logger = true
	cfg.Logging.Provider = "syslog"

	err := cfg.Validate()
	if !errors.Is(err, runtimeconfig.ErrLoggingProviderUnknown) {
		t.Fatalf("expected ErrLoggingProviderUnknown, got %v", err)
	}
}

func TestConfigValidate_RejectsInvalidLoggingFormat(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Features.Logger = true
	cfg.Logging.Provider = "gologger"
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	if !errors.Is(err, runtimeconfig.ErrLoggingFormatInvalid) {
		t.Fatalf("expected ErrLoggingFormatInvalid, got %v", err)
	}
}
