package runtimeconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfigFileNotFound indicates the named site config file does not exist.
var ErrConfigFileNotFound = errors.New("sitegen config: config file not found")

// DefaultConfigFile is the conventional site config name looked up by the CLI
// when no explicit path is supplied.
const DefaultConfigFile = "sitegen.yaml"

// LoadFile reads a YAML site config and overlays it on DefaultConfig. Unknown
// keys are rejected so typos surface immediately. The merged config is
// validated before being returned.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()

	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		trimmed = DefaultConfigFile
	}

	data, err := os.ReadFile(trimmed)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("%w: %s", ErrConfigFileNotFound, trimmed)
		}
		return cfg, fmt.Errorf("sitegen config: read %s: %w", trimmed, err)
	}

	if err := unmarshalStrict(data, &cfg); err != nil {
		return cfg, fmt.Errorf("sitegen config: parse %s: %w", trimmed, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadFileIfPresent behaves like LoadFile but falls back to defaults when the
// file is missing. Callers that treat the config file as optional (e.g. the
// CLI scanning for sitegen.yaml) use this variant.
func LoadFileIfPresent(path string) (Config, error) {
	cfg, err := LoadFile(path)
	if errors.Is(err, ErrConfigFileNotFound) {
		return DefaultConfig(), nil
	}
	return cfg, err
}

func unmarshalStrict(data []byte, cfg *Config) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		// An empty config file keeps the defaults.
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

// Duration wraps time.Duration so YAML configs accept human-readable values
// like "30s" or "200ms" alongside plain nanosecond integers.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case int:
		*d = Duration(time.Duration(v))
		return nil
	case int64:
		*d = Duration(time.Duration(v))
		return nil
	case float64:
		*d = Duration(time.Duration(v))
		return nil
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
		return nil
	default:
		return fmt.Errorf("invalid duration value %v", raw)
	}
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }
