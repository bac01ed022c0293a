package interfaces

import (
	"context"
	"html/template"
)

// ShortcodeRegistry describes the lifecycle contract for registering and
// resolving shortcode definitions. Implementations must be safe for
// concurrent use.
type ShortcodeRegistry interface {
	// Register stores a definition and returns an error when a shortcode
	// with the same name already exists or the definition fails validation.
	Register(definition ShortcodeDefinition) error

	// Get returns the definition for the supplied shortcode name.
	Get(name string) (ShortcodeDefinition, bool)

	// List exposes the current catalogue, sorted at the implementor's discretion.
	List() []ShortcodeDefinition

	// Remove deletes the shortcode from the registry. Removing an unknown
	// shortcode must be a no-op.
	Remove(name string)
}

// ShortcodeParser extracts shortcode invocations from arbitrary content.
type ShortcodeParser interface {
	Parse(content string) ([]ParsedShortcode, error)
	Extract(content string) (placeholders string, shortcodes []ParsedShortcode, err error)
}

// ShortcodeProcessor expands every shortcode invocation found in content and
// returns the resulting markup. Implementations treat content without
// shortcodes as a passthrough.
type ShortcodeProcessor interface {
	Process(ctx context.Context, content string, locale string) (string, error)
}

// ShortcodeDefinition captures the metadata, parameter schema, and handler
// that the registry stores.
type ShortcodeDefinition struct {
	Name        string
	Description string
	AllowInner  bool
	Schema      ShortcodeSchema
	Handler     ShortcodeHandler
}

// ShortcodeSchema defines the contract for parameters accepted by a shortcode.
type ShortcodeSchema struct {
	Params   []ShortcodeParam
	Defaults map[string]any
}

// ShortcodeParam describes a single parameter, including optional custom validation.
type ShortcodeParam struct {
	Name     string
	Type     ShortcodeParamType
	Required bool
	Default  any
	Validate ShortcodeValidator
}

// ShortcodeParamType enumerates the supported parameter coercions.
type ShortcodeParamType string

const (
	ShortcodeParamString ShortcodeParamType = "string"
	ShortcodeParamInt    ShortcodeParamType = "int"
	ShortcodeParamBool   ShortcodeParamType = "bool"
	ShortcodeParamURL    ShortcodeParamType = "url"
)

// ShortcodeValidator allows definitions to perform custom validation.
type ShortcodeValidator func(value any) error

// ShortcodeHandler executes the shortcode with resolved parameters.
type ShortcodeHandler func(ctx ShortcodeContext, params map[string]any, inner string) (template.HTML, error)

// ShortcodeContext provides runtime metadata surfaced during rendering.
type ShortcodeContext struct {
	Context context.Context
	Locale  string
}

// ParsedShortcode represents a parsed invocation discovered by the parser layer.
type ParsedShortcode struct {
	Name   string
	Params map[string]any
	Inner  string
}
