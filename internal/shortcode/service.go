package shortcode

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/goliatone/go-sitegen/internal/logging"
	parserpkg "github.com/goliatone/go-sitegen/internal/shortcode/parser"
	"github.com/goliatone/go-sitegen/pkg/interfaces"
)

// placeholderFormat is the marker emitted by the parser when extracting shortcodes.
const placeholderFormat = "<!-- shortcode:%d -->"

// Service orchestrates shortcode parsing and rendering for document content.
// It extracts every invocation, executes the registered handler for each, and
// splices the rendered markup back into the surrounding content.
type Service struct {
	registry         interfaces.ShortcodeRegistry
	validator        *Validator
	parser           interfaces.ShortcodeParser
	preprocessor     *parserpkg.WordPressPreprocessor
	logger           interfaces.Logger
	wordpressEnabled bool
}

// ServiceOption customises service behaviour.
type ServiceOption func(*Service)

// WithWordPressSyntax toggles support for the WordPress-style [] shortcode syntax.
func WithWordPressSyntax(enabled bool) ServiceOption {
	return func(s *Service) {
		s.wordpressEnabled = enabled
	}
}

// WithLogger attaches a logger used for structured diagnostics.
func WithLogger(logger interfaces.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithParser overrides the Hugo-style parser used to extract shortcodes.
func WithParser(parser interfaces.ShortcodeParser) ServiceOption {
	return func(s *Service) {
		if parser != nil {
			s.parser = parser
		}
	}
}

// WithWordPressPreprocessor allows callers to supply a custom WordPress preprocessor.
func WithWordPressPreprocessor(pre *parserpkg.WordPressPreprocessor) ServiceOption {
	return func(s *Service) {
		if pre != nil {
			s.preprocessor = pre
		}
	}
}

// NewService constructs a shortcode service backed by the supplied registry.
func NewService(registry interfaces.ShortcodeRegistry, opts ...ServiceOption) *Service {
	service := &Service{
		registry:     registry,
		validator:    NewValidator(),
		parser:       parserpkg.NewHugoParser(),
		preprocessor: parserpkg.NewWordPressPreprocessor(),
		logger:       logging.NoOp(),
	}

	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Process renders any shortcodes found within the content string, returning
// the resulting markup. Content without shortcodes passes through untouched.
func (s *Service) Process(ctx context.Context, content string, locale string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return content, nil
	}
	if s.registry == nil || s.parser == nil {
		return "", fmt.Errorf("shortcode: service not initialised")
	}

	logger := logging.WithFields(s.baseLogger(ctx), map[string]any{
		"operation": "shortcode.process",
	})

	material := content
	if s.wordpressEnabled && s.preprocessor != nil {
		material = s.preprocessor.Process(material)
	}

	transformed, parsed, err := s.parser.Extract(material)
	if err != nil {
		logging.WithFields(logger, map[string]any{
			"error": err,
		}).Error("shortcode.service.parse_failed")
		return "", err
	}
	if len(parsed) == 0 {
		return transformed, nil
	}

	shortcodeCtx := interfaces.ShortcodeContext{
		Context: ctx,
		Locale:  locale,
	}
	if shortcodeCtx.Context == nil {
		shortcodeCtx.Context = context.Background()
	}

	output := transformed
	for idx, sc := range parsed {
		rendered, err := s.Render(shortcodeCtx, sc.Name, sc.Params, sc.Inner)
		if err != nil {
			logging.WithFields(logger, map[string]any{
				"shortcode": sc.Name,
				"index":     idx,
				"error":     err,
			}).Error("shortcode.service.render_failed")
			return "", err
		}

		placeholder := fmt.Sprintf(placeholderFormat, idx)
		output = strings.ReplaceAll(output, placeholder, string(rendered))
	}

	logging.WithFields(logger, map[string]any{
		"shortcodes": len(parsed),
	}).Debug("shortcode.service.process_completed")
	return output, nil
}

// Render executes a single shortcode definition and returns the HTML output.
func (s *Service) Render(ctx interfaces.ShortcodeContext, shortcode string, params map[string]any, inner string) (template.HTML, error) {
	if s.registry == nil {
		return "", fmt.Errorf("shortcode: service not initialised")
	}
	if ctx.Context == nil {
		ctx.Context = context.Background()
	}

	def, ok := s.registry.Get(shortcode)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownShortcode, shortcode)
	}

	validator := s.validator
	if validator == nil {
		validator = NewValidator()
	}
	coerced, err := validator.CoerceParams(def, params)
	if err != nil {
		return "", err
	}

	if def.Handler == nil {
		return "", fmt.Errorf("shortcode: definition %s has no handler", shortcode)
	}
	return def.Handler(ctx, coerced, inner)
}

// Registry exposes the underlying shortcode registry.
func (s *Service) Registry() interfaces.ShortcodeRegistry {
	return s.registry
}

// Ensure Service satisfies the processor contract consumed by the generator.
var _ interfaces.ShortcodeProcessor = (*Service)(nil)

type noOpProcessor struct{}

// NewNoOpProcessor returns a processor that leaves content untouched.
func NewNoOpProcessor() interfaces.ShortcodeProcessor {
	return noOpProcessor{}
}

func (noOpProcessor) Process(_ context.Context, content string, _ string) (string, error) {
	return content, nil
}

func (s *Service) baseLogger(ctx context.Context) interfaces.Logger {
	logger := s.logger
	if logger == nil {
		logger = logging.NoOp()
	}
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	return logger
}
