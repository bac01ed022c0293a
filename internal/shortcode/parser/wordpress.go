package parser

import (
	"fmt"
	"regexp"
	"strings"
)

var wpTagPattern = regexp.MustCompile(`\[(\/?)([a-zA-Z0-9_\-]+)([^\]]*)\]`)

// WordPressPreprocessor converts WordPress-style bracket shortcodes into the
// Hugo syntax understood by HugoParser. Content without brackets passes
// through untouched.
type WordPressPreprocessor struct{}

// NewWordPressPreprocessor constructs a preprocessor.
func NewWordPressPreprocessor() *WordPressPreprocessor {
	return &WordPressPreprocessor{}
}

// Process rewrites bracket shortcodes into Hugo-style equivalents.
func (p *WordPressPreprocessor) Process(content string) string {
	if !strings.Contains(content, "[") {
		return content
	}

	return wpTagPattern.ReplaceAllStringFunc(content, func(tag string) string {
		matches := wpTagPattern.FindStringSubmatch(tag)
		if len(matches) < 3 {
			return tag
		}

		isClosing := matches[1] == "/"
		name := matches[2]
		rawAttr := strings.TrimSpace(matches[3])

		if isClosing {
			return fmt.Sprintf("{{< /%s >}}", name)
		}

		// A trailing slash marks the WordPress self-closing form.
		if strings.HasSuffix(rawAttr, "/") {
			rawAttr = strings.TrimSpace(strings.TrimSuffix(rawAttr, "/"))
		}

		if rawAttr == "" {
			return fmt.Sprintf("{{< %s >}}", name)
		}
		return fmt.Sprintf("{{< %s %s >}}", name, rawAttr)
	})
}
