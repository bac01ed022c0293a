package markdown

import (
	"bytes"
	"time"

	"github.com/adrg/frontmatter"

	"github.com/goliatone/go-sitegen/pkg/interfaces"
)

// frontMatterDelimiter opens and closes a YAML metadata block.
const frontMatterDelimiter = "---"

// ParseFrontMatter extracts metadata and Markdown body content from the
// provided source bytes. It returns the structured front matter, the Markdown
// body without delimiters, and any error encountered.
//
// Content without an opening delimiter is returned verbatim as the body with
// empty metadata. An opening delimiter that is never closed yields a
// FrontMatterError; the document produces no output in that case.
func ParseFrontMatter(source []byte) (interfaces.FrontMatter, []byte, error) {
	if opensFrontMatter(source) && !closesFrontMatter(source) {
		return interfaces.FrontMatter{}, nil, &FrontMatterError{
			Reason: "missing closing delimiter",
		}
	}

	var meta frontMatterEnvelope
	body, err := frontmatter.Parse(bytes.NewReader(source), &meta)
	if err != nil {
		return interfaces.FrontMatter{}, nil, &FrontMatterError{
			Reason: "decode metadata block",
			Err:    err,
		}
	}

	raw := map[string]any{}
	if _, err := frontmatter.Parse(bytes.NewReader(source), &raw); err != nil {
		return interfaces.FrontMatter{}, nil, &FrontMatterError{
			Reason: "decode metadata block",
			Err:    err,
		}
	}

	return envelopeToFrontMatter(meta, raw), body, nil
}

// BuildDocument assembles an interfaces.Document from the supplied file path,
// locale, raw content, and modification time. BodyHTML is intentionally left
// empty so callers can render lazily.
func BuildDocument(path string, locale string, source []byte, modified time.Time) (*interfaces.Document, error) {
	fm, body, err := ParseFrontMatter(source)
	if err != nil {
		if fmErr, ok := err.(*FrontMatterError); ok && fmErr.Path == "" {
			fmErr.Path = path
		}
		return nil, err
	}

	return &interfaces.Document{
		FilePath:     path,
		Locale:       locale,
		FrontMatter:  fm,
		Body:         body,
		LastModified: modified,
	}, nil
}

// opensFrontMatter reports whether the first line is the YAML delimiter.
func opensFrontMatter(source []byte) bool {
	line, _, _ := bytes.Cut(source, []byte("\n"))
	return string(bytes.TrimRight(line, "\r")) == frontMatterDelimiter
}

// closesFrontMatter reports whether a closing delimiter line follows the
// opening one. The YAML document terminator "..." is accepted as well, which
// matches the formats the parser library understands.
func closesFrontMatter(source []byte) bool {
	_, rest, found := bytes.Cut(source, []byte("\n"))
	if !found {
		return false
	}
	for {
		line, remainder, more := bytes.Cut(rest, []byte("\n"))
		trimmed := string(bytes.TrimRight(line, "\r"))
		if trimmed == frontMatterDelimiter || trimmed == "..." {
			return true
		}
		if !more {
			return false
		}
		rest = remainder
	}
}

type frontMatterEnvelope struct {
	Layout    string         `yaml:"layout"`
	Title     string         `yaml:"title"`
	Slug      string         `yaml:"slug"`
	Summary   string         `yaml:"summary"`
	Permalink string         `yaml:"permalink"`
	Tags      []string       `yaml:"tags"`
	Author    string         `yaml:"author"`
	Date      time.Time      `yaml:"date"`
	Draft     bool           `yaml:"draft"`
	Custom    map[string]any `yaml:",inline"`
}

// envelopeToFrontMatter merges the typed envelope with the raw metadata map.
// Raw comes from a second decoding pass over the same block so it reproduces
// the source key set exactly; typed fields are projections of those keys.
func envelopeToFrontMatter(env frontMatterEnvelope, raw map[string]any) interfaces.FrontMatter {
	if env.Custom == nil {
		env.Custom = map[string]any{}
	}
	if raw == nil {
		raw = map[string]any{}
	}

	return interfaces.FrontMatter{
		Layout:    env.Layout,
		Title:     env.Title,
		Slug:      env.Slug,
		Summary:   env.Summary,
		Permalink: env.Permalink,
		Tags:      append([]string(nil), env.Tags...),
		Author:    env.Author,
		Date:      env.Date,
		Draft:     env.Draft,
		Custom:    cloneMap(env.Custom),
		Raw:       raw,
	}
}

func cloneMap(input map[string]any) map[string]any {
	if input == nil {
		return map[string]any{}
	}

	out := make(map[string]any, len(input))
	for key, value := range input {
		out[key] = value
	}
	return out
}
