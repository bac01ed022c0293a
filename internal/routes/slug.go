package routes

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/goliatone/go-slug"

	"github.com/goliatone/go-sitegen/pkg/interfaces"
)

// indexSlug collapses a document onto its section root instead of a child path.
const indexSlug = "index"

var datedName = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-(.+)$`)

// DeriveSlug picks the slug for a document: explicit front matter first, then
// the file name with any date prefix and locale suffix stripped, then the
// title. Translations named like post.es.md therefore share the slug of their
// default locale sibling. Every candidate runs through the slug normalizer so
// the result is URL safe.
func DeriveSlug(doc *interfaces.Document) (string, error) {
	if doc == nil {
		return "", ErrDocumentRequired
	}

	if candidate := strings.TrimSpace(doc.FrontMatter.Slug); candidate != "" {
		if normalized, err := slug.Normalize(candidate); err == nil && normalized != "" {
			return normalized, nil
		}
	}

	stem := FileStem(doc.FilePath)
	if _, rest, ok := FilenameDate(stem); ok {
		stem = rest
	}
	if locale := strings.ToLower(strings.TrimSpace(doc.Locale)); locale != "" {
		stem = strings.TrimSuffix(stem, "."+locale)
	}
	if normalized, err := slug.Normalize(stem); err == nil && normalized != "" {
		return normalized, nil
	}

	if title := strings.TrimSpace(doc.FrontMatter.Title); title != "" {
		if normalized, err := slug.Normalize(title); err == nil && normalized != "" {
			return normalized, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrNoSlug, doc.FilePath)
}

// FileStem returns the base file name without its extension.
func FileStem(path string) string {
	base := filepath.Base(filepath.ToSlash(strings.TrimSpace(path)))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// FilenameDate splits a YYYY-MM-DD- prefix off a file stem. The boolean
// reports whether a valid date prefix was found; the string is the stem with
// the prefix removed.
func FilenameDate(stem string) (time.Time, string, bool) {
	matches := datedName.FindStringSubmatch(stem)
	if matches == nil {
		return time.Time{}, stem, false
	}
	parsed, err := time.Parse("2006-01-02", matches[1])
	if err != nil {
		return time.Time{}, stem, false
	}
	return parsed, matches[2], true
}

// EffectiveDate resolves a document's publication date: front matter wins,
// then a date prefix on the file name. Zero means the document is undated.
func EffectiveDate(doc *interfaces.Document) time.Time {
	if doc == nil {
		return time.Time{}
	}
	if !doc.FrontMatter.Date.IsZero() {
		return doc.FrontMatter.Date
	}
	if date, _, ok := FilenameDate(FileStem(doc.FilePath)); ok {
		return date
	}
	return time.Time{}
}

// Section returns the first path segment under the content root, after any
// leading locale directory. Documents at the root have no section.
func Section(filePath, locale string) string {
	cleaned := filepath.ToSlash(strings.TrimSpace(filePath))
	segments := strings.Split(cleaned, "/")
	locale = strings.TrimSpace(locale)
	if len(segments) > 0 && locale != "" && segments[0] == locale {
		segments = segments[1:]
	}
	if len(segments) <= 1 {
		return ""
	}
	return segments[0]
}
