package markdown

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedFrontMatter = errors.New("markdown: malformed front matter")
	ErrUnreadableFile       = errors.New("markdown: unreadable file")
	ErrSourceDirInvalid     = errors.New("markdown: source directory is invalid")
)

// FrontMatterError captures a document-local front matter failure: an opening
// delimiter without a closing one, or a block that fails to decode.
type FrontMatterError struct {
	Path   string
	Reason string
	Err    error
}

func (e *FrontMatterError) Error() string {
	if e == nil {
		return ErrMalformedFrontMatter.Error()
	}
	parts := []string{ErrMalformedFrontMatter.Error()}
	if path := strings.TrimSpace(e.Path); path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", path))
	}
	if reason := strings.TrimSpace(e.Reason); reason != "" {
		parts = append(parts, reason)
	}
	return strings.Join(parts, ": ")
}

func (e *FrontMatterError) Unwrap() error {
	return ErrMalformedFrontMatter
}

// UnreadableFileError captures filesystem failures while loading a source file.
type UnreadableFileError struct {
	Path string
	Err  error
}

func (e *UnreadableFileError) Error() string {
	if e == nil {
		return ErrUnreadableFile.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: path=%s: %v", ErrUnreadableFile.Error(), e.Path, e.Err)
	}
	return fmt.Sprintf("%s: path=%s", ErrUnreadableFile.Error(), e.Path)
}

func (e *UnreadableFileError) Unwrap() error {
	return ErrUnreadableFile
}
