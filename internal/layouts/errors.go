package layouts

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownLayout = errors.New("layouts: unknown layout")
	ErrNoTemplates   = errors.New("layouts: no templates found")
	ErrDirInvalid    = errors.New("layouts: layout directory is invalid")
)

// UnknownLayoutError reports a layout name that resolves to no parsed
// template. The failure is local to the document naming the layout.
type UnknownLayoutError struct {
	Layout string
}

func (e *UnknownLayoutError) Error() string {
	if e == nil || strings.TrimSpace(e.Layout) == "" {
		return ErrUnknownLayout.Error()
	}
	return fmt.Sprintf("%s: name=%s", ErrUnknownLayout.Error(), e.Layout)
}

func (e *UnknownLayoutError) Unwrap() error {
	return ErrUnknownLayout
}
