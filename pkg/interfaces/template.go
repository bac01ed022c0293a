package interfaces

import (
	"io"
)

// TemplateRenderer abstracts the layout template engine used by the site
// assembler. Render and RenderTemplate resolve a named template; RenderString
// executes an inline template. When no writer is supplied the rendered output
// is returned as a string.
type TemplateRenderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	RenderString(templateContent string, data any, out ...io.Writer) (string, error)
	RegisterFilter(name string, fn func(input any, param any) (any, error)) error
	GlobalContext(data any) error
}
