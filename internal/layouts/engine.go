// Package layouts parses named HTML layouts from a directory and renders
// documents through them. Layout names resolve without their file extension,
// so front matter can say "post" and match post.html or post.tmpl.
package layouts

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Config controls where layouts are read from and which one is the fallback.
type Config struct {
	// Dir is the directory that holds .html and .tmpl layout files.
	Dir string
	// Default names the layout used when a document does not pick one.
	Default string
}

// Engine renders named layouts backed by html/template. It satisfies
// interfaces.TemplateRenderer; Render resolves layout names so callers can
// pass the bare name a document declared.
type Engine struct {
	dir      string
	fallback string

	mu      sync.Mutex
	tpl     *template.Template
	filters map[string]func(any, any) (any, error)
	globals any
}

// NewEngine validates the layout directory and returns an Engine. Templates
// are parsed lazily on first render so construction stays cheap.
func NewEngine(cfg Config) (*Engine, error) {
	dir := strings.TrimSpace(cfg.Dir)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: inspect %s: %v", ErrDirInvalid, dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrDirInvalid, dir)
	}

	return &Engine{
		dir:      dir,
		fallback: strings.TrimSpace(cfg.Default),
		filters:  map[string]func(any, any) (any, error){},
	}, nil
}

// DefaultLayout returns the configured fallback layout name.
func (e *Engine) DefaultLayout() string {
	return e.fallback
}

// Resolve maps a layout name to the parsed template that will render it. An
// empty name falls back to the configured default. Unknown names yield an
// UnknownLayoutError.
func (e *Engine) Resolve(layout string) (string, error) {
	tpl, err := e.templates()
	if err != nil {
		return "", err
	}

	name := strings.TrimSpace(layout)
	if name == "" {
		name = e.fallback
	}
	for _, candidate := range []string{name, name + ".html", name + ".tmpl"} {
		if tpl.Lookup(candidate) != nil {
			return candidate, nil
		}
	}
	return "", &UnknownLayoutError{Layout: name}
}

// Has reports whether the layout name resolves to a parsed template.
func (e *Engine) Has(layout string) bool {
	_, err := e.Resolve(layout)
	return err == nil
}

// Names returns the sorted template names currently parsed.
func (e *Engine) Names() ([]string, error) {
	tpl, err := e.templates()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, t := range tpl.Templates() {
		names = append(names, t.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Render resolves the layout name and executes it with the supplied data.
// When a writer is provided the output goes there and the returned string is
// empty; otherwise the rendered output is returned.
func (e *Engine) Render(name string, data any, out ...io.Writer) (string, error) {
	return e.RenderTemplate(name, data, out...)
}

// RenderTemplate resolves the layout name and executes the matching template.
// An empty name renders the configured default layout.
func (e *Engine) RenderTemplate(name string, data any, out ...io.Writer) (string, error) {
	resolved, err := e.Resolve(name)
	if err != nil {
		return "", err
	}
	tpl, err := e.templates()
	if err != nil {
		return "", err
	}

	var writer io.Writer
	var buffer *bytes.Buffer
	if len(out) > 0 && out[0] != nil {
		writer = out[0]
	} else {
		buffer = &bytes.Buffer{}
		writer = buffer
	}

	if err := tpl.ExecuteTemplate(writer, resolved, data); err != nil {
		return "", err
	}
	if buffer != nil {
		return buffer.String(), nil
	}
	return "", nil
}

// RenderString parses content as an inline template and executes it with the
// engine's function map.
func (e *Engine) RenderString(content string, data any, out ...io.Writer) (string, error) {
	e.mu.Lock()
	funcs := e.funcMap()
	e.mu.Unlock()

	tpl, err := template.New("inline").Funcs(funcs).Parse(content)
	if err != nil {
		return "", err
	}

	var writer io.Writer
	var buffer *bytes.Buffer
	if len(out) > 0 && out[0] != nil {
		writer = out[0]
	} else {
		buffer = &bytes.Buffer{}
		writer = buffer
	}

	if err := tpl.Execute(writer, data); err != nil {
		return "", err
	}
	if buffer != nil {
		return buffer.String(), nil
	}
	return "", nil
}

// RegisterFilter exposes fn to templates under the given name. Parsed
// templates are invalidated so the next render picks the filter up.
func (e *Engine) RegisterFilter(name string, fn func(any, any) (any, error)) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("layouts: filter name required")
	}
	if fn == nil {
		return fmt.Errorf("layouts: filter %s requires a function", name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.filters[name] = fn
	e.tpl = nil
	return nil
}

// GlobalContext stores data templates can reach through the globals function.
func (e *Engine) GlobalContext(data any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.globals = data
	return nil
}

// Reload drops the parsed template set and parses the directory again. Watch
// mode calls this after layout files change so errors surface immediately.
func (e *Engine) Reload() error {
	e.mu.Lock()
	e.tpl = nil
	e.mu.Unlock()

	_, err := e.templates()
	return err
}

func (e *Engine) templates() (*template.Template, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.tpl != nil {
		return e.tpl, nil
	}

	tpl, err := e.parseAll()
	if err != nil {
		return nil, err
	}
	e.tpl = tpl
	return tpl, nil
}

func (e *Engine) parseAll() (*template.Template, error) {
	var files []string
	err := filepath.WalkDir(e.dir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".html" && ext != ".tmpl" {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoTemplates, e.dir)
	}

	return template.New("layouts").Funcs(e.funcMap()).ParseFiles(files...)
}

// funcMap builds the template function table. Callers must hold e.mu.
func (e *Engine) funcMap() template.FuncMap {
	funcs := template.FuncMap{
		"safeHTML": func(value any) template.HTML { return toHTML(value) },
		"join": func(values []string, sep string) string {
			return strings.Join(values, sep)
		},
		"lower": strings.ToLower,
		"upper": strings.ToUpper,
		"date": func(layout string, value time.Time) string {
			return value.Format(layout)
		},
		"globals": func() any { return e.globalContext() },
	}
	for name, filter := range e.filters {
		fn := filter
		funcs[name] = func(value any, args ...any) (any, error) {
			var arg any
			if len(args) > 0 {
				arg = args[0]
			}
			return fn(value, arg)
		}
	}
	return funcs
}

func (e *Engine) globalContext() any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.globals
}

func toHTML(value any) template.HTML {
	if value == nil {
		return ""
	}
	switch v := value.(type) {
	case template.HTML:
		return v
	case string:
		return template.HTML(v)
	default:
		return template.HTML(fmt.Sprint(v))
	}
}
