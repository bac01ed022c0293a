package shortcode

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/goliatone/go-sitegen/internal/logging"
	"github.com/goliatone/go-sitegen/pkg/interfaces"
)

func newTestService(tb testing.TB, opts ...ServiceOption) *Service {
	tb.Helper()

	registry := NewRegistry(NewValidator())
	if err := RegisterBuiltIns(registry, nil); err != nil {
		tb.Fatalf("RegisterBuiltIns() unexpected error: %v", err)
	}

	opts = append([]ServiceOption{WithLogger(logging.NoOp())}, opts...)
	return NewService(registry, opts...)
}

func TestServiceProcess_RendersBuiltIns(t *testing.T) {
	service := newTestService(t)

	content := `Intro.

{{< youtube id="dQw4w9WgXcQ" >}}

{{< alert type="info" >}}Be kind.{{< /alert >}}
`

	out, err := service.Process(context.Background(), content, "en")
	if err != nil {
		t.Fatalf("Process() unexpected error: %v", err)
	}

	if !strings.Contains(out, `src="https://www.youtube.com/embed/dQw4w9WgXcQ"`) {
		t.Fatalf("expected youtube embed in output, got %s", out)
	}
	if !strings.Contains(out, "shortcode--alert-info") {
		t.Fatalf("expected alert markup in output, got %s", out)
	}
	if !strings.Contains(out, "Be kind.") {
		t.Fatalf("expected alert inner content in output, got %s", out)
	}
	if strings.Contains(out, "<!-- shortcode:") {
		t.Fatalf("expected placeholders replaced, got %s", out)
	}
}

func TestServiceProcess_WordPressSyntax(t *testing.T) {
	service := newTestService(t, WithWordPressSyntax(true))

	out, err := service.Process(context.Background(), `[alert type="success"]Done[/alert]`, "en")
	if err != nil {
		t.Fatalf("Process() unexpected error: %v", err)
	}

	if !strings.Contains(out, "shortcode--alert-success") {
		t.Fatalf("expected converted alert markup, got %s", out)
	}
	if !strings.Contains(out, "Done") {
		t.Fatalf("expected inner content preserved, got %s", out)
	}
}

func TestServiceProcess_UnknownShortcode(t *testing.T) {
	service := newTestService(t)

	_, err := service.Process(context.Background(), "{{< nonexistent >}}", "en")
	if !errors.Is(err, ErrUnknownShortcode) {
		t.Fatalf("expected ErrUnknownShortcode, got %v", err)
	}
}

func TestServiceProcess_ValidationFailure(t *testing.T) {
	service := newTestService(t)

	_, err := service.Process(context.Background(), `{{< alert type="shout" >}}Hi{{< /alert >}}`, "en")
	if err == nil {
		t.Fatal("expected error for unsupported alert type")
	}
}

func TestServiceProcess_PassthroughWithoutShortcodes(t *testing.T) {
	service := newTestService(t)

	content := "# Plain heading\n\nNo shortcodes here."
	out, err := service.Process(context.Background(), content, "en")
	if err != nil {
		t.Fatalf("Process() unexpected error: %v", err)
	}
	if out != content {
		t.Fatalf("expected passthrough, got %q", out)
	}

	if out, err := service.Process(context.Background(), "   ", "en"); err != nil || out != "   " {
		t.Fatalf("expected blank content untouched, got %q err %v", out, err)
	}
}

func TestServiceRender_Single(t *testing.T) {
	service := newTestService(t)

	html, err := service.Render(interfaces.ShortcodeContext{Locale: "en"}, "figure", map[string]any{
		"src":     "/img/cat.jpg",
		"caption": "A cat",
	}, "")
	if err != nil {
		t.Fatalf("Render() unexpected error: %v", err)
	}

	got := string(html)
	if !strings.Contains(got, `src="/img/cat.jpg"`) {
		t.Fatalf("expected figure image source, got %s", got)
	}
	if !strings.Contains(got, "<figcaption>A cat</figcaption>") {
		t.Fatalf("expected caption markup, got %s", got)
	}
}

func TestServiceProcess_CustomParser(t *testing.T) {
	parser := stubParser{
		transformed: "prefix <!-- shortcode:0 --> suffix",
		shortcodes: []interfaces.ParsedShortcode{
			{Name: "alert", Params: map[string]any{"type": "info"}, Inner: "ok"},
		},
	}
	service := newTestService(t, WithParser(parser))

	out, err := service.Process(context.Background(), "ignored", "en")
	if err != nil {
		t.Fatalf("Process() unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, "prefix ") || !strings.HasSuffix(out, " suffix") {
		t.Fatalf("expected surrounding text preserved, got %s", out)
	}
	if !strings.Contains(out, "shortcode--alert-info") {
		t.Fatalf("expected rendered shortcode in place of placeholder, got %s", out)
	}
}

func TestNoOpProcessor(t *testing.T) {
	content := `{{< youtube id="x" >}}`
	out, err := NewNoOpProcessor().Process(context.Background(), content, "en")
	if err != nil {
		t.Fatalf("Process() unexpected error: %v", err)
	}
	if out != content {
		t.Fatalf("expected content untouched, got %q", out)
	}
}

type stubParser struct {
	transformed string
	shortcodes  []interfaces.ParsedShortcode
	err         error
}

func (p stubParser) Parse(string) ([]interfaces.ParsedShortcode, error) {
	return p.shortcodes, p.err
}

func (p stubParser) Extract(string) (string, []interfaces.ParsedShortcode, error) {
	return p.transformed, p.shortcodes, p.err
}
