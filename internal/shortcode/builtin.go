package shortcode

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strconv"

	"github.com/goliatone/go-sitegen/pkg/interfaces"
)

// BuiltInDefinitions returns the core shortcode catalogue shipped with go-sitegen.
func BuiltInDefinitions() []interfaces.ShortcodeDefinition {
	return []interfaces.ShortcodeDefinition{
		youTubeDefinition(),
		alertDefinition(),
		figureDefinition(),
		codeDefinition(),
	}
}

// templateHandler adapts a precompiled template into a shortcode handler.
// Coerced parameters become template data alongside the inner content, which
// is exposed as .Inner and escaped on interpolation.
func templateHandler(tmpl *template.Template) interfaces.ShortcodeHandler {
	return func(_ interfaces.ShortcodeContext, params map[string]any, inner string) (template.HTML, error) {
		data := make(map[string]any, len(params)+1)
		for key, value := range params {
			data[key] = value
		}
		data["Inner"] = inner
		return executeTemplate(tmpl, data)
	}
}

func executeTemplate(tmpl *template.Template, data map[string]any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

var youtubeTemplate = template.Must(template.New("youtube").Parse(`<div class="shortcode shortcode--youtube">
  <iframe src="{{ .Src }}" title="YouTube video" loading="lazy" allowfullscreen></iframe>
</div>`))

func youTubeDefinition() interfaces.ShortcodeDefinition {
	return interfaces.ShortcodeDefinition{
		Name:        "youtube",
		Description: "Embeds a responsive YouTube iframe player",
		AllowInner:  false,
		Schema: interfaces.ShortcodeSchema{
			Params: []interfaces.ShortcodeParam{
				{
					Name:     "id",
					Type:     interfaces.ShortcodeParamString,
					Required: true,
				},
				{
					Name:    "start",
					Type:    interfaces.ShortcodeParamInt,
					Default: 0,
				},
				{
					Name:    "autoplay",
					Type:    interfaces.ShortcodeParamBool,
					Default: false,
				},
			},
		},
		Handler: youTubeHandler,
	}
}

// youTubeHandler assembles the embed URL itself so the query string stays
// well formed whichever combination of start and autoplay is supplied.
func youTubeHandler(_ interfaces.ShortcodeContext, params map[string]any, _ string) (template.HTML, error) {
	id, _ := params["id"].(string)

	query := url.Values{}
	if start, ok := params["start"].(int); ok && start > 0 {
		query.Set("start", strconv.Itoa(start))
	}
	if autoplay, ok := params["autoplay"].(bool); ok && autoplay {
		query.Set("autoplay", "1")
	}

	src := "https://www.youtube.com/embed/" + url.PathEscape(id)
	if encoded := query.Encode(); encoded != "" {
		src += "?" + encoded
	}

	return executeTemplate(youtubeTemplate, map[string]any{"Src": src})
}

var alertTemplate = template.Must(template.New("alert").Parse(`<div class="shortcode shortcode--alert shortcode--alert-{{ .type }}">
  {{ if .title }}<div class="shortcode__title">{{ .title }}</div>{{ end }}
  <div class="shortcode__body">{{ .Inner }}</div>
</div>`))

func alertDefinition() interfaces.ShortcodeDefinition {
	validateType := func(value any) error {
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("alert type must be string")
		}
		switch str {
		case "info", "success", "warning", "danger":
			return nil
		default:
			return fmt.Errorf("alert type %q not supported", str)
		}
	}

	return interfaces.ShortcodeDefinition{
		Name:        "alert",
		Description: "Displays contextual alert callouts",
		AllowInner:  true,
		Schema: interfaces.ShortcodeSchema{
			Params: []interfaces.ShortcodeParam{
				{
					Name:     "type",
					Type:     interfaces.ShortcodeParamString,
					Required: true,
					Validate: validateType,
				},
				{
					Name: "title",
					Type: interfaces.ShortcodeParamString,
				},
			},
		},
		Handler: templateHandler(alertTemplate),
	}
}

var figureTemplate = template.Must(template.New("figure").Parse(`<figure class="shortcode shortcode--figure">
  <img src="{{ .src }}" alt="{{ .alt }}" loading="lazy" />
  {{ if .caption }}<figcaption>{{ .caption }}</figcaption>{{ end }}
</figure>`))

func figureDefinition() interfaces.ShortcodeDefinition {
	return interfaces.ShortcodeDefinition{
		Name:        "figure",
		Description: "Image figure with caption support",
		AllowInner:  false,
		Schema: interfaces.ShortcodeSchema{
			Params: []interfaces.ShortcodeParam{
				{
					Name:     "src",
					Type:     interfaces.ShortcodeParamString,
					Required: true,
				},
				{
					Name:    "alt",
					Type:    interfaces.ShortcodeParamString,
					Default: "",
				},
				{
					Name: "caption",
					Type: interfaces.ShortcodeParamString,
				},
			},
		},
		Handler: templateHandler(figureTemplate),
	}
}

var codeTemplate = template.Must(template.New("code").Parse(`<div class="shortcode shortcode--code">
  {{ if .title }}<div class="shortcode__code-title">{{ .title }}</div>{{ end }}
  <pre class="shortcode__code-block language-{{ .lang }}{{ if .line_numbers }} shortcode__code-block--lines{{ end }}"><code>{{ .Inner }}</code></pre>
</div>`))

func codeDefinition() interfaces.ShortcodeDefinition {
	return interfaces.ShortcodeDefinition{
		Name:        "code",
		Description: "Syntax highlighted code block",
		AllowInner:  true,
		Schema: interfaces.ShortcodeSchema{
			Params: []interfaces.ShortcodeParam{
				{
					Name:     "lang",
					Type:     interfaces.ShortcodeParamString,
					Required: true,
				},
				{
					Name: "title",
					Type: interfaces.ShortcodeParamString,
				},
				{
					Name:    "line_numbers",
					Type:    interfaces.ShortcodeParamBool,
					Default: true,
				},
			},
		},
		Handler: templateHandler(codeTemplate),
	}
}
