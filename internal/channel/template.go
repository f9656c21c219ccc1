package channel

import (
	"context"
	"strings"
	"text/template"

	"transmit/internal/types"
)

// TemplateEngine renders a resolved template string against the content
// model of a dispatch.
type TemplateEngine interface {
	Render(ctx context.Context, tmpl string, model any) (string, error)
}

// TextTemplateEngine renders with text/template. Missing keys render as
// the zero value rather than "<no value>".
type TextTemplateEngine struct {
	funcs template.FuncMap
}

// NewTextTemplateEngine returns an engine with the given helper functions
// available to templates, plus "upper", "lower" and "default".
func NewTextTemplateEngine(funcs template.FuncMap) *TextTemplateEngine {
	merged := template.FuncMap{
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"default": func(def string, v any) any {
			if v == nil || v == "" {
				return def
			}
			return v
		},
	}
	for k, f := range funcs {
		merged[k] = f
	}
	return &TextTemplateEngine{funcs: merged}
}

// Render parses and executes tmpl. Templates are parsed per call; the
// engine holds no state between renders.
func (e *TextTemplateEngine) Render(_ context.Context, tmpl string, model any) (string, error) {
	t, err := template.New("message").Funcs(e.funcs).Option("missingkey=zero").Parse(tmpl)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := t.Execute(&sb, model); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// ContentTemplate is a message-like configuration field: a template that is
// either static or resolved per dispatch, optionally rendered by an engine
// against the content model.
type ContentTemplate struct {
	value  Value[string]
	engine TemplateEngine
}

// NewContentTemplate returns an unconfigured template.
func NewContentTemplate() *ContentTemplate {
	return &ContentTemplate{}
}

// AddStringTemplate configures a fixed template, replacing any previous one.
func (t *ContentTemplate) AddStringTemplate(s string) *ContentTemplate {
	t.value = Static(s)
	return t
}

// AddTemplateResolver configures a per-dispatch template, replacing any
// previous one.
func (t *ContentTemplate) AddTemplateResolver(fn ResolverFunc[string]) *ContentTemplate {
	t.value = Resolve(fn)
	return t
}

// SetEngine sets the engine used to render the resolved template. A nil
// engine passes the resolved template through unchanged.
func (t *ContentTemplate) SetEngine(e TemplateEngine) *ContentTemplate {
	t.engine = e
	return t
}

// IsConfigured reports whether a template was set.
func (t *ContentTemplate) IsConfigured() bool {
	return t != nil && t.value.IsSet()
}

// Render resolves the template against dc and renders it. Resolver errors
// are returned unwrapped; engine errors are misconfiguration.
func (t *ContentTemplate) Render(ctx context.Context, dc *types.DispatchContext) (string, error) {
	if !t.IsConfigured() {
		return "", nil
	}
	raw, err := t.value.Get(ctx, dc)
	if err != nil {
		return "", err
	}
	if t.engine == nil {
		return raw, nil
	}
	out, err := t.engine.Render(ctx, raw, dc.Model())
	if err != nil {
		return "", types.NewAppError(types.ErrCodeCommunications, "failed to render template", err)
	}
	return out, nil
}
