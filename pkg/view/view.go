// Package view renders error notices. Boundaries and the notification center
// only decide what a notice says; a Presenter decides how it looks.
package view

import (
	"fmt"
	"sync"

	"github.com/osteele/liquid"

	"github.com/Goden-Gun/resilience-lib/pkg/codes"
)

type Variant string

const (
	VariantPage    Variant = "page"
	VariantInline  Variant = "inline"
	VariantLoading Variant = "loading"
	VariantToast   Variant = "toast"
)

// Action is a button offered next to a notice.
type Action struct {
	Name     string
	Label    string
	Disabled bool
}

// Notice carries everything a presenter may show.
type Notice struct {
	Variant    Variant
	ID         string
	Title      string
	Message    string
	Severity   codes.Severity
	RetryCount int
	MaxRetries int
	CanRetry   bool
	Exhausted  bool
	Stack      string
	Actions    []Action
}

// Presenter turns a Notice into markup.
type Presenter interface {
	Present(n Notice) (string, error)
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(Notice) (string, error)

func (f PresenterFunc) Present(n Notice) (string, error) { return f(n) }

const actionsTpl = `{% if actions.size > 0 %}<div class="error-actions">` +
	`{% for a in actions %}<button type="button" data-action="{{ a.name | escape }}"{% if a.disabled %} disabled{% endif %}>{{ a.label | escape }}</button>{% endfor %}` +
	`</div>{% endif %}`

var defaultTemplates = map[Variant]string{
	VariantPage: `<div class="error-page" role="alert" data-severity="{{ severity }}">` +
		`<h1>{{ title | escape }}</h1><p>{{ message | escape }}</p>` + actionsTpl +
		`{% if stack != "" %}<details class="error-stack"><summary>Error details</summary><pre>{{ stack | escape }}</pre></details>{% endif %}` +
		`</div>`,
	VariantInline: `<div class="error-panel" role="alert" data-severity="{{ severity }}">` +
		`<h2>{{ title | escape }}</h2><p>{{ message | escape }}</p>` +
		`{% if max_retries > 0 %}<p class="error-retries">Retry {{ retry_count }}/{{ max_retries }}</p>{% endif %}` +
		`{% if exhausted %}<p class="error-terminal">Maximum retry attempts reached. Please refresh the page or try again later.</p>{% endif %}` +
		actionsTpl + `</div>`,
	VariantLoading: `<div class="error-loading" aria-busy="true"><p>{{ message | escape }}</p>` +
		`{% if max_retries > 0 %}<p class="error-retries">Attempt {{ retry_count }}/{{ max_retries }}</p>{% endif %}</div>`,
	VariantToast: `<div class="error-toast" role="status" data-id="{{ id }}" data-severity="{{ severity }}">` +
		`<strong>{{ title | escape }}</strong><span>{{ message | escape }}</span>` + actionsTpl + `</div>`,
}

// LiquidPresenter renders notices with liquid templates, one per variant.
// All user-visible strings are escaped.
type LiquidPresenter struct {
	engine    *liquid.Engine
	templates map[Variant]*liquid.Template
}

// NewLiquidPresenter parses the default templates, replaced per variant by
// overrides.
func NewLiquidPresenter(overrides map[Variant]string) (*LiquidPresenter, error) {
	p := &LiquidPresenter{
		engine:    liquid.NewEngine(),
		templates: make(map[Variant]*liquid.Template, len(defaultTemplates)),
	}
	sources := make(map[Variant]string, len(defaultTemplates))
	for v, src := range defaultTemplates {
		sources[v] = src
	}
	for v, src := range overrides {
		sources[v] = src
	}
	for v, src := range sources {
		tpl, err := p.engine.ParseString(src)
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", v, err)
		}
		p.templates[v] = tpl
	}
	return p, nil
}

var (
	defaultOnce      sync.Once
	defaultPresenter *LiquidPresenter
)

// Default returns the shared presenter built from the stock templates.
func Default() Presenter {
	defaultOnce.Do(func() {
		p, err := NewLiquidPresenter(nil)
		if err != nil {
			panic(fmt.Sprintf("view: stock templates: %v", err))
		}
		defaultPresenter = p
	})
	return defaultPresenter
}

func (p *LiquidPresenter) Present(n Notice) (string, error) {
	variant := n.Variant
	if variant == "" {
		variant = VariantInline
	}
	tpl, ok := p.templates[variant]
	if !ok {
		return "", fmt.Errorf("no template for variant %q", variant)
	}
	out, err := tpl.RenderString(bindings(n))
	if err != nil {
		return "", fmt.Errorf("render %s notice: %w", variant, err)
	}
	return out, nil
}

func bindings(n Notice) liquid.Bindings {
	actions := make([]map[string]any, 0, len(n.Actions))
	for _, a := range n.Actions {
		actions = append(actions, map[string]any{
			"name":     a.Name,
			"label":    a.Label,
			"disabled": a.Disabled,
		})
	}
	severity := n.Severity
	if severity == "" {
		severity = codes.SeverityError
	}
	return liquid.Bindings{
		"id":          n.ID,
		"title":       n.Title,
		"message":     n.Message,
		"severity":    string(severity),
		"retry_count": n.RetryCount,
		"max_retries": n.MaxRetries,
		"can_retry":   n.CanRetry,
		"exhausted":   n.Exhausted,
		"stack":       n.Stack,
		"actions":     actions,
	}
}
