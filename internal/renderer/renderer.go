// Package renderer turns a dashboard snapshot into its markup and plaintext forms.
//
// Rendering is pure: the only time shown is the snapshot's GeneratedAt, and every
// collection is walked in slice order, so identical inputs give identical bytes.
package renderer

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/janwilmake/flaredream.dash/internal/domain"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Placeholder is shown for every absent optional field
const Placeholder = "(none)"

// Output holds both rendered forms of one snapshot
type Output struct {
	Markup    string
	Plaintext string
}

// Get returns the rendered form for format
func (o *Output) Get(format domain.Format) string {
	if format == domain.FormatPlaintext {
		return o.Plaintext
	}
	return o.Markup
}

// Renderer holds the parsed templates; it is safe for concurrent use
type Renderer struct {
	markup *htmltemplate.Template
	plain  *texttemplate.Template
}

// New parses the embedded templates
func New() (*Renderer, error) {
	markup, err := htmltemplate.ParseFS(templatesFS, "templates/dashboard.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse markup template: %w", err)
	}
	plain, err := texttemplate.ParseFS(templatesFS, "templates/dashboard.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse plaintext template: %w", err)
	}
	return &Renderer{markup: markup, plain: plain}, nil
}

// Render produces both forms for snap. viewer is the login of the person the page
// is rendered for, or "" for an anonymous audience.
func (r *Renderer) Render(username, viewer string, snap *domain.Snapshot) (*Output, error) {
	if snap == nil {
		return nil, fmt.Errorf("render %s: nil snapshot", username)
	}
	v := buildView(username, viewer, snap)

	v.Summary = renderSummary(v)

	var markup bytes.Buffer
	if err := r.markup.ExecuteTemplate(&markup, "dashboard.html.tmpl", v); err != nil {
		return nil, fmt.Errorf("render %s markup: %w", username, err)
	}
	var plain bytes.Buffer
	if err := r.plain.ExecuteTemplate(&plain, "dashboard.txt.tmpl", v); err != nil {
		return nil, fmt.Errorf("render %s plaintext: %w", username, err)
	}

	return &Output{Markup: markup.String(), Plaintext: plain.String()}, nil
}
