// Package web renders the server-side HTML pages.
package web

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"

	"github.com/labstack/echo/v4"

	"github.com/merak-travel/merak/frontend"
	"github.com/merak-travel/merak/internal/errors"
)

// Page metadata
const (
	SiteTitle       = "Merak Trip Planner"
	SiteDescription = "Plan your next adventure with the Merak Trip Planner web experience."
)

// PageHome is the template name of the landing page
const PageHome = "home"

// PageData is passed to every page template
type PageData struct {
	Title       string
	Description string
}

// DefaultPageData returns the site-wide metadata
func DefaultPageData() PageData {
	return PageData{Title: SiteTitle, Description: SiteDescription}
}

// Renderer renders pages wrapped in the root layout. It implements echo.Renderer.
type Renderer struct {
	pages map[string]*template.Template
}

var _ echo.Renderer = (*Renderer)(nil)

// NewRenderer parses the embedded templates
func NewRenderer() (*Renderer, error) {
	return NewRendererFS(frontend.Templates)
}

// NewRendererFS parses layout.html plus one template per page from fsys.
func NewRendererFS(fsys fs.FS) (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, page := range []string{PageHome} {
		tmpl, err := template.ParseFS(fsys, "layout.html", page+".html")
		if err != nil {
			return nil, errors.New(fmt.Errorf("failed to parse %s template: %w", page, err)).
				Component("web").
				Category(errors.CategoryFileIO).
				Context("page", page).
				Build()
		}
		r.pages[page] = tmpl
	}
	return r, nil
}

// Render writes the named page. data defaults to DefaultPageData when nil.
func (r *Renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return errors.Newf("unknown page %q", name).
			Component("web").
			Category(errors.CategoryNotFound).
			Build()
	}
	if data == nil {
		data = DefaultPageData()
	}

	// Render to a buffer so a template failure never leaves a partial document
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return errors.New(err).
			Component("web").
			Category(errors.CategoryGeneric).
			Context("page", name).
			Build()
	}
	if _, err := buf.WriteTo(w); err != nil {
		return errors.New(err).
			Component("web").
			Category(errors.CategoryNetwork).
			Context("page", name).
			Build()
	}
	return nil
}

// RenderHome writes the landing page document
func (r *Renderer) RenderHome(w io.Writer) error {
	return r.Render(w, PageHome, nil, nil)
}
