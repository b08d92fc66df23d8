// Package views renders the HTML pages of the service. Every page has its
// own view model, templates are embedded into the binary and parsed once.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Page names accepted by Renderer.Render.
const (
	PageURLsIndex = "urls_index"
	PageURLsNew   = "urls_new"
	PageURLsShow  = "urls_show"
	PageLogin     = "login"
	PageRegister  = "register"
)

// Header is the part of every page that depends on the session.
type Header struct {
	// UserEmail is empty for anonymous visitors.
	UserEmail string
}

// Page holds the fields shared by all view models.
type Page struct {
	Header Header
	Error  string
}

// URLRow is one line of the URL list.
type URLRow struct {
	ShortID  string
	LongURL  string
	ShortURL string
}

type URLsIndexPage struct {
	Page
	URLs []URLRow
}

type URLsNewPage struct {
	Page
	LongURL string
}

type URLsShowPage struct {
	Page
	ShortID   string
	LongURL   string
	ShortURL  string
	CreatedAt time.Time
}

// CredentialsPage backs both the login and the registration form.
type CredentialsPage struct {
	Page
	Email string
}

// Renderer executes the parsed page templates.
type Renderer struct {
	pages map[string]*template.Template
}

// New parses every page together with the shared layout.
func New() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, name := range []string{PageURLsIndex, PageURLsNew, PageURLsShow, PageLogin, PageRegister} {
		page, err := template.ParseFS(templatesFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("in internal/views/views.go/New(): error while `template.ParseFS()` calling for %s: %w", name, err)
		}
		r.pages[name] = page
	}

	return r, nil
}

// Render writes the page with the given status. The page is rendered into a
// buffer first so a template error never leaves a half written response.
func (r *Renderer) Render(response http.ResponseWriter, status int, name string, data interface{}) error {
	page, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}

	var buf bytes.Buffer
	if err := page.ExecuteTemplate(&buf, name+".html", data); err != nil {
		return fmt.Errorf("in internal/views/views.go/Render(): error while `page.ExecuteTemplate()` calling: %w", err)
	}

	response.Header().Set("Content-Type", "text/html; charset=utf-8")
	response.WriteHeader(status)
	_, err := buf.WriteTo(response)

	return err
}
