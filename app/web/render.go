package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strconv"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutTemplate = "base.html"

// Layout carries the values every page shows around its content.
type Layout struct {
	Title    string
	Messages []Message
}

// Flash puts messages carried over from the previous request before the page's own.
func (l *Layout) Flash(messages []Message) {
	l.Messages = append(messages, l.Messages...)
}

// View is page data built around a Layout.
type View interface {
	Flash(messages []Message)
}

// Renderer executes the HTML pages. Every page is parsed together with the
// shared layout into its own template set.
type Renderer struct {
	pages map[string]*template.Template
}

// MediaURLs resolves stored file keys to public URLs.
type MediaURLs interface {
	URL(key string) string
}

func NewRenderer(media MediaURLs) (*Renderer, error) {
	funcs := template.FuncMap{
		"mediaURL":   media.URL,
		"pageURL":    PageURL,
		"alertClass": alertClass,
	}

	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		name := path.Base(file)
		if name == layoutTemplate {
			continue
		}
		t, err := template.New(layoutTemplate).
			Funcs(funcs).
			ParseFS(templateFS, "templates/"+layoutTemplate, file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = t
	}
	return &Renderer{pages: pages}, nil
}

// MustRenderer is like NewRenderer but panics when a template does not parse.
func MustRenderer(media MediaURLs) *Renderer {
	r, err := NewRenderer(media)
	if err != nil {
		panic(err)
	}
	return r
}

// Render executes page into a buffer first so a failing template never
// leaves a half written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data any) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, layoutTemplate, data); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// PageURL returns a query string selecting page n while keeping the other parameters.
func PageURL(params url.Values, n int) string {
	q := url.Values{}
	for k, v := range params {
		if k == "page" {
			continue
		}
		q[k] = v
	}
	q.Set("page", strconv.Itoa(n))
	return "?" + q.Encode()
}

func alertClass(level string) string {
	if level == LevelError {
		return "danger"
	}
	return level
}
