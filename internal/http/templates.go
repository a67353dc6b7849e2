package http

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"financas/internal/auth"
	"financas/internal/core"
	"financas/internal/log"
	appweb "financas/web"
)

const layoutFile = "templates/layout.html"

var funcs = template.FuncMap{
	"brl": func(m core.Money) string { return m.BRL() },
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Local().Format("02/01/2006 15:04")
	},
}

// page is what every template receives. Form echoes submitted values back
// into the inputs and Errors holds one message per field.
type page struct {
	User     core.User
	LoggedIn bool
	Flash    string
	Form     map[string]string
	Errors   map[string]string
	Data     any
}

// renderer holds one template set per page, each a clone of the layout
// with the page's blocks parsed on top.
type renderer struct {
	pages map[string]*template.Template
}

func newRenderer() (*renderer, error) {
	layout, err := template.New("layout.html").Funcs(funcs).ParseFS(appweb.TemplatesFS, layoutFile)
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	files, err := fs.Glob(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}

	rd := &renderer{pages: make(map[string]*template.Template, len(files))}
	for _, file := range files {
		if file == layoutFile {
			continue
		}
		t, err := layout.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout for %s: %w", file, err)
		}
		if _, err := t.ParseFS(appweb.TemplatesFS, file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		rd.pages[strings.TrimSuffix(path.Base(file), ".html")] = t
	}
	return rd, nil
}

// newPage starts the template data for r with the logged in user, if any.
func (s *Server) newPage(r *http.Request) page {
	p := page{Form: map[string]string{}, Errors: map[string]string{}}
	if u, ok := auth.UserFromContext(r.Context()); ok {
		p.User = u
		p.LoggedIn = true
	}
	return p
}

// render executes the named page into a buffer first so a template error
// still produces a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	t, ok := s.views.pages[name]
	if !ok {
		s.logger.WithComponent(log.ComponentTemplate).ErrorContext(r.Context(), "Unknown template", "template", name)
		http.Error(w, "Erro interno", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentTemplate).ErrorContext(r.Context(), "Template execution failed",
			"template", name, log.FieldError, err, log.FieldOperation, log.OpRender)
		http.Error(w, "Erro interno", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
