package view

import (
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
)

//go:embed templates/*.html
var embedded embed.FS

// Renderer renders a named page with the given data.
type Renderer interface {
	Render(c *gin.Context, status int, name string, data gin.H)
}

// TemplateRenderer renders html/template pages through gin.
type TemplateRenderer struct {
	templates *template.Template
}

var funcs = template.FuncMap{
	"datetime": func(t time.Time) string { return t.Format("2006-01-02 15:04:05") },
	"dateinput": func(t time.Time) string {
		return t.Format("2006-01-02T15:04:05")
	},
}

// New parses the pages from dir, or from the embedded set when dir is empty.
func New(dir string) (*TemplateRenderer, error) {
	tmpl := template.New("").Funcs(funcs)
	var err error
	if dir == "" {
		tmpl, err = tmpl.ParseFS(embedded, "templates/*.html")
	} else {
		if _, statErr := os.Stat(dir); statErr != nil {
			return nil, fmt.Errorf("templates dir: %w", statErr)
		}
		tmpl, err = tmpl.ParseGlob(filepath.Join(dir, "*.html"))
	}
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &TemplateRenderer{templates: tmpl}, nil
}

// Render writes the page. Execution errors are attached to the context so the
// access log reports them.
func (r *TemplateRenderer) Render(c *gin.Context, status int, name string, data gin.H) {
	c.Header("Cache-Control", "no-store")
	c.Render(status, render.HTML{Template: r.templates, Name: name, Data: data})
}
