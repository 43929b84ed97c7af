package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/yuin/goldmark"

	"github.com/nikhilbhutani/pdfprecheck/internal/bundle"
)

//go:embed templates
var templatesFS embed.FS

type Renderer struct {
	tmpl         *template.Template
	instructions template.HTML
	usage        template.HTML
}

type indexData struct {
	Instructions template.HTML
	Error        string
}

type resultData struct {
	Bundle *bundle.Bundle
	Usage  template.HTML
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	instructions, err := markdownFile("templates/instructions.md")
	if err != nil {
		return nil, err
	}
	usage, err := markdownFile("templates/usage.md")
	if err != nil {
		return nil, err
	}

	return &Renderer{tmpl: tmpl, instructions: instructions, usage: usage}, nil
}

// Index renders the upload page. errMsg is shown above the submit button.
func (r *Renderer) Index(w io.Writer, errMsg string) error {
	return r.tmpl.ExecuteTemplate(w, "index.html", indexData{Instructions: r.instructions, Error: errMsg})
}

func (r *Renderer) Result(w io.Writer, b *bundle.Bundle) error {
	return r.tmpl.ExecuteTemplate(w, "result.html", resultData{Bundle: b, Usage: r.usage})
}

// Markdown converts trusted, embedded markdown to HTML.
func Markdown(src []byte) (template.HTML, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert(src, &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}

func markdownFile(name string) (template.HTML, error) {
	src, err := templatesFS.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return Markdown(src)
}
