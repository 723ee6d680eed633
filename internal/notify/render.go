package notify

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"io/fs"
	"path"
	"strings"
	"sync"
	texttemplate "text/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"
)

//go:embed templates
var embedded embed.FS

// ErrInvalidFrontmatter indicates a template whose YAML header cannot be read.
var ErrInvalidFrontmatter = errors.New("invalid frontmatter")

const layoutName = "layout.html"

// markdownEscaper backslash-escapes characters that would turn a value into
// markdown syntax. Line breaks become spaces so a value stays on its line.
var markdownEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"`", "\\`",
	"*", "\\*",
	"_", "\\_",
	"[", "\\[",
	"]", "\\]",
	"<", "\\<",
	">", "\\>",
	"|", "\\|",
	"#", "\\#",
	"!", "\\!",
	"~", "\\~",
	"&", "\\&",
	"\r\n", " ",
	"\n", " ",
	"\r", " ",
)

// bodyFuncs are available to markdown bodies. md escapes a value for inline use.
var bodyFuncs = texttemplate.FuncMap{
	"md": markdownEscaper.Replace,
}

// frontmatter is the YAML header of a notification template.
type frontmatter struct {
	Subject string `yaml:"subject"`
}

// page is a parsed markdown template.
type page struct {
	subject *texttemplate.Template
	body    *texttemplate.Template
}

// Rendered is a subject line and a complete HTML document.
type Rendered struct {
	Subject string
	HTML    string
}

// Renderer turns markdown templates with YAML front matter into HTML emails.
type Renderer struct {
	fs     fs.FS
	md     goldmark.Markdown
	layout *htmltemplate.Template

	mu    sync.RWMutex
	pages map[string]*page
}

// NewRenderer loads templates from the embedded set.
func NewRenderer() (*Renderer, error) {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		return nil, err
	}
	return NewRendererFS(sub)
}

// NewRendererFS loads templates from fsys, which must contain layout.html.
func NewRendererFS(fsys fs.FS) (*Renderer, error) {
	layout, err := htmltemplate.ParseFS(fsys, layoutName)
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}

	return &Renderer{
		fs:     fsys,
		md:     goldmark.New(goldmark.WithExtensions(extension.Table)),
		layout: layout,
		pages:  make(map[string]*page),
	}, nil
}

// Render executes the named template with data and wraps it in the layout.
func (r *Renderer) Render(name string, data any) (Rendered, error) {
	p, err := r.page(name)
	if err != nil {
		return Rendered{}, err
	}

	var subject bytes.Buffer
	if err := p.subject.Execute(&subject, data); err != nil {
		return Rendered{}, fmt.Errorf("failed to render subject of %s: %w", name, err)
	}

	var markdown bytes.Buffer
	if err := p.body.Execute(&markdown, data); err != nil {
		return Rendered{}, fmt.Errorf("failed to render %s: %w", name, err)
	}

	var content bytes.Buffer
	if err := r.md.Convert(markdown.Bytes(), &content); err != nil {
		return Rendered{}, fmt.Errorf("failed to convert markdown of %s: %w", name, err)
	}

	var out bytes.Buffer
	err = r.layout.Execute(&out, map[string]any{
		"Subject": subject.String(),
		"Content": htmltemplate.HTML(content.String()),
	})
	if err != nil {
		return Rendered{}, fmt.Errorf("failed to render layout: %w", err)
	}

	return Rendered{
		Subject: strings.TrimSpace(subject.String()),
		HTML:    out.String(),
	}, nil
}

// page returns the cached template or parses it.
func (r *Renderer) page(name string) (*page, error) {
	r.mu.RLock()
	p, ok := r.pages[name]
	r.mu.RUnlock()
	if ok {
		return p, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.pages[name]; ok {
		return p, nil
	}

	content, err := fs.ReadFile(r.fs, path.Clean(name))
	if err != nil {
		return nil, fmt.Errorf("template %s not found: %w", name, err)
	}

	meta, body, err := splitFrontmatter(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	subject, err := texttemplate.New(name + ":subject").Parse(meta.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to parse subject of %s: %w", name, err)
	}
	bodyTmpl, err := texttemplate.New(name).Funcs(bodyFuncs).Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}

	p = &page{subject: subject, body: bodyTmpl}
	r.pages[name] = p
	return p, nil
}

// splitFrontmatter separates a leading "---" YAML block from the body.
func splitFrontmatter(content []byte) (frontmatter, string, error) {
	var meta frontmatter
	delimiter := []byte("---")

	if !bytes.HasPrefix(content, delimiter) {
		return meta, string(content), nil
	}

	rest := bytes.TrimLeft(bytes.TrimPrefix(content, delimiter), "\r\n")
	end := bytes.Index(rest, delimiter)
	if end == -1 {
		return meta, "", fmt.Errorf("%w: closing delimiter not found", ErrInvalidFrontmatter)
	}

	if err := yaml.Unmarshal(rest[:end], &meta); err != nil {
		return meta, "", fmt.Errorf("%w: %v", ErrInvalidFrontmatter, err)
	}

	body := rest[end+len(delimiter):]
	body = bytes.TrimPrefix(body, []byte("\r"))
	body = bytes.TrimPrefix(body, []byte("\n"))
	return meta, string(body), nil
}
