// Package render turns classified source documents into HTML.
package render

import (
	stderrors "errors"
	"os"

	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/refsite/internal/config"
	"git.home.luguber.info/inful/refsite/internal/document"
	"git.home.luguber.info/inful/refsite/internal/foundation/errors"
	"git.home.luguber.info/inful/refsite/internal/frontmatter"
	"git.home.luguber.info/inful/refsite/internal/logfields"
	"git.home.luguber.info/inful/refsite/internal/markdown"
	"git.home.luguber.info/inful/refsite/internal/templates"
)

// ErrNotRenderable signals that a document produces no HTML and should be copied instead.
var ErrNotRenderable = stderrors.New("document is not renderable")

// Template variable names set by the renderer.
const (
	VarBody        = "body"
	VarLayout      = "layout"
	VarPrefix      = "prefix"
	VarFingerprint = "fingerprint"
)

// Context is shared by every render of one build.
type Context struct {
	Config    *config.Config
	Templates *templates.Registry
	// LiveReloadScript is injected into every page's <head> in dev mode.
	LiveReloadScript string
}

// Generator is one of *MarkdownPage, *TemplatePage or *RawHTML.
type Generator interface {
	generator()
}

// MarkdownPage is a Markdown document converted to HTML and awaiting its layout.
type MarkdownPage struct {
	Vars   map[string]any
	Layout string
}

// TemplatePage is a template document already rendered and awaiting its layout.
type TemplatePage struct {
	Vars   map[string]any
	Layout string
}

// RawHTML is passed through without a layout.
type RawHTML struct {
	HTML []byte
}

func (*MarkdownPage) generator() {}
func (*TemplatePage) generator() {}
func (*RawHTML) generator()      {}

// FromDocument reads doc and prepares it for rendering. Opaque documents return
// ErrNotRenderable.
func FromDocument(rctx *Context, doc document.Document) (Generator, error) {
	switch doc.Kind {
	case document.KindMarkdown:
		return markdownPage(rctx, doc)
	case document.KindTemplate:
		return templatePage(rctx, doc)
	case document.KindHTML:
		data, err := readSource(doc)
		if err != nil {
			return nil, err
		}
		return &RawHTML{HTML: data}, nil
	case document.KindOpaque:
		return nil, ErrNotRenderable
	default:
		return nil, errors.NewError(errors.CategoryInternal, "unknown document kind").
			WithContext(logfields.KeyPath, doc.Path).
			WithContext(logfields.KeyKind, doc.Kind.String()).
			Build()
	}
}

func markdownPage(rctx *Context, doc document.Document) (*MarkdownPage, error) {
	parsed, raw, err := parseSource(doc)
	if err != nil {
		return nil, err
	}
	vars := variables(rctx, parsed, raw)

	body, err := markdown.ToHTML(parsed.Body)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRender, "convert markdown").
			WithContext(logfields.KeyPath, doc.Path).
			Build()
	}
	vars[VarBody] = string(body)
	return &MarkdownPage{Vars: vars, Layout: layoutOf(parsed)}, nil
}

func templatePage(rctx *Context, doc document.Document) (*TemplatePage, error) {
	parsed, raw, err := parseSource(doc)
	if err != nil {
		return nil, err
	}
	vars := variables(rctx, parsed, raw)

	body, err := rctx.Templates.RenderString(string(parsed.Body), vars)
	if err != nil {
		return nil, withPath(err, doc.Path)
	}
	if doc.RendersMarkdown() {
		html, err := markdown.ToHTML([]byte(body))
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryRender, "convert rendered markdown").
				WithContext(logfields.KeyPath, doc.Path).
				Build()
		}
		body = string(html)
	}
	vars[VarBody] = body
	return &TemplatePage{Vars: vars, Layout: layoutOf(parsed)}, nil
}

func readSource(doc document.Document) ([]byte, error) {
	data, err := os.ReadFile(doc.Path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "read source").
			WithContext(logfields.KeyPath, doc.Path).
			Build()
	}
	return data, nil
}

func parseSource(doc document.Document) (frontmatter.Document, []byte, error) {
	data, err := readSource(doc)
	if err != nil {
		return frontmatter.Document{}, nil, err
	}
	parsed, err := frontmatter.Parse(data)
	if err != nil {
		return frontmatter.Document{}, nil, errors.WrapError(err, errors.CategoryRender, "parse front matter").
			WithContext(logfields.KeyPath, doc.Path).
			Build()
	}
	return parsed, data, nil
}

// variables merges, lowest priority first: the URL prefix, site attributes, front matter.
// The body is added by the caller and wins over all of them.
func variables(rctx *Context, parsed frontmatter.Document, raw []byte) map[string]any {
	vars := make(map[string]any, len(parsed.Attributes)+8)
	vars[VarPrefix] = rctx.Config.Prefix
	vars[VarFingerprint] = fingerprint(raw, parsed.Body)
	for k, v := range rctx.Config.SiteAttributes {
		vars[k] = v
	}
	for k, v := range parsed.Attributes {
		vars[k] = v
	}
	return vars
}

func fingerprint(raw, body []byte) string {
	front := raw[:len(raw)-len(body)]
	return mdfp.CalculateFingerprintFromParts(string(front), string(body))
}

func layoutOf(parsed frontmatter.Document) string {
	if l := parsed.Attributes[VarLayout]; l != "" {
		return l
	}
	return config.DefaultLayout
}

func withPath(err error, path string) error {
	if ce, ok := errors.AsClassified(err); ok {
		return ce.WithContext(logfields.KeyPath, path)
	}
	return err
}
