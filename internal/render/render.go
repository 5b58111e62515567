package render

import (
	"bytes"
	"io"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"git.home.luguber.info/inful/refsite/internal/document"
	"git.home.luguber.info/inful/refsite/internal/foundation/errors"
)

// Render writes the HTML for gen to w. In dev mode the page is parsed and the live-reload
// script is injected into its <head>; in build mode the output is written through untouched.
func Render(rctx *Context, gen Generator, w io.Writer) error {
	var page []byte
	switch g := gen.(type) {
	case *MarkdownPage:
		out, err := rctx.Templates.Render(g.Layout, g.Vars)
		if err != nil {
			return err
		}
		page = []byte(out)
	case *TemplatePage:
		out, err := rctx.Templates.Render(g.Layout, g.Vars)
		if err != nil {
			return err
		}
		page = []byte(out)
	case *RawHTML:
		page = g.HTML
	default:
		return errors.NewError(errors.CategoryInternal, "unknown generator").Build()
	}

	if rctx.Config.IsDev() {
		return InjectScript(bytes.NewReader(page), w, rctx.LiveReloadScript)
	}
	_, err := w.Write(page)
	return err
}

// Document classifies, reads and renders doc into w. It returns ErrNotRenderable for
// documents that must be copied instead.
func Document(rctx *Context, doc document.Document, w io.Writer) error {
	gen, err := FromDocument(rctx, doc)
	if err != nil {
		return err
	}
	if err := Render(rctx, gen, w); err != nil {
		return withPath(err, doc.Path)
	}
	return nil
}

// InjectScript parses an HTML page, appends an inline script to its <head> (creating the
// head if the page has none) and serializes the result.
func InjectScript(r io.Reader, w io.Writer, script string) error {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return errors.WrapError(err, errors.CategoryRender, "parse rendered page").Build()
	}

	root := doc.Find("html").First()
	if root.Length() == 0 {
		return errors.RenderError("rendered page has no <html> element").Build()
	}
	head := root.ChildrenFiltered("head").First()
	if head.Length() == 0 {
		root.PrependHtml("<head></head>")
		head = root.ChildrenFiltered("head").First()
	}

	node := &html.Node{Type: html.ElementNode, DataAtom: atom.Script, Data: "script"}
	node.AppendChild(&html.Node{Type: html.TextNode, Data: script})
	head.AppendNodes(node)

	if err := html.Render(w, doc.Nodes[0]); err != nil {
		return errors.WrapError(err, errors.CategoryRender, "serialize page").Build()
	}
	return nil
}
