package document

import (
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/refsite/internal/foundation/errors"
	"git.home.luguber.info/inful/refsite/internal/logfields"
)

// Kind is the closed set of document kinds the build knows how to handle.
type Kind int

const (
	// KindOpaque files are copied byte-for-byte.
	KindOpaque Kind = iota
	// KindMarkdown files are converted to HTML and wrapped in a layout.
	KindMarkdown
	// KindTemplate files are rendered through the template engine, then wrapped in a layout.
	KindTemplate
	// KindHTML files are passed through without a layout.
	KindHTML
)

func (k Kind) String() string {
	switch k {
	case KindMarkdown:
		return "markdown"
	case KindTemplate:
		return "template"
	case KindHTML:
		return "html"
	case KindOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}

// Renderable reports whether documents of this kind produce HTML.
func (k Kind) Renderable() bool {
	return k != KindOpaque
}

// Classify maps a MIME type to a Kind.
func Classify(mimeType string) Kind {
	switch mimeType {
	case MimeMarkdown:
		return KindMarkdown
	case MimeHandlebars:
		return KindTemplate
	case MimeHTML:
		return KindHTML
	default:
		return KindOpaque
	}
}

// Document is a source file together with its detected media type.
type Document struct {
	Path string
	Mime string
	Kind Kind
}

// New classifies the file at path by extension.
func New(path string) Document {
	m := MimeType(path)
	return Document{Path: path, Mime: m, Kind: Classify(m)}
}

// OutputPath maps the document into outputDir, mirroring its position below sourceDir and
// rewriting the extension for its kind:
//
//	page.md      -> page.html
//	page.md.hbs  -> page.html
//	page.hbs     -> page
//	feed.xml.hbs -> feed.xml
//	style.css    -> style.css
//
// A document outside sourceDir is a configuration error.
func (d Document) OutputPath(sourceDir, outputDir string) (string, error) {
	rel, err := RelativeTo(sourceDir, d.Path)
	if err != nil {
		return "", err
	}
	out := filepath.Join(outputDir, rel)

	switch d.Kind {
	case KindMarkdown, KindHTML:
		return trimExt(out) + ".html", nil
	case KindTemplate:
		out = trimExt(out)
		if isMarkdownExt(filepath.Ext(out)) {
			return trimExt(out) + ".html", nil
		}
		return out, nil
	case KindOpaque:
		return out, nil
	default:
		return "", errors.NewError(errors.CategoryInternal, "unknown document kind").
			WithContext(logfields.KeyKind, d.Kind.String()).
			Build()
	}
}

// RendersMarkdown reports whether a template's rendered output is itself Markdown
// (page.md.hbs) and must be converted to HTML before the layout step.
func (d Document) RendersMarkdown() bool {
	return d.Kind == KindTemplate && isMarkdownExt(filepath.Ext(trimExt(d.Path)))
}

// RelativeTo returns path relative to root, failing when path is not below root.
func RelativeTo(root, path string) (string, error) {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.ConfigError("path is not below the configured root").
			WithContext(logfields.KeyPath, path).
			WithContext("root", root).
			Build()
	}
	return rel, nil
}

// IsHidden reports whether a file or directory name is a dotfile.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

func trimExt(p string) string {
	return strings.TrimSuffix(p, filepath.Ext(p))
}
