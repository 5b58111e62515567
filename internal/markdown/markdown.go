// Package markdown converts Markdown documents to HTML, optionally annotating every word
// with transcript timings.
package markdown

import (
	"bytes"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"

	"git.home.luguber.info/inful/refsite/internal/words"
)

// Stats summarizes a timing-annotated conversion.
type Stats struct {
	Words    int // word spans emitted
	Matched  int // words carrying a timing
	Consumed int // timing entries consumed, including skipped ones
	Timings  int // timing entries available
}

// Unmatched returns how many words received no timing entry.
func (s Stats) Unmatched() int {
	return s.Words - s.Matched
}

func newMarkdown(opts ...goldmark.Option) goldmark.Markdown {
	// Source documents are trusted; inline HTML is kept.
	base := []goldmark.Option{goldmark.WithRendererOptions(html.WithUnsafe())}
	return goldmark.New(append(base, opts...)...)
}

// ToHTML converts a Markdown body (front matter already removed) to HTML.
func ToHTML(source []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := newMarkdown().Convert(source, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ToHTMLWithTiming converts Markdown to HTML, feeding every text run through the word
// aligner. One alignment cursor is carried across the whole document, so word indices
// are unique per document and timing entries are consumed in document order.
func ToHTMLWithTiming(source []byte, timings []words.WordTiming) ([]byte, Stats, error) {
	tr := &timingRenderer{timings: timings}
	md := newMarkdown(goldmark.WithRendererOptions(
		renderer.WithNodeRenderers(util.Prioritized(tr, 100)),
	))

	var buf bytes.Buffer
	if err := md.Convert(source, &buf); err != nil {
		return nil, Stats{}, err
	}
	return buf.Bytes(), Stats{
		Words:    tr.cursor.Word,
		Matched:  tr.matched,
		Consumed: tr.cursor.Timing,
		Timings:  len(timings),
	}, nil
}

// timingRenderer replaces the default text node renderer.
type timingRenderer struct {
	timings []words.WordTiming
	cursor  words.Cursor
	matched int
}

func (r *timingRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(gmast.KindText, r.renderText)
}

func (r *timingRenderer) renderText(w util.BufWriter, source []byte, node gmast.Node, entering bool) (gmast.WalkStatus, error) {
	if !entering {
		return gmast.WalkContinue, nil
	}
	n := node.(*gmast.Text)
	value := n.Segment.Value(source)
	if n.IsRaw() {
		html.DefaultWriter.RawWrite(w, value)
		return gmast.WalkContinue, nil
	}

	value = util.UnescapePunctuations(value)
	value = util.ResolveNumericReferences(value)
	value = util.ResolveEntityNames(value)

	res := words.AlignFrom(string(value), r.timings, r.cursor)
	r.cursor = res.Advance(r.cursor)
	r.matched += res.Matched
	_, _ = w.WriteString(res.HTML)

	switch {
	case n.HardLineBreak():
		_, _ = w.WriteString("<br>\n")
	case n.SoftLineBreak():
		_ = w.WriteByte('\n')
	}
	return gmast.WalkContinue, nil
}
