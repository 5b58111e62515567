package markdown

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"git.home.luguber.info/inful/refsite/internal/words"
)

func TestToHTML(t *testing.T) {
	out, err := ToHTML([]byte(""))
	require.NoError(t, err)
	require.Empty(t, out)

	out, err = ToHTML([]byte("hello world"))
	require.NoError(t, err)
	require.Equal(t, "<p>hello world</p>\n", string(out))
}

func TestToHTML_KeepsInlineHTML(t *testing.T) {
	out, err := ToHTML([]byte("a <em>b</em>"))
	require.NoError(t, err)
	require.Equal(t, "<p>a <em>b</em></p>\n", string(out))
}

func TestToHTMLWithTiming_Paragraph(t *testing.T) {
	timings := []words.WordTiming{
		{Body: "hello", Start: 0, End: 0.1},
		{Body: "world", Start: 0.2, End: 0.3},
	}
	out, stats, err := ToHTMLWithTiming([]byte("Hello world!"), timings)
	require.NoError(t, err)
	require.Equal(t,
		"<p><span word='0' start='0' end='0.1' debug_body='hello'>Hello</span> "+
			"<span word='1' start='0.2' end='0.3' debug_body='world'>world</span>!</p>\n",
		string(out))
	require.Equal(t, Stats{Words: 2, Matched: 2, Consumed: 2, Timings: 2}, stats)
	require.Equal(t, 0, stats.Unmatched())
}

func TestToHTMLWithTiming_CursorCarriesAcrossTextRuns(t *testing.T) {
	timings := []words.WordTiming{
		{Body: "one", Start: 1, End: 2},
		{Body: "two", Start: 2, End: 3},
		{Body: "three", Start: 3, End: 4},
	}
	out, stats, err := ToHTMLWithTiming([]byte("# One\n\nTwo *three*\n"), timings)
	require.NoError(t, err)
	html := string(out)
	require.Contains(t, html, "<h1><span word='0' start='1' end='2' debug_body='one'>One</span></h1>")
	require.Contains(t, html, "<span word='1' start='2' end='3' debug_body='two'>Two</span> ")
	require.Contains(t, html, "<em><span word='2' start='3' end='4' debug_body='three'>three</span></em>")
	require.Equal(t, 3, stats.Words)
	require.Equal(t, 3, stats.Consumed)
}

func TestToHTMLWithTiming_CodeIsNotAnnotated(t *testing.T) {
	out, stats, err := ToHTMLWithTiming([]byte("say `hello`\n"), []words.WordTiming{{Body: "say"}})
	require.NoError(t, err)
	require.Contains(t, string(out), "<code>hello</code>")
	require.Equal(t, 1, stats.Words)
}

func TestToHTMLWithTiming_NoTimings(t *testing.T) {
	out, stats, err := ToHTMLWithTiming([]byte("it may contain annotations"), nil)
	require.NoError(t, err)
	require.Equal(t, 4, strings.Count(string(out), "error='NO_MATCH'"))
	require.Equal(t, 4, stats.Unmatched())
}

func TestTimingRenderer_EscapesRawText(t *testing.T) {
	src := []byte(`a<b & "c"`)
	node := gmast.NewRawTextSegment(text.NewSegment(0, len(src)))

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	r := &timingRenderer{}
	status, err := r.renderText(w, src, node, true)
	require.NoError(t, err)
	require.Equal(t, gmast.WalkContinue, status)
	require.NoError(t, w.Flush())
	require.Equal(t, "a&lt;b &amp; &quot;c&quot;", buf.String())
}
