package words

import (
	"html"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// NoMatch is the error attribute value carried by spans whose word had no timing entry.
const NoMatch = "NO_MATCH"

// tokenPattern captures a word and the run of non-word characters following it.
var tokenPattern = regexp.MustCompile(`([\p{L}\p{N}][\p{L}\p{M}\p{N}]*)([^\p{L}\p{M}\p{N}]*)`)

// WordTiming is a single transcript entry.
type WordTiming struct {
	Body  string  `json:"body"`
	Start float64 `json:"startTime"`
	End   float64 `json:"endTime"`
}

// Cursor is the position reached after aligning a run of text: the index the next word
// will receive and the first timing entry not yet consumed.
type Cursor struct {
	Word   int
	Timing int
}

// Result is the outcome of aligning one run of text.
type Result struct {
	HTML string
	// WordCount is the number of word tokens found in the text.
	WordCount int
	// Matched is the number of words that received a timing entry.
	Matched int
	// Consumed is the absolute timing cursor after alignment. It never decreases and
	// never exceeds len(timings).
	Consumed int
}

// Advance returns the cursor to pass to the next AlignFrom call.
func (r Result) Advance(from Cursor) Cursor {
	return Cursor{Word: from.Word + r.WordCount, Timing: r.Consumed}
}

// Align annotates every word of text with a span, matching words against timings in order.
func Align(text string, timings []WordTiming) Result {
	return AlignFrom(text, timings, Cursor{})
}

// AlignFrom is Align starting from a cursor carried over from a previous run of text.
// Word indices in the output start at from.Word and timing scanning starts at from.Timing.
func AlignFrom(text string, timings []WordTiming, from Cursor) Result {
	fold := cases.Fold()
	consumed := min(max(from.Timing, 0), len(timings))

	locs := tokenPattern.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return Result{HTML: html.EscapeString(text), Consumed: consumed}
	}

	var b strings.Builder
	b.Grow(len(text) * 4)
	matched := 0
	b.WriteString(html.EscapeString(text[:locs[0][0]]))

	for i, loc := range locs {
		word := text[loc[2]:loc[3]]
		index := from.Word + i
		folded := fold.String(word)

		match := -1
		for j := consumed; j < len(timings); j++ {
			if fold.String(timings[j].Body) == folded {
				match = j
				break
			}
		}

		if match >= 0 {
			writeTimedSpan(&b, index, word, timings[match])
			consumed = match + 1
			matched++
		} else {
			writeUnmatchedSpan(&b, index, word, timings, consumed)
		}
		b.WriteString(html.EscapeString(text[loc[4]:loc[5]]))
	}

	return Result{HTML: b.String(), WordCount: len(locs), Matched: matched, Consumed: consumed}
}

func writeTimedSpan(b *strings.Builder, index int, word string, timing WordTiming) {
	b.WriteString("<span word='")
	b.WriteString(strconv.Itoa(index))
	b.WriteString("' start='")
	b.WriteString(formatSeconds(timing.Start))
	b.WriteString("' end='")
	b.WriteString(formatSeconds(timing.End))
	b.WriteString("' debug_body='")
	b.WriteString(html.EscapeString(timing.Body))
	b.WriteString("'>")
	b.WriteString(html.EscapeString(word))
	b.WriteString("</span>")
}

// writeUnmatchedSpan flags the word; debug_body shows the timing entry it was expected to match.
func writeUnmatchedSpan(b *strings.Builder, index int, word string, timings []WordTiming, consumed int) {
	b.WriteString("<span word='")
	b.WriteString(strconv.Itoa(index))
	b.WriteString("' error='" + NoMatch + "'")
	if consumed < len(timings) {
		b.WriteString(" debug_body='")
		b.WriteString(html.EscapeString(timings[consumed].Body))
		b.WriteString("'")
	}
	b.WriteString(">")
	b.WriteString(html.EscapeString(word))
	b.WriteString("</span>")
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
