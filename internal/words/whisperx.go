package words

import (
	"encoding/json"
	"io"
	"strings"

	"git.home.luguber.info/inful/refsite/internal/foundation/errors"
)

type whisperXDocument struct {
	Segments []whisperXSegment `json:"segments"`
}

type whisperXSegment struct {
	Words []whisperXWord `json:"words"`
}

type whisperXWord struct {
	Word  string   `json:"word"`
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
}

// ConvertWhisperX flattens WhisperX JSON output (segments with word lists) into a
// Transcript. Words WhisperX could not align carry no timestamps; they inherit the
// previous word's end time so the sequence stays ordered.
func ConvertWhisperX(r io.Reader) (Transcript, error) {
	var doc whisperXDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Transcript{}, errors.WrapError(err, errors.CategoryTranscript, "decode whisperx output").Build()
	}

	out := Transcript{Version: TranscriptVersion, Segments: []WordTiming{}}
	last := 0.0
	for _, seg := range doc.Segments {
		for _, w := range seg.Words {
			body := strings.TrimSpace(w.Word)
			if body == "" {
				continue
			}
			start, end := last, last
			if w.Start != nil {
				start = *w.Start
			}
			if w.End != nil {
				end = *w.End
			} else if start > end {
				end = start
			}
			out.Segments = append(out.Segments, WordTiming{Body: body, Start: start, End: end})
			last = end
		}
	}
	return out, nil
}
