package words

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"

	"git.home.luguber.info/inful/refsite/internal/foundation/errors"
	"git.home.luguber.info/inful/refsite/internal/logfields"
)

// TranscriptVersion is the transcript format version this package writes and expects.
const TranscriptVersion = "1.0.0"

// Transcript is the on-disk transcript document.
type Transcript struct {
	Version  string       `json:"version"`
	Segments []WordTiming `json:"segments"`
}

// LoadTranscript parses a transcript document and returns its timing entries in order.
// Comments and trailing commas are tolerated. A version other than TranscriptVersion is
// logged and otherwise ignored.
func LoadTranscript(r io.Reader) ([]WordTiming, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryTranscript, "read transcript").Build()
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.TranscriptError("transcript is empty").Build()
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryTranscript, "parse transcript").Build()
	}

	var t Transcript
	if err := json.Unmarshal(standardized, &t); err != nil {
		return nil, errors.WrapError(err, errors.CategoryTranscript, "decode transcript").Build()
	}
	if t.Version != TranscriptVersion {
		slog.Warn("unexpected transcript version",
			slog.String("version", t.Version),
			slog.String("expected", TranscriptVersion))
	}
	return t.Segments, nil
}

// LoadTranscriptFile opens path and loads it with LoadTranscript.
func LoadTranscriptFile(path string) ([]WordTiming, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryTranscript, "open transcript").
			WithContext(logfields.KeyPath, path).
			Build()
	}
	defer func() { _ = f.Close() }()

	timings, err := LoadTranscript(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	slog.Debug("transcript loaded", logfields.Path(path), logfields.Timings(len(timings)))
	return timings, nil
}

// WriteTranscript encodes t as indented JSON.
func WriteTranscript(w io.Writer, t Transcript) error {
	if t.Version == "" {
		t.Version = TranscriptVersion
	}
	if t.Segments == nil {
		t.Segments = []WordTiming{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(t)
}

// WriteTranscriptFile atomically replaces path with the encoded transcript.
func WriteTranscriptFile(path string, t Transcript) error {
	var buf bytes.Buffer
	if err := WriteTranscript(&buf, t); err != nil {
		return errors.WrapError(err, errors.CategoryTranscript, "encode transcript").Build()
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write transcript").
			WithContext(logfields.KeyPath, path).
			Build()
	}
	return nil
}
