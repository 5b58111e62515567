// Package refbundle turns a directory of reference material into template fragments.
// Files sharing a stem (talk.md, talk.mp3, talk.transcript.json) form one bundle: an audio
// player followed by the Markdown text, word-aligned against the transcript when present.
package refbundle

import (
	"log/slog"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/refsite/internal/document"
	"git.home.luguber.info/inful/refsite/internal/logfields"
)

// Entry is a file found while walking the reference directory.
type Entry struct {
	Path string
	Mime string
}

// NewEntry classifies path by extension.
func NewEntry(path string) Entry {
	return Entry{Path: path, Mime: document.MimeType(path)}
}

// Audio is the audio slot of a bundle.
type Audio struct {
	Path string
	Mime string
}

// Bundle groups the files that describe one reference.
type Bundle struct {
	Stem       string
	Markdown   string
	Audio      *Audio
	Transcript string
}

// Empty reports whether no slot is set.
func (b Bundle) Empty() bool {
	return b.Markdown == "" && b.Audio == nil && b.Transcript == ""
}

// Stem strips the last two extensions from path, so talk.mp3 and talk.transcript.json
// share the stem talk.
func Stem(path string) string {
	for range 2 {
		ext := filepath.Ext(path)
		if ext == "" || ext == path || strings.HasSuffix(path, string(filepath.Separator)+ext) {
			break
		}
		path = strings.TrimSuffix(path, ext)
	}
	return path
}

// Group folds an ordered entry list into bundles. A bundle ends when an entry's stem
// differs from the previous entry's; entries must therefore be sorted by name. Files
// that fit no slot still end the current bundle. Empty bundles are dropped.
func Group(entries []Entry) []Bundle {
	var bundles []Bundle
	var current Bundle
	started := false

	for _, e := range entries {
		stem := Stem(e.Path)
		if !started || stem != current.Stem {
			if !current.Empty() {
				bundles = append(bundles, current)
			}
			current = Bundle{Stem: stem}
			started = true
		}
		current.add(e)
	}
	if !current.Empty() {
		bundles = append(bundles, current)
	}
	return bundles
}

func (b *Bundle) add(e Entry) {
	switch {
	case e.Mime == document.MimeMarkdown:
		b.replaceWarning(b.Markdown, e.Path)
		b.Markdown = e.Path
	case document.MajorType(e.Mime) == "audio":
		if b.Audio != nil {
			b.replaceWarning(b.Audio.Path, e.Path)
		}
		b.Audio = &Audio{Path: e.Path, Mime: e.Mime}
	case e.Mime == document.MimeJSON:
		b.replaceWarning(b.Transcript, e.Path)
		b.Transcript = e.Path
	default:
		slog.Debug("Ignoring reference file of unknown type", logfields.Path(e.Path), logfields.Mime(e.Mime))
	}
}

func (b *Bundle) replaceWarning(previous, next string) {
	if previous != "" {
		slog.Warn("Reference bundle has two files for one slot; using the later one",
			logfields.Stem(b.Stem), logfields.Path(previous), slog.String("replacement", next))
	}
}
