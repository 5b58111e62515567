package refbundle

import (
	"bytes"
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"git.home.luguber.info/inful/refsite/internal/config"
	"git.home.luguber.info/inful/refsite/internal/foundation/errors"
	"git.home.luguber.info/inful/refsite/internal/logfields"
	"git.home.luguber.info/inful/refsite/internal/markdown"
	"git.home.luguber.info/inful/refsite/internal/metrics"
	"git.home.luguber.info/inful/refsite/internal/transcriber"
	"git.home.luguber.info/inful/refsite/internal/words"
	"git.home.luguber.info/inful/refsite/internal/workspace"
)

// FragmentExt is appended to a bundle's name to form its fragment file name.
const FragmentExt = ".html.hbs"

// TranscriptSuffix names transcripts generated next to their audio file.
const TranscriptSuffix = ".transcript.json"

// Report summarizes one pass over a reference directory.
type Report struct {
	Bundles           int
	Fragments         int
	Media             int
	Aligned           int // fragments rendered with word timings
	Generated         int // transcripts generated
	GenerationFailure int
}

// Bundler processes reference directories for one build.
type Bundler struct {
	cfg       *config.Config
	generator transcriber.Generator
	recorder  metrics.Recorder
}

// New creates a Bundler. generator is only used in generate transcript mode and may be nil.
func New(cfg *config.Config, generator transcriber.Generator) *Bundler {
	return &Bundler{cfg: cfg, generator: generator, recorder: metrics.NoopRecorder{}}
}

// WithRecorder sets the metrics recorder.
func (b *Bundler) WithRecorder(r metrics.Recorder) *Bundler {
	if r != nil {
		b.recorder = r
	}
	return b
}

// Process groups the files below refDir into bundles and writes one fragment per bundle
// into fragmentDir, mirroring refDir's layout. Audio files are copied into the output
// media directory. A missing refDir is not an error.
func (b *Bundler) Process(ctx context.Context, refDir, fragmentDir string) (Report, error) {
	var report Report
	if _, err := os.Stat(refDir); os.IsNotExist(err) {
		slog.Info("Skipping reference bundles, no reference directory", logfields.Path(refDir))
		return report, nil
	}

	var entries []Entry
	err := workspace.Walk(refDir, func(path string, d fs.DirEntry) error {
		if !d.IsDir() {
			entries = append(entries, NewEntry(path))
		}
		return nil
	})
	if err != nil {
		return report, err
	}

	for _, bundle := range Group(entries) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Bundles++
		if err := b.flush(ctx, bundle, refDir, fragmentDir, &report); err != nil {
			return report, err
		}
	}

	slog.Info("Reference bundles processed",
		logfields.Count(report.Bundles),
		slog.Int("fragments", report.Fragments),
		slog.Int("media", report.Media),
		slog.Int("aligned", report.Aligned))
	return report, nil
}

func (b *Bundler) flush(ctx context.Context, bundle Bundle, refDir, fragmentDir string, report *Report) error {
	var audioTag string
	if bundle.Audio != nil {
		name := filepath.Base(bundle.Audio.Path)
		if err := workspace.CopyFile(bundle.Audio.Path, filepath.Join(b.cfg.MediaDir(), name)); err != nil {
			return err
		}
		report.Media++
		audioTag = AudioTag(name, bundle.Audio.Mime, b.cfg.MediaURL(name))

		if bundle.Transcript == "" && b.cfg.Transcript == config.TranscriptGenerate {
			bundle.Transcript = b.generate(ctx, bundle, report)
		}
	}

	var body []byte
	if bundle.Markdown != "" {
		var aligned bool
		var err error
		body, aligned, err = b.renderMarkdown(bundle)
		if err != nil {
			return err
		}
		if aligned {
			report.Aligned++
		}
	}

	if bundle.Markdown == "" && bundle.Audio == nil {
		slog.Debug("Transcript without markdown or audio, no fragment written", logfields.Stem(bundle.Stem))
		return nil
	}

	target, err := fragmentPath(bundle, refDir, fragmentDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create fragment directory").
			WithContext(logfields.KeyPath, filepath.Dir(target)).
			Build()
	}
	if err := atomic.WriteFile(target, bytes.NewReader(Fragment(audioTag, body))); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write fragment").
			WithContext(logfields.KeyPath, target).
			Build()
	}
	report.Fragments++
	slog.Debug("Wrote reference fragment", logfields.Stem(bundle.Stem), logfields.Output(target))
	return nil
}

// generate produces a missing transcript. Failure is confined to this bundle: it is logged
// and the bundle renders without timings.
func (b *Bundler) generate(ctx context.Context, bundle Bundle, report *Report) string {
	if b.generator == nil {
		slog.Warn("Transcript generation requested but no generator configured", logfields.Stem(bundle.Stem))
		return ""
	}
	audio := bundle.Audio.Path
	target := strings.TrimSuffix(audio, filepath.Ext(audio)) + TranscriptSuffix
	err := b.generator.Generate(ctx, audio, target)
	b.recorder.IncTranscriptGeneration(metrics.ResultOf(err))
	if err != nil {
		report.GenerationFailure++
		slog.Error("Transcript generation failed, rendering without timings",
			logfields.Stem(bundle.Stem), logfields.Path(audio), logfields.Error(err))
		return ""
	}
	report.Generated++
	return target
}

func (b *Bundler) renderMarkdown(bundle Bundle) ([]byte, bool, error) {
	source, err := os.ReadFile(bundle.Markdown)
	if err != nil {
		return nil, false, errors.WrapError(err, errors.CategoryFileSystem, "read reference markdown").
			WithContext(logfields.KeyPath, bundle.Markdown).
			Build()
	}

	if bundle.Transcript == "" || b.cfg.Transcript == config.TranscriptOff {
		body, err := markdown.ToHTML(source)
		if err != nil {
			return nil, false, errors.WrapError(err, errors.CategoryRender, "convert reference markdown").
				WithContext(logfields.KeyPath, bundle.Markdown).
				Build()
		}
		return body, false, nil
	}

	timings, err := words.LoadTranscriptFile(bundle.Transcript)
	if err != nil {
		return nil, false, err
	}
	body, stats, err := markdown.ToHTMLWithTiming(source, timings)
	if err != nil {
		return nil, false, errors.WrapError(err, errors.CategoryRender, "convert reference markdown").
			WithContext(logfields.KeyPath, bundle.Markdown).
			Build()
	}
	slog.Debug("Aligned reference text",
		logfields.Stem(bundle.Stem),
		logfields.Words(stats.Words),
		logfields.Timings(stats.Timings),
		slog.Int("unmatched", stats.Unmatched()))
	return body, true, nil
}

// fragmentPath names the fragment after the Markdown file (talk.md -> talk.html.hbs), or
// after the audio file for audio-only bundles.
func fragmentPath(bundle Bundle, refDir, fragmentDir string) (string, error) {
	source := bundle.Markdown
	if source == "" {
		source = bundle.Audio.Path
	}
	rel, err := filepath.Rel(refDir, source)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryConfig, "reference file is not below the reference directory").
			WithContext(logfields.KeyPath, source).
			Build()
	}
	return filepath.Join(fragmentDir, strings.TrimSuffix(rel, filepath.Ext(rel))+FragmentExt), nil
}
