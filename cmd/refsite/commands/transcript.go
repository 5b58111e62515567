package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"git.home.luguber.info/inful/refsite/internal/config"
	"git.home.luguber.info/inful/refsite/internal/foundation/errors"
	"git.home.luguber.info/inful/refsite/internal/logfields"
	"git.home.luguber.info/inful/refsite/internal/refbundle"
	"git.home.luguber.info/inful/refsite/internal/transcriber"
	"git.home.luguber.info/inful/refsite/internal/words"
)

// TranscriptCmd groups transcript-related commands.
type TranscriptCmd struct {
	Convert  TranscriptConvertCmd  `cmd:"" help:"Convert WhisperX JSON output into a transcript file"`
	Generate TranscriptGenerateCmd `cmd:"" help:"Generate the transcript of an audio file with WhisperX"`
}

// TranscriptConvertCmd implements 'transcript convert'.
type TranscriptConvertCmd struct {
	Input  string `arg:"" type:"existingfile" help:"WhisperX JSON file"`
	Output string `arg:"" optional:"" help:"Transcript file to write (default: standard output)"`

	stdout io.Writer
}

func (c *TranscriptConvertCmd) Run(_ *Global, _ *CLI) error {
	in, err := os.Open(c.Input)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "open whisperx output").
			WithContext(logfields.KeyPath, c.Input).
			Build()
	}
	defer func() { _ = in.Close() }()

	transcript, err := words.ConvertWhisperX(in)
	if err != nil {
		return err
	}
	if c.Output == "" || c.Output == "-" {
		out := c.stdout
		if out == nil {
			out = os.Stdout
		}
		return words.WriteTranscript(out, transcript)
	}
	if err := words.WriteTranscriptFile(c.Output, transcript); err != nil {
		return err
	}
	slog.Info("Transcript written", logfields.Output(c.Output), logfields.Timings(len(transcript.Segments)))
	return nil
}

// TranscriptGenerateCmd implements 'transcript generate'.
type TranscriptGenerateCmd struct {
	Audio  string `arg:"" type:"existingfile" help:"Audio file to transcribe"`
	Output string `arg:"" optional:"" help:"Transcript file to write (default: next to the audio file)"`

	generator transcriber.Generator
}

func (c *TranscriptGenerateCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.LoadConfig(config.ModeBuild)
	if err != nil {
		return err
	}
	generator := c.generator
	if generator == nil {
		generator = transcriber.NewWhisperX(cfg.WhisperX)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	target := c.Output
	if target == "" {
		target = DefaultTranscriptPath(c.Audio)
	}
	if err := generator.Generate(ctx, c.Audio, target); err != nil {
		return err
	}
	slog.Info("Transcript generated", logfields.Path(c.Audio), logfields.Output(target))
	return nil
}

// DefaultTranscriptPath names the transcript the reference bundler picks up for audio.
func DefaultTranscriptPath(audio string) string {
	return strings.TrimSuffix(audio, filepath.Ext(audio)) + refbundle.TranscriptSuffix
}
