package transcriber

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/refsite/internal/config"
	"git.home.luguber.info/inful/refsite/internal/foundation/errors"
	"git.home.luguber.info/inful/refsite/internal/logfields"
	"git.home.luguber.info/inful/refsite/internal/words"
)

// CommandRunner executes an external command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// WhisperX generates transcripts by running the whisperx CLI and converting its JSON output.
type WhisperX struct {
	cfg    config.WhisperXConfig
	runner CommandRunner
}

// NewWhisperX creates a WhisperX generator.
func NewWhisperX(cfg config.WhisperXConfig) *WhisperX {
	if cfg.Command == "" {
		cfg.Command = config.DefaultWhisperXBin
	}
	if cfg.Language == "" {
		cfg.Language = config.DefaultWhisperXLang
	}
	if cfg.ComputeType == "" {
		cfg.ComputeType = "float32"
	}
	return &WhisperX{cfg: cfg, runner: execRunner}
}

// WithCommandRunner sets a custom command runner (for testing).
func (w *WhisperX) WithCommandRunner(runner CommandRunner) *WhisperX {
	w.runner = runner
	return w
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	return cmd.CombinedOutput()
}

// Generate runs whisperx on audioPath in a scratch directory, so its intermediate files never
// land next to the source audio, and writes the converted transcript to transcriptPath.
func (w *WhisperX) Generate(ctx context.Context, audioPath, transcriptPath string) error {
	base := filepath.Base(audioPath)
	if base == "." || base == string(filepath.Separator) {
		return errors.TranscriptError("audio path must refer to a file").
			WithContext(logfields.KeyPath, audioPath).
			Build()
	}
	audioAbs, err := filepath.Abs(audioPath)
	if err != nil {
		return errors.WrapError(err, errors.CategoryTranscript, "resolve audio path").
			WithContext(logfields.KeyPath, audioPath).
			Build()
	}

	workDir, err := os.MkdirTemp("", "refsite-whisperx-")
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create whisperx work dir").Build()
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	start := time.Now()
	slog.Info("Generating transcript",
		logfields.Path(audioPath),
		logfields.Output(transcriptPath),
		slog.String("command", w.cfg.Command))

	output, err := w.runner(ctx, w.cfg.Command, w.buildArgs(audioAbs, workDir)...)
	if err != nil {
		return errors.WrapError(fmt.Errorf("%s: %w: %s", w.cfg.Command, err, strings.TrimSpace(string(output))),
			errors.CategoryTranscript, "whisperx failed").
			WithContext(logfields.KeyPath, audioPath).
			Build()
	}

	jsonPath := filepath.Join(workDir, strings.TrimSuffix(base, filepath.Ext(base))+".json")
	f, err := os.Open(jsonPath)
	if err != nil {
		return errors.WrapError(err, errors.CategoryTranscript, "whisperx produced no json output").
			WithContext(logfields.KeyPath, jsonPath).
			Build()
	}
	defer func() { _ = f.Close() }()

	transcript, err := words.ConvertWhisperX(f)
	if err != nil {
		return err
	}
	if err := words.WriteTranscriptFile(transcriptPath, transcript); err != nil {
		return err
	}

	slog.Info("Transcript generated",
		logfields.Output(transcriptPath),
		logfields.Timings(len(transcript.Segments)),
		logfields.DurationMS(time.Since(start)))
	return nil
}

func (w *WhisperX) buildArgs(audio, outputDir string) []string {
	args := []string{
		audio,
		"--output_format", "json",
		"--compute_type", w.cfg.ComputeType,
		"--output_dir", outputDir,
		"--language", w.cfg.Language,
	}
	if w.cfg.Model != "" {
		args = append(args, "--model", w.cfg.Model)
	}
	return append(args, w.cfg.ExtraArgs...)
}
