package commands

import (
	"context"
	"io"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/refsite/internal/build"
	"git.home.luguber.info/inful/refsite/internal/config"
	"git.home.luguber.info/inful/refsite/internal/logfields"
	"git.home.luguber.info/inful/refsite/internal/transcriber"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Quiet bool `short:"q" help:"Do not print the build summary"`

	out io.Writer
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.LoadConfig(config.ModeBuild)
	if err != nil {
		return err
	}
	report, err := RunBuild(context.Background(), cfg)
	if err != nil {
		return err
	}
	if b.Quiet {
		return nil
	}
	out := b.out
	if out == nil {
		out = os.Stdout
	}
	return writeString(out, renderReport(report)+"\n")
}

// RunBuild performs one full build while holding the build directory lock.
func RunBuild(ctx context.Context, cfg *config.Config) (build.Report, error) {
	builder := build.NewBuilder(cfg).WithGenerator(transcriber.NewWhisperX(cfg.WhisperX))
	ws := builder.Workspace()
	if err := ws.Lock(); err != nil {
		return build.Report{}, err
	}
	defer func() {
		if err := ws.Unlock(); err != nil {
			slog.Warn("Failed to release build lock", logfields.Error(err))
		}
	}()

	_, report, err := builder.Full(ctx)
	return report, err
}
