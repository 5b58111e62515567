package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"

	"git.home.luguber.info/inful/refsite/internal/build"
	"git.home.luguber.info/inful/refsite/internal/config"
	"git.home.luguber.info/inful/refsite/internal/devserver"
	"git.home.luguber.info/inful/refsite/internal/livereload"
	"git.home.luguber.info/inful/refsite/internal/logfields"
	"git.home.luguber.info/inful/refsite/internal/metrics"
	"git.home.luguber.info/inful/refsite/internal/preview"
	"git.home.luguber.info/inful/refsite/internal/transcriber"
	"git.home.luguber.info/inful/refsite/internal/watch"
)

// DevCmd implements the 'dev' command: build, serve and rebuild on change.
type DevCmd struct {
	Host      string `name:"host" help:"Preview server host (overrides config)"`
	Port      int    `name:"port" help:"Preview server port (overrides config)"`
	NoMetrics bool   `name:"no-metrics" help:"Do not serve Prometheus metrics at /metrics"`
}

func (d *DevCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.LoadConfig(config.ModeDev)
	if err != nil {
		return err
	}
	if d.Host != "" {
		cfg.Preview.Host = d.Host
	}
	if d.Port != 0 {
		cfg.Preview.Port = d.Port
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return RunDev(ctx, cfg, !d.NoMetrics)
}

// RunDev runs the development loop until ctx is done or a fatal error occurs.
func RunDev(ctx context.Context, cfg *config.Config, withMetrics bool) error {
	var recorder metrics.Recorder = metrics.NoopRecorder{}
	reg := metrics.NewRegistry()
	if withMetrics {
		recorder = metrics.NewPrometheusRecorder(reg)
	}

	var output sync.RWMutex
	hub := livereload.NewHub().WithRecorder(recorder)
	builder := build.NewBuilder(cfg).
		WithPublishLock(&output).
		WithGenerator(transcriber.NewWhisperX(cfg.WhisperX)).
		WithRecorder(recorder).
		WithLiveReloadScript(livereload.Script)

	ws := builder.Workspace()
	if err := ws.Lock(); err != nil {
		return err
	}
	defer func() {
		if err := ws.Unlock(); err != nil {
			slog.Warn("Failed to release build lock", logfields.Error(err))
		}
	}()

	server := preview.New(cfg, hub).WithOutputLock(output.RLocker())
	if withMetrics {
		server = server.WithMetricsHandler(metrics.HTTPHandler(reg))
	}
	if err := server.Listen(); err != nil {
		return err
	}

	if err := builder.EnsureInputDirs(); err != nil {
		return err
	}
	sourceWatch, err := watch.New("source", debounce(cfg), cfg.SourceDir)
	if err != nil {
		return err
	}
	defer func() { _ = sourceWatch.Close() }()
	templateWatch, err := watch.New("templates", debounce(cfg), cfg.TemplateDir, cfg.RefDir)
	if err != nil {
		return err
	}
	defer func() { _ = templateWatch.Close() }()

	go func() { _ = sourceWatch.Run(ctx) }()
	go func() { _ = templateWatch.Run(ctx) }()

	scheduler := devserver.New(devserver.Options{
		Builder:   builder,
		Reloader:  hub,
		Source:    sourceWatch.C(),
		Templates: templateWatch.C(),
		Serve:     server.Serve,
	})
	return scheduler.Run(ctx)
}
