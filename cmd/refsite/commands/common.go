package commands

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/mattn/go-isatty"

	"git.home.luguber.info/inful/refsite/internal/config"
	"git.home.luguber.info/inful/refsite/internal/logfields"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags. Directory and mode flags override the config file.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path (default: refsite.yaml, refsite.yml or refsite.toml when present)"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogFormat string           `name:"log-format" default:"auto" enum:"auto,text,json" help:"Log format (auto uses JSON when stderr is not a terminal)"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Source         string `name:"source" help:"Source directory"`
	Templates      string `name:"templates" help:"Template directory"`
	Ref            string `name:"ref" help:"Reference bundle directory"`
	Output         string `short:"o" name:"output" help:"Output directory"`
	Prefix         string `name:"prefix" help:"URL path prefix the site is served under"`
	TranscriptMode string `name:"transcript" help:"Transcript mode: off, static or generate"`

	Build      BuildCmd      `cmd:"" help:"Build the site once"`
	Dev        DevCmd        `cmd:"" help:"Build, serve and rebuild on change with live reload"`
	Transcript TranscriptCmd `cmd:"" help:"Transcript utilities"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(newLogHandler(os.Stderr, c.LogFormat, level)))
	return nil
}

func newLogHandler(w *os.File, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if useJSON(format, w) {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func useJSON(format string, w *os.File) bool {
	switch format {
	case "json":
		return true
	case "text":
		return false
	default:
		return !isatty.IsTerminal(w.Fd()) && !isatty.IsCygwinTerminal(w.Fd())
	}
}

// LoadConfig loads the configuration file, applies the global flag overrides and the
// command's mode, and validates the result.
func (c *CLI) LoadConfig(mode config.Mode) (*config.Config, error) {
	cfg, path, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	c.applyOverrides(cfg)
	cfg.Mode = mode
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	source := path
	if source == "" {
		source = "defaults"
	}
	slog.Info("Configuration loaded",
		slog.String("config", source),
		slog.String("source_dir", cfg.SourceDir),
		slog.String("template_dir", cfg.TemplateDir),
		slog.String("ref_dir", cfg.RefDir),
		logfields.Output(cfg.OutputDir),
		slog.String("prefix", cfg.Prefix),
		slog.String("mode", string(cfg.Mode)),
		slog.String("transcript", string(cfg.Transcript)))
	return cfg, nil
}

func (c *CLI) applyOverrides(cfg *config.Config) {
	if c.Source != "" {
		cfg.SetSourceDir(c.Source)
	}
	if c.Templates != "" {
		cfg.TemplateDir = c.Templates
	}
	if c.Ref != "" {
		cfg.RefDir = c.Ref
	}
	if c.Output != "" {
		cfg.OutputDir = c.Output
	}
	if c.Prefix != "" {
		cfg.Prefix = c.Prefix
	}
	if c.TranscriptMode != "" {
		cfg.Transcript = config.TranscriptMode(c.TranscriptMode)
	}
}

func debounce(cfg *config.Config) time.Duration {
	return time.Duration(cfg.DebounceMS) * time.Millisecond
}

func writeString(w io.Writer, s string) error {
	_, err := io.WriteString(w, s)
	return err
}
