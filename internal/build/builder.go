package build

import (
	"bytes"
	"context"
	stderrors "errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	natomic "github.com/natefinch/atomic"

	"git.home.luguber.info/inful/refsite/internal/config"
	"git.home.luguber.info/inful/refsite/internal/document"
	"git.home.luguber.info/inful/refsite/internal/foundation/errors"
	"git.home.luguber.info/inful/refsite/internal/logfields"
	"git.home.luguber.info/inful/refsite/internal/metrics"
	"git.home.luguber.info/inful/refsite/internal/refbundle"
	"git.home.luguber.info/inful/refsite/internal/render"
	"git.home.luguber.info/inful/refsite/internal/templates"
	"git.home.luguber.info/inful/refsite/internal/transcriber"
	"git.home.luguber.info/inful/refsite/internal/workspace"
)

// Document actions reported to the metrics recorder.
const (
	ActionRendered = "rendered"
	ActionCopied   = "copied"
)

// Builder runs full and content builds for one configuration. Builds must not run
// concurrently; the Builder only guards its State against concurrent readers.
type Builder struct {
	cfg              *config.Config
	workspace        *workspace.Manager
	generator        transcriber.Generator
	recorder         metrics.Recorder
	liveReloadScript string
	publishLock      sync.Locker

	state atomic.Pointer[State]
}

// NewBuilder creates a Builder for cfg, which must be normalized.
func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{
		cfg:         cfg,
		workspace:   workspace.NewManager(cfg.BuildDir),
		recorder:    metrics.NoopRecorder{},
		publishLock: &sync.Mutex{},
	}
}

// WithGenerator sets the transcript generator used in generate transcript mode.
func (b *Builder) WithGenerator(g transcriber.Generator) *Builder {
	b.generator = g
	return b
}

// WithRecorder sets the metrics recorder.
func (b *Builder) WithRecorder(r metrics.Recorder) *Builder {
	if r != nil {
		b.recorder = r
	}
	return b
}

// WithLiveReloadScript sets the script injected into pages in dev mode.
func (b *Builder) WithLiveReloadScript(script string) *Builder {
	b.liveReloadScript = script
	return b
}

// WithPublishLock sets the lock held while a finished build replaces the output
// directory. Readers of the output directory hold the matching read lock.
func (b *Builder) WithPublishLock(l sync.Locker) *Builder {
	if l != nil {
		b.publishLock = l
	}
	return b
}

// Workspace returns the build directory manager.
func (b *Builder) Workspace() *workspace.Manager {
	return b.workspace
}

// State returns the state of the last successful full build, or nil.
func (b *Builder) State() *State {
	return b.state.Load()
}

// Full regenerates the scratch template tree, the reference fragments and the template
// registry, then renders the source tree. The previous State is invalidated when the
// build starts and replaced only when it succeeds. The output directory is replaced only
// by a successful build.
func (b *Builder) Full(ctx context.Context) (*State, Report, error) {
	report := newReport(ScopeFull)
	log := slog.With(logfields.BuildID(report.BuildID), logfields.Scope(string(report.Scope)))
	log.Info("Full build started")

	b.state.Store(nil)
	var state *State
	err := b.staged(report.BuildID, false, log, func(out string) error {
		var err error
		state, err = b.full(ctx, out, &report, log)
		return err
	})
	b.finish(&report, err, log)
	if err != nil {
		return nil, report, err
	}
	b.state.Store(state)
	return state, report, nil
}

// Content re-renders the source tree with the registry of the last full build. The
// media files of the current output are carried over. Site attributes are read again.
func (b *Builder) Content(ctx context.Context) (Report, error) {
	report := newReport(ScopeContent)
	log := slog.With(logfields.BuildID(report.BuildID), logfields.Scope(string(report.Scope)))
	log.Info("Content build started")

	state := b.state.Load()
	var err error
	if state == nil {
		err = errors.BuildError("no template registry, a full build must succeed first").Build()
	} else {
		err = b.staged(report.BuildID, true, log, func(out string) error {
			return b.publish(ctx, out, b.contentContext(state, log), state.TemplateDir, &report)
		})
	}
	b.finish(&report, err, log)
	return report, err
}

// contentContext returns state's render context with freshly loaded site attributes, so
// edits to the attributes file show up without a full build.
func (b *Builder) contentContext(state *State, log *slog.Logger) *render.Context {
	cfg := *state.Render.Config
	cfg.SiteAttributes = b.siteAttributes(log)
	rctx := *state.Render
	rctx.Config = &cfg
	return &rctx
}

// staged runs fill against an empty staging directory next to the output directory and
// swaps it in under the publish lock when fill succeeds. On failure the staging directory
// is removed and the output directory is left as it was.
func (b *Builder) staged(buildID string, carryMedia bool, log *slog.Logger, fill func(out string) error) error {
	live := b.cfg.OutputDir
	staging := live + stagingSuffix + buildID
	retired := live + retiredSuffix + buildID
	b.removeLeftovers(log)

	err := workspace.Recreate(staging, config.MediaDirName)
	if err == nil && carryMedia {
		var n int
		n, err = workspace.LinkTree(b.cfg.MediaDir(), filepath.Join(staging, config.MediaDirName))
		log.Debug("Carried media over", logfields.Count(n))
	}
	if err == nil {
		err = fill(staging)
	}
	if err == nil {
		b.publishLock.Lock()
		err = workspace.Swap(staging, live, retired)
		b.publishLock.Unlock()
	}
	if err != nil {
		removeDir(staging, log)
		return err
	}
	removeDir(retired, log)
	return nil
}

const (
	stagingSuffix = ".staging-"
	retiredSuffix = ".retired-"
)

// removeLeftovers deletes staging and retired directories of builds that were killed.
func (b *Builder) removeLeftovers(log *slog.Logger) {
	for _, suffix := range []string{stagingSuffix, retiredSuffix} {
		matches, _ := filepath.Glob(b.cfg.OutputDir + suffix + "*")
		for _, m := range matches {
			removeDir(m, log)
		}
	}
}

func removeDir(dir string, log *slog.Logger) {
	if err := os.RemoveAll(dir); err != nil {
		log.Warn("Failed to remove build directory", logfields.Path(dir), logfields.Error(err))
	}
}

func (b *Builder) full(ctx context.Context, out string, report *Report, log *slog.Logger) (*State, error) {
	if err := b.EnsureInputDirs(); err != nil {
		return nil, err
	}
	scratch, err := b.workspace.ResetSubdir(filepath.Base(b.cfg.BuildTemplateDir()))
	if err != nil {
		return nil, err
	}
	if _, err := workspace.CopyTree(b.cfg.TemplateDir, scratch); err != nil {
		return nil, err
	}

	cfg := *b.cfg
	cfg.SiteAttributes = b.siteAttributes(log)

	refCfg := cfg
	refCfg.OutputDir = out
	refs, err := refbundle.New(&refCfg, b.generator).
		WithRecorder(b.recorder).
		Process(ctx, cfg.RefDir, cfg.BuildRefDir())
	report.Refs = refs
	if err != nil {
		return nil, err
	}

	registry, err := templates.LoadDir(scratch)
	if err != nil {
		return nil, err
	}
	report.Templates = registry.Len()
	log.Debug("Registered templates",
		logfields.Count(registry.Len()),
		logfields.Path(registry.Root()),
		slog.Any("names", registry.Names()))

	state := &State{
		BuildID:     report.BuildID,
		TemplateDir: scratch,
		Render: &render.Context{
			Config:           &cfg,
			Templates:        registry,
			LiveReloadScript: b.liveReloadScript,
		},
	}
	if err := b.publish(ctx, out, state.Render, state.TemplateDir, report); err != nil {
		return nil, err
	}
	return state, nil
}

// EnsureInputDirs creates missing source, template and reference directories so a fresh
// project builds and can be watched.
func (b *Builder) EnsureInputDirs() error {
	for _, dir := range []string{b.cfg.SourceDir, b.cfg.TemplateDir, b.cfg.RefDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "create input directory").
				WithContext(logfields.KeyPath, dir).
				Build()
		}
	}
	return nil
}

// siteAttributes loads the site-wide attributes. A malformed file is logged and ignored.
func (b *Builder) siteAttributes(log *slog.Logger) map[string]string {
	attrs, err := config.LoadSiteAttributes(b.cfg.SourceDir)
	if err != nil {
		log.Error("Ignoring site attributes", logfields.Error(err))
		return map[string]string{}
	}
	return attrs
}

// publish writes the template tree's static assets and the rendered source tree into out.
func (b *Builder) publish(ctx context.Context, out string, rctx *render.Context, templateDir string, report *Report) error {
	assets, err := publishAssets(templateDir, out)
	report.Assets = assets
	if err != nil {
		return err
	}
	return b.renderTree(ctx, out, rctx, report)
}

// publishAssets copies every non-template file of the scratch template tree into the
// output tree, so layouts can ship stylesheets and images.
func publishAssets(templateDir, outputDir string) (int, error) {
	copied := 0
	err := workspace.Walk(templateDir, func(path string, d fs.DirEntry) error {
		if d.IsDir() || templates.IsTemplate(path) {
			return nil
		}
		rel, err := document.RelativeTo(templateDir, path)
		if err != nil {
			return err
		}
		if err := workspace.CopyFile(path, filepath.Join(outputDir, rel)); err != nil {
			return err
		}
		copied++
		return nil
	})
	return copied, err
}

func (b *Builder) renderTree(ctx context.Context, out string, rctx *render.Context, report *Report) error {
	src := b.cfg.SourceDir
	return workspace.Walk(src, func(path string, d fs.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := document.RelativeTo(src, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := os.MkdirAll(filepath.Join(out, rel), 0o750); err != nil {
				return errors.WrapError(err, errors.CategoryFileSystem, "create output directory").
					WithContext(logfields.KeyPath, filepath.Join(out, rel)).
					Build()
			}
			report.Dirs++
			return nil
		}
		if rel == config.SiteAttributesFile {
			return nil
		}
		return b.renderFile(rctx, document.New(path), out, report)
	})
}

func (b *Builder) renderFile(rctx *render.Context, doc document.Document, out string, report *Report) error {
	target, err := doc.OutputPath(b.cfg.SourceDir, out)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	err = render.Document(rctx, doc, &buf)
	if stderrors.Is(err, render.ErrNotRenderable) {
		if err := workspace.CopyFile(doc.Path, target); err != nil {
			return err
		}
		report.Copied++
		slog.Debug("Copied file", logfields.Path(doc.Path), logfields.Mime(doc.Mime))
		return nil
	}
	if err != nil {
		return err
	}
	if err := natomic.WriteFile(target, &buf); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write rendered page").
			WithContext(logfields.KeyPath, doc.Path).
			WithContext(logfields.KeyOutput, target).
			Build()
	}
	report.Rendered++
	slog.Debug("Rendered page",
		logfields.Path(doc.Path),
		logfields.Kind(doc.Kind.String()),
		logfields.Output(target))
	return nil
}

func newReport(scope Scope) Report {
	return Report{
		BuildID:   uuid.NewString(),
		Scope:     scope,
		StartTime: time.Now(),
	}
}

func (b *Builder) finish(report *Report, err error, log *slog.Logger) {
	report.Duration = time.Since(report.StartTime)
	report.Status = StatusSuccess
	if err != nil {
		report.Status = StatusFailed
	}

	scope := string(report.Scope)
	b.recorder.ObserveBuildDuration(scope, report.Duration)
	b.recorder.IncBuildOutcome(scope, metrics.ResultOf(err))
	b.recorder.AddDocuments(ActionRendered, report.Rendered)
	b.recorder.AddDocuments(ActionCopied, report.Copied)

	if err != nil {
		log.Error("Build failed", logfields.DurationMS(report.Duration), logfields.Error(err))
		return
	}
	log.Info("Build completed",
		logfields.DurationMS(report.Duration),
		slog.Int("rendered", report.Rendered),
		slog.Int("documents", report.Documents()),
		slog.Int("copied", report.Copied),
		slog.Int("assets", report.Assets))
}
