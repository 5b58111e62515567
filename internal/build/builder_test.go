package build

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/refsite/internal/config"
	"git.home.luguber.info/inful/refsite/internal/foundation/errors"
	"git.home.luguber.info/inful/refsite/internal/metrics"
)

const layout = "<html><head><title>{{title}} | {{site}}</title></head><body>{{{body}}}</body></html>"

type fixture struct {
	root string
	cfg  *config.Config
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		SourceDir:   filepath.Join(root, "source"),
		TemplateDir: filepath.Join(root, "template"),
		RefDir:      filepath.Join(root, "ref"),
		OutputDir:   filepath.Join(root, ".dist"),
	}
	cfg.Normalize()
	f := fixture{root: root, cfg: cfg}
	f.write(t, "template/default.hbs", layout)
	f.write(t, "source/_site.yaml", "site: Demo\n")
	f.write(t, "source/index.md", "---\ntitle: Home\n---\n# Hello\n")
	f.write(t, "source/style.css", "body{}")
	f.write(t, "source/sub/page.md", "---\ntitle: Sub\n---\nsub page\n")
	return f
}

func (f fixture) write(t *testing.T, rel, content string) {
	t.Helper()
	path := filepath.Join(f.root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func (f fixture) read(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.cfg.OutputDir, rel))
	require.NoError(t, err)
	return string(data)
}

func TestFull_RendersSourceTree(t *testing.T) {
	f := newFixture(t)
	b := NewBuilder(f.cfg)

	state, report, err := b.Full(context.Background())
	require.NoError(t, err)
	require.NotNil(t, state)
	require.Same(t, state, b.State())

	require.Equal(t,
		"<html><head><title>Home | Demo</title></head><body><h1>Hello</h1>\n</body></html>",
		f.read(t, "index.html"))
	require.Contains(t, f.read(t, "sub/page.html"), "<title>Sub | Demo</title>")
	require.Equal(t, "body{}", f.read(t, "style.css"))
	require.NoFileExists(t, filepath.Join(f.cfg.OutputDir, config.SiteAttributesFile))
	require.DirExists(t, f.cfg.MediaDir())

	require.Equal(t, ScopeFull, report.Scope)
	require.Equal(t, StatusSuccess, report.Status)
	require.NotEmpty(t, report.BuildID)
	require.Equal(t, 2, report.Rendered)
	require.Equal(t, 1, report.Copied)
	require.Equal(t, 1, report.Dirs)
	require.Equal(t, 1, report.Templates)
	require.Equal(t, 3, report.Documents())
	require.True(t, state.Templates().Has(config.DefaultLayout))
}

func TestFull_ReferenceFragmentsAreAvailableAsPartials(t *testing.T) {
	f := newFixture(t)
	f.write(t, "ref/talk.md", "Hello world!")
	f.write(t, "ref/talk.mp3", "audio")
	f.write(t, "source/talks.html.hbs", "---\ntitle: Talks\n---\n{{> ref/talk.html}}")

	_, report, err := NewBuilder(f.cfg).Full(context.Background())
	require.NoError(t, err)

	page := f.read(t, "talks.html")
	require.Contains(t, page, `<div class="ref"><audio id="audio" controls><source src="/media/talk.mp3" type="audio/mpeg">`)
	require.Contains(t, page, "Hello")
	require.Equal(t, "audio", f.read(t, "media/talk.mp3"))
	require.Equal(t, 1, report.Refs.Fragments)
	require.Equal(t, 2, report.Templates)
}

func TestFull_PublishesTemplateAssets(t *testing.T) {
	f := newFixture(t)
	f.write(t, "template/css/site.css", "h1{}")
	f.write(t, "template/partials/nav.hbs", "<nav></nav>")

	_, report, err := NewBuilder(f.cfg).Full(context.Background())
	require.NoError(t, err)

	require.Equal(t, "h1{}", f.read(t, "css/site.css"))
	require.NoFileExists(t, filepath.Join(f.cfg.OutputDir, "default.hbs"))
	require.NoFileExists(t, filepath.Join(f.cfg.OutputDir, "partials", "nav.hbs"))
	require.Equal(t, 1, report.Assets)
}

func TestFull_CreatesMissingInputDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := &config.Config{
		SourceDir:   filepath.Join(root, "source"),
		TemplateDir: filepath.Join(root, "template"),
		RefDir:      filepath.Join(root, "ref"),
		OutputDir:   filepath.Join(root, ".dist"),
	}
	cfg.Normalize()

	state, report, err := NewBuilder(cfg).Full(context.Background())
	require.NoError(t, err)
	require.Zero(t, state.Templates().Len())
	require.Zero(t, report.Documents())
	require.DirExists(t, cfg.SourceDir)
	require.DirExists(t, cfg.TemplateDir)
	require.DirExists(t, cfg.RefDir)
}

func TestFull_MalformedSiteAttributesAreIgnored(t *testing.T) {
	f := newFixture(t)
	f.write(t, "source/_site.yaml", "site: [unclosed\n")

	_, _, err := NewBuilder(f.cfg).Full(context.Background())
	require.NoError(t, err)
	require.Contains(t, f.read(t, "index.html"), "<title>Home | </title>")
}

func TestFull_DevModeInjectsLiveReloadScript(t *testing.T) {
	f := newFixture(t)
	f.cfg.Mode = config.ModeDev

	_, _, err := NewBuilder(f.cfg).WithLiveReloadScript("reload()").Full(context.Background())
	require.NoError(t, err)
	require.Contains(t, f.read(t, "index.html"), "<script>reload()</script></head>")
	require.Equal(t, "body{}", f.read(t, "style.css"))
}

func TestFull_FailureInvalidatesState(t *testing.T) {
	f := newFixture(t)
	b := NewBuilder(f.cfg)
	_, _, err := b.Full(context.Background())
	require.NoError(t, err)
	require.NotNil(t, b.State())

	f.write(t, "source/broken.md", "---\nlayout: missing\n---\ntext\n")
	state, report, err := b.Full(context.Background())
	require.Error(t, err)
	require.Nil(t, state)
	require.Nil(t, b.State())
	require.Equal(t, StatusFailed, report.Status)

	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	require.Equal(t, errors.CategoryTemplate, ce.Category())
}

func TestContent_KeepsRegistryAndMedia(t *testing.T) {
	f := newFixture(t)
	f.write(t, "ref/talk.mp3", "audio")
	b := NewBuilder(f.cfg)

	state, _, err := b.Full(context.Background())
	require.NoError(t, err)

	f.write(t, "source/index.md", "---\ntitle: Home\n---\n# Changed\n")
	require.NoError(t, os.Remove(filepath.Join(f.cfg.SourceDir, "style.css")))

	report, err := b.Content(context.Background())
	require.NoError(t, err)
	require.Same(t, state, b.State())
	require.Equal(t, ScopeContent, report.Scope)
	require.Zero(t, report.Templates)
	require.Equal(t, 2, report.Rendered)

	require.Contains(t, f.read(t, "index.html"), "<h1>Changed</h1>")
	require.NoFileExists(t, filepath.Join(f.cfg.OutputDir, "style.css"))
	require.Equal(t, "audio", f.read(t, "media/talk.mp3"))
}

func TestContent_UsesRegisteredTemplatesNotCurrentOnes(t *testing.T) {
	f := newFixture(t)
	b := NewBuilder(f.cfg)
	_, _, err := b.Full(context.Background())
	require.NoError(t, err)

	f.write(t, "template/default.hbs", "<html><body>new layout</body></html>")
	_, err = b.Content(context.Background())
	require.NoError(t, err)
	require.Contains(t, f.read(t, "index.html"), "<title>Home | Demo</title>")
}

func TestContent_RequiresFullBuild(t *testing.T) {
	f := newFixture(t)

	_, err := NewBuilder(f.cfg).Content(context.Background())
	require.Error(t, err)
	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	require.Equal(t, errors.CategoryBuild, ce.Category())
}

func TestContent_CancelledContext(t *testing.T) {
	f := newFixture(t)
	b := NewBuilder(f.cfg)
	_, _, err := b.Full(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.Content(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func requireNoStagingLeft(t *testing.T, cfg *config.Config) {
	t.Helper()
	leftovers, err := filepath.Glob(cfg.OutputDir + ".*-*")
	require.NoError(t, err)
	require.Empty(t, leftovers)
}

func TestContent_FailureKeepsPreviousOutput(t *testing.T) {
	f := newFixture(t)
	f.write(t, "ref/talk.mp3", "audio")
	b := NewBuilder(f.cfg)
	_, _, err := b.Full(context.Background())
	require.NoError(t, err)

	f.write(t, "source/broken.md", "---\nlayout: missing\n---\ntext\n")
	report, err := b.Content(context.Background())
	require.Error(t, err)
	require.Equal(t, StatusFailed, report.Status)

	require.Contains(t, f.read(t, "sub/page.html"), "<title>Sub | Demo</title>")
	require.Equal(t, "audio", f.read(t, "media/talk.mp3"))
	require.NoFileExists(t, filepath.Join(f.cfg.OutputDir, "broken.html"))
	require.NotNil(t, b.State())
	requireNoStagingLeft(t, f.cfg)
}

func TestFull_FailureKeepsPreviousOutput(t *testing.T) {
	f := newFixture(t)
	b := NewBuilder(f.cfg)
	_, _, err := b.Full(context.Background())
	require.NoError(t, err)

	f.write(t, "source/broken.md", "---\nlayout: missing\n---\ntext\n")
	_, _, err = b.Full(context.Background())
	require.Error(t, err)

	require.Contains(t, f.read(t, "index.html"), "<title>Home | Demo</title>")
	require.Equal(t, "body{}", f.read(t, "style.css"))
	requireNoStagingLeft(t, f.cfg)
}

func TestContent_LinksMediaIntoNewOutput(t *testing.T) {
	f := newFixture(t)
	f.write(t, "ref/talk.mp3", "audio")
	b := NewBuilder(f.cfg)
	_, _, err := b.Full(context.Background())
	require.NoError(t, err)

	previous := filepath.Join(f.cfg.MediaDir(), "talk.mp3")
	before, err := os.Stat(previous)
	require.NoError(t, err)

	_, err = b.Content(context.Background())
	require.NoError(t, err)
	after, err := os.Stat(previous)
	require.NoError(t, err)
	require.True(t, os.SameFile(before, after))
	requireNoStagingLeft(t, f.cfg)
}

func TestStaged_RemovesLeftoversOfKilledBuilds(t *testing.T) {
	f := newFixture(t)
	stale := f.cfg.OutputDir + stagingSuffix + "killed"
	f.write(t, filepath.Base(stale)+"/index.html", "half")

	_, _, err := NewBuilder(f.cfg).Full(context.Background())
	require.NoError(t, err)
	require.NoDirExists(t, stale)
	requireNoStagingLeft(t, f.cfg)
}

func TestContent_ReloadsSiteAttributes(t *testing.T) {
	f := newFixture(t)
	b := NewBuilder(f.cfg)
	state, _, err := b.Full(context.Background())
	require.NoError(t, err)

	f.write(t, "source/_site.yaml", "site: Renamed\n")
	_, err = b.Content(context.Background())
	require.NoError(t, err)

	require.Contains(t, f.read(t, "index.html"), "<title>Home | Renamed</title>")
	require.Same(t, state, b.State())
	require.Equal(t, "Demo", state.Render.Config.SiteAttributes["site"])
}

type recordingLocker struct {
	mu    sync.Mutex
	locks int
}

func (l *recordingLocker) Lock() {
	l.mu.Lock()
	l.locks++
}

func (l *recordingLocker) Unlock() { l.mu.Unlock() }

func TestBuilder_SwapsUnderPublishLock(t *testing.T) {
	f := newFixture(t)
	lock := &recordingLocker{}
	b := NewBuilder(f.cfg).WithPublishLock(lock)

	_, _, err := b.Full(context.Background())
	require.NoError(t, err)
	_, err = b.Content(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, lock.locks)

	f.write(t, "source/broken.md", "---\nlayout: missing\n---\ntext\n")
	_, err = b.Content(context.Background())
	require.Error(t, err)
	require.Equal(t, 2, lock.locks)
}

type countingRecorder struct {
	metrics.NoopRecorder
	outcomes map[string]metrics.ResultLabel
	docs     map[string]int
}

func (c *countingRecorder) IncBuildOutcome(scope string, result metrics.ResultLabel) {
	c.outcomes[scope] = result
}

func (c *countingRecorder) AddDocuments(action string, n int) {
	c.docs[action] += n
}

func (c *countingRecorder) ObserveBuildDuration(string, time.Duration) {}

func TestBuilder_RecordsMetrics(t *testing.T) {
	f := newFixture(t)
	rec := &countingRecorder{outcomes: map[string]metrics.ResultLabel{}, docs: map[string]int{}}
	b := NewBuilder(f.cfg).WithRecorder(rec)

	_, _, err := b.Full(context.Background())
	require.NoError(t, err)
	_, err = b.Content(context.Background())
	require.NoError(t, err)

	require.Equal(t, metrics.ResultSuccess, rec.outcomes[string(ScopeFull)])
	require.Equal(t, metrics.ResultSuccess, rec.outcomes[string(ScopeContent)])
	require.Equal(t, 4, rec.docs[ActionRendered])
	require.Equal(t, 2, rec.docs[ActionCopied])
}

func TestState_TemplatesWithoutRenderContext(t *testing.T) {
	var missing *State
	require.Nil(t, missing.Templates())
	require.Nil(t, (&State{BuildID: "x"}).Templates())
}
