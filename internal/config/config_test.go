package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/refsite/internal/foundation/errors"
)

func TestNormalizePrefix(t *testing.T) {
	cases := map[string]string{
		"":            "/",
		"/":           "/",
		"/thing":      "/thing/",
		"start/":      "/start/",
		"/what/ever/": "/what/ever/",
		"a/b":         "/a/b/",
	}
	for in, want := range cases {
		require.Equal(t, want, NormalizePrefix(in), "prefix %q", in)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.Equal(t, DefaultSourceDir, cfg.SourceDir)
	require.Equal(t, DefaultTemplateDir, cfg.TemplateDir)
	require.Equal(t, DefaultRefDir, cfg.RefDir)
	require.Equal(t, DefaultOutputDir, cfg.OutputDir)
	require.Equal(t, BuildDirName, cfg.BuildDir)
	require.Equal(t, "/", cfg.Prefix)
	require.Equal(t, ModeBuild, cfg.Mode)
	require.Equal(t, TranscriptStatic, cfg.Transcript)
	require.Equal(t, DefaultDebounceMS, cfg.DebounceMS)
	require.Equal(t, "127.0.0.1:3456", cfg.Preview.Addr())
	require.NotNil(t, cfg.SiteAttributes)
	require.NoError(t, cfg.Validate())
}

func TestNormalize_BuildDirIsSiblingOfSource(t *testing.T) {
	cfg := &Config{SourceDir: filepath.Join("site", "source")}
	cfg.Normalize()
	require.Equal(t, filepath.Join("site", BuildDirName), cfg.BuildDir)
	require.Equal(t, filepath.Join("site", BuildDirName, "template"), cfg.BuildTemplateDir())
	require.Equal(t, filepath.Join("site", BuildDirName, "template", "ref"), cfg.BuildRefDir())
}

func TestNormalize_Idempotent(t *testing.T) {
	cfg := &Config{Prefix: "docs"}
	cfg.Normalize()
	first := *cfg
	cfg.Normalize()
	require.Equal(t, first.Prefix, cfg.Prefix)
	require.Equal(t, first.BuildDir, cfg.BuildDir)
	require.Equal(t, "/docs/", cfg.Prefix)
}

func TestMediaURL(t *testing.T) {
	cfg := &Config{Prefix: "/site"}
	cfg.Normalize()
	require.Equal(t, "/site/media/talk.mp3", cfg.MediaURL("talk.mp3"))
	require.Equal(t, filepath.Join(DefaultOutputDir, MediaDirName), cfg.MediaDir())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"same source and output", func(c *Config) { c.OutputDir = c.SourceDir }},
		{"same build and output", func(c *Config) { c.OutputDir = c.BuildDir }},
		{"unknown mode", func(c *Config) { c.Mode = "serve" }},
		{"unknown transcript mode", func(c *Config) { c.Transcript = "sometimes" }},
		{"port out of range", func(c *Config) { c.Preview.Port = 70000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.True(t, errors.HasCategory(err, errors.CategoryValidation))
		})
	}
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "refsite.yaml")
	t.Setenv("REFSITE_TEST_PREFIX", "talks")
	require.NoError(t, os.WriteFile(path, []byte(`
source_dir: content
output_dir: public
prefix: ${REFSITE_TEST_PREFIX}
transcript: generate
debounce_ms: 250
preview:
  port: 8080
whisperx:
  model: large-v2
`), 0o600))

	cfg, resolved, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, path, resolved)
	require.Equal(t, "content", cfg.SourceDir)
	require.Equal(t, "public", cfg.OutputDir)
	require.Equal(t, "/talks/", cfg.Prefix)
	require.Equal(t, TranscriptGenerate, cfg.Transcript)
	require.Equal(t, 250, cfg.DebounceMS)
	require.Equal(t, 8080, cfg.Preview.Port)
	require.Equal(t, DefaultPreviewHost, cfg.Preview.Host)
	require.Equal(t, "large-v2", cfg.WhisperX.Model)
	require.Equal(t, DefaultWhisperXBin, cfg.WhisperX.Command)
}

func TestLoad_TOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "refsite.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
source_dir = "pages"
mode = "dev"
transcript = "off"

[preview]
host = "0.0.0.0"
port = 9000
`), 0o600))

	cfg, _, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "pages", cfg.SourceDir)
	require.Equal(t, ModeDev, cfg.Mode)
	require.Equal(t, TranscriptOff, cfg.Transcript)
	require.Equal(t, "0.0.0.0:9000", cfg.Preview.Addr())
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("source_dir: [unterminated"), 0o600))
	_, _, err := Load(path)
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestLoadSiteAttributes(t *testing.T) {
	dir := t.TempDir()

	attrs, err := LoadSiteAttributes(dir)
	require.NoError(t, err)
	require.Empty(t, attrs)

	require.NoError(t, os.WriteFile(filepath.Join(dir, SiteAttributesFile),
		[]byte("title: Reference Site\nyear: 2024\n"), 0o600))
	attrs, err = LoadSiteAttributes(dir)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"title": "Reference Site", "year": "2024"}, attrs)
}

func TestSetSourceDir_MovesDerivedBuildDir(t *testing.T) {
	cfg := Default()
	cfg.SetSourceDir(filepath.Join("site", "content"))
	require.Equal(t, filepath.Join("site", BuildDirName), cfg.BuildDir)

	cfg.BuildDir = "/tmp/custom"
	cfg.SetSourceDir("other")
	require.Equal(t, "/tmp/custom", cfg.BuildDir)
	require.Equal(t, "other", cfg.SourceDir)
}
