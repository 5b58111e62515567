package config

import (
	"fmt"
	"path/filepath"
)

// Mode selects between a one-shot production build and the live-preview development loop.
type Mode string

const (
	ModeBuild Mode = "build"
	ModeDev   Mode = "dev"
)

// TranscriptMode controls how reference bundles use transcripts.
type TranscriptMode string

const (
	// TranscriptOff renders reference markdown without timing annotations.
	TranscriptOff TranscriptMode = "off"
	// TranscriptStatic aligns against transcripts that already exist next to the audio.
	TranscriptStatic TranscriptMode = "static"
	// TranscriptGenerate also generates missing transcripts before aligning.
	TranscriptGenerate TranscriptMode = "generate"
)

// Default directory and file names.
const (
	DefaultSourceDir    = "source"
	DefaultTemplateDir  = "template"
	DefaultRefDir       = "ref"
	DefaultOutputDir    = ".dist"
	BuildDirName        = ".build"
	SiteAttributesFile  = "_site.yaml"
	MediaDirName        = "media"
	DefaultLayout       = "default"
	DefaultPreviewHost  = "127.0.0.1"
	DefaultPreviewPort  = 3456
	DefaultDebounceMS   = 1000
	DefaultWhisperXBin  = "whisperx"
	DefaultWhisperXLang = "en"
)

// Config is the build configuration shared by every stage of a build.
type Config struct {
	SourceDir   string         `yaml:"source_dir" toml:"source_dir"`
	TemplateDir string         `yaml:"template_dir" toml:"template_dir"`
	RefDir      string         `yaml:"ref_dir" toml:"ref_dir"`
	OutputDir   string         `yaml:"output_dir" toml:"output_dir"`
	BuildDir    string         `yaml:"build_dir,omitempty" toml:"build_dir,omitempty"` // Defaults to a sibling of SourceDir
	Prefix      string         `yaml:"prefix" toml:"prefix"`                           // URL path prefix for deployments below the root
	Mode        Mode           `yaml:"mode" toml:"mode"`
	Transcript  TranscriptMode `yaml:"transcript" toml:"transcript"`
	DebounceMS  int            `yaml:"debounce_ms" toml:"debounce_ms"`
	Preview     PreviewConfig  `yaml:"preview" toml:"preview"`
	WhisperX    WhisperXConfig `yaml:"whisperx" toml:"whisperx"`

	// SiteAttributes is loaded from SiteAttributesFile at the source root, not from the config file.
	SiteAttributes map[string]string `yaml:"-" toml:"-"`
}

// PreviewConfig configures the development preview server.
type PreviewConfig struct {
	Host string `yaml:"host" toml:"host"`
	Port int    `yaml:"port" toml:"port"`
}

// Addr returns the listen address.
func (p PreviewConfig) Addr() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

// WhisperXConfig configures the external transcript generator.
type WhisperXConfig struct {
	Command     string   `yaml:"command" toml:"command"`
	Model       string   `yaml:"model,omitempty" toml:"model,omitempty"`
	Language    string   `yaml:"language" toml:"language"`
	ComputeType string   `yaml:"compute_type" toml:"compute_type"`
	ExtraArgs   []string `yaml:"extra_args,omitempty" toml:"extra_args,omitempty"`
}

// Default returns a configuration with every field set to its default.
func Default() *Config {
	cfg := &Config{}
	cfg.Normalize()
	return cfg
}

// Normalize fills defaults and canonicalizes the prefix. It is idempotent.
func (c *Config) Normalize() {
	if c.SourceDir == "" {
		c.SourceDir = DefaultSourceDir
	}
	if c.TemplateDir == "" {
		c.TemplateDir = DefaultTemplateDir
	}
	if c.RefDir == "" {
		c.RefDir = DefaultRefDir
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.BuildDir == "" {
		c.BuildDir = defaultBuildDir(c.SourceDir)
	}
	c.Prefix = NormalizePrefix(c.Prefix)
	if c.Mode == "" {
		c.Mode = ModeBuild
	}
	if c.Transcript == "" {
		c.Transcript = TranscriptStatic
	}
	if c.DebounceMS <= 0 {
		c.DebounceMS = DefaultDebounceMS
	}
	if c.Preview.Host == "" {
		c.Preview.Host = DefaultPreviewHost
	}
	if c.Preview.Port == 0 {
		c.Preview.Port = DefaultPreviewPort
	}
	if c.WhisperX.Command == "" {
		c.WhisperX.Command = DefaultWhisperXBin
	}
	if c.WhisperX.Language == "" {
		c.WhisperX.Language = DefaultWhisperXLang
	}
	if c.WhisperX.ComputeType == "" {
		c.WhisperX.ComputeType = "float32"
	}
	if c.SiteAttributes == nil {
		c.SiteAttributes = map[string]string{}
	}
}

// SetSourceDir changes the source directory. A build directory that was derived from the
// previous source directory follows it.
func (c *Config) SetSourceDir(dir string) {
	if c.BuildDir == defaultBuildDir(c.SourceDir) {
		c.BuildDir = defaultBuildDir(dir)
	}
	c.SourceDir = dir
}

func defaultBuildDir(sourceDir string) string {
	return filepath.Join(filepath.Dir(filepath.Clean(sourceDir)), BuildDirName)
}

// BuildTemplateDir is the scratch directory the template tree is copied into on every full build.
func (c *Config) BuildTemplateDir() string {
	return filepath.Join(c.BuildDir, "template")
}

// BuildRefDir is where reference bundle fragments are generated.
func (c *Config) BuildRefDir() string {
	return filepath.Join(c.BuildTemplateDir(), DefaultRefDir)
}

// MediaDir is the output directory reference audio is copied into.
func (c *Config) MediaDir() string {
	return filepath.Join(c.OutputDir, MediaDirName)
}

// MediaURL returns the URL a media file is served under.
func (c *Config) MediaURL(fileName string) string {
	return c.Prefix + MediaDirName + "/" + fileName
}

// IsDev reports whether rendered pages get the live-reload client injected.
func (c *Config) IsDev() bool {
	return c.Mode == ModeDev
}

var (
	validModes       = []Mode{ModeBuild, ModeDev}
	validTranscripts = []TranscriptMode{TranscriptOff, TranscriptStatic, TranscriptGenerate}
)
