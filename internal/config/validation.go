package config

import (
	"path/filepath"
	"slices"
	"strings"

	"git.home.luguber.info/inful/refsite/internal/foundation/errors"
)

// NormalizePrefix ensures a URL path prefix starts and ends with '/'. The empty prefix is "/".
func NormalizePrefix(prefix string) string {
	if prefix == "" {
		return "/"
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}

// Validate checks a normalized configuration for values no build can work with.
func (c *Config) Validate() error {
	if c.SourceDir == "" {
		return errors.ValidationError("source directory is required").Build()
	}
	if filepath.Clean(c.SourceDir) == filepath.Clean(c.OutputDir) {
		return errors.ValidationError("source and output directories must differ").
			WithContext("dir", c.SourceDir).
			Build()
	}
	if filepath.Clean(c.BuildDir) == filepath.Clean(c.OutputDir) {
		return errors.ValidationError("build and output directories must differ").
			WithContext("dir", c.BuildDir).
			Build()
	}
	if !slices.Contains(validModes, c.Mode) {
		return errors.ValidationError("unknown mode").
			WithContext("mode", string(c.Mode)).
			Build()
	}
	if !slices.Contains(validTranscripts, c.Transcript) {
		return errors.ValidationError("unknown transcript mode").
			WithContext("transcript", string(c.Transcript)).
			Build()
	}
	if c.Preview.Port <= 0 || c.Preview.Port > 65535 {
		return errors.ValidationError("preview port out of range").
			WithContext("port", c.Preview.Port).
			Build()
	}
	return nil
}
