package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/refsite/internal/foundation/errors"
	"git.home.luguber.info/inful/refsite/internal/frontmatter"
	"git.home.luguber.info/inful/refsite/internal/logfields"
)

// DefaultConfigFiles are searched, in order, when no config path is given.
var DefaultConfigFiles = []string{"refsite.yaml", "refsite.yml", "refsite.toml"}

// Load reads the configuration file at path (or the first of DefaultConfigFiles found in
// the working directory when path is empty), expands ${VAR} references and applies
// defaults. A missing default file is not an error; a missing explicit file is.
// It returns the resolved file path, empty when defaults were used.
func Load(path string) (*Config, string, error) {
	loadEnvFile()

	resolved, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", err
	}

	cfg := &Config{}
	if resolved != "" {
		data, err := os.ReadFile(resolved)
		if err != nil {
			return nil, "", errors.WrapError(err, errors.CategoryConfig, "read config file").
				WithContext(logfields.KeyPath, resolved).
				Build()
		}
		if err := decode(resolved, []byte(os.ExpandEnv(string(data))), cfg); err != nil {
			return nil, "", errors.WrapError(err, errors.CategoryConfig, "parse config file").
				WithContext(logfields.KeyPath, resolved).
				Build()
		}
	}

	cfg.Normalize()
	return cfg, resolved, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Unmarshal(data, cfg)
	case ".yaml", ".yml", "":
		return yaml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

func resolveConfigPath(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", errors.WrapError(err, errors.CategoryConfig, "configuration file not found").
				WithContext(logfields.KeyPath, path).
				Build()
		}
		return path, nil
	}
	for _, candidate := range DefaultConfigFiles {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", nil
}

// loadEnvFile loads the first of .env/.env.local found. Existing process environment
// variables are not overwritten.
func loadEnvFile() {
	for _, envPath := range []string{".env", ".env.local"} {
		if err := godotenv.Load(envPath); err == nil {
			slog.Debug("Loaded environment variables", logfields.Path(envPath))
			return
		}
	}
}

// LoadSiteAttributes reads the site-wide key/value attributes from SiteAttributesFile at
// the source root. A missing file yields an empty map.
func LoadSiteAttributes(sourceDir string) (map[string]string, error) {
	path := filepath.Join(sourceDir, SiteAttributesFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return map[string]string{}, errors.WrapError(err, errors.CategoryFileSystem, "read site attributes").
			WithContext(logfields.KeyPath, path).
			Build()
	}
	fields, err := frontmatter.ParseYAML(data)
	if err != nil {
		return map[string]string{}, errors.WrapError(err, errors.CategoryConfig, "parse site attributes").
			WithContext(logfields.KeyPath, path).
			Build()
	}
	return frontmatter.StringAttributes(fields), nil
}
