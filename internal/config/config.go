// Package config loads the storypage configuration.
//
// Load builds one Config from three layers, highest precedence last:
//
//  1. An optional .env file next to the YAML file.
//  2. The YAML file itself, if it exists.
//  3. Environment variables prefixed STORYPAGE_, where __ maps to "."
//     (STORYPAGE_BLOBS__BASE_URL sets blobs.base_url).
//
// The merged tree is unmarshalled over Default() and validated.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "STORYPAGE_"

// Config is the application configuration.
type Config struct {
	Store StoreConfig `koanf:"store"`
	Blobs BlobsConfig `koanf:"blobs"`
	Tiers TiersConfig `koanf:"tiers"`
	Log   LogConfig   `koanf:"log"`
}

// StoreConfig locates the SQLite document database.
type StoreConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// BlobsConfig locates uploaded files and the URL they are served from.
type BlobsConfig struct {
	Root    string `koanf:"root" validate:"required"`
	BaseURL string `koanf:"base_url" validate:"required,url"`
}

// TiersConfig optionally replaces the embedded tier table.
type TiersConfig struct {
	File string `koanf:"file"`
}

// LogConfig selects the log sink. An empty File logs text to stderr.
type LogConfig struct {
	Level      string `koanf:"level" validate:"oneof=debug info warn error"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `koanf:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `koanf:"max_age_days" validate:"gte=0"`
}

// Default returns settings for local use in the working directory.
func Default() Config {
	return Config{
		Store: StoreConfig{Path: "storypage.db"},
		Blobs: BlobsConfig{Root: "blobs", BaseURL: "http://localhost:8080/blobs"},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 7,
			MaxAgeDays: 14,
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads path (optional; empty means defaults plus environment),
// overlays the environment, and validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		// .env is optional; a missing file is not an error.
		envFile := filepath.Join(filepath.Dir(path), ".env")
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}

		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config %s: %w", path, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Tiers.File != "" && path != "" && !filepath.IsAbs(cfg.Tiers.File) {
		cfg.Tiers.File = filepath.Join(filepath.Dir(path), cfg.Tiers.File)
	}
	return &cfg, nil
}

// envKey maps STORYPAGE_BLOBS__BASE_URL to blobs.base_url.
func envKey(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(s, EnvPrefix), "__", "."))
}
