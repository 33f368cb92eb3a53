package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "storypage.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "storypage.db", cfg.Store.Path)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storypage.yaml")
	writeFile(t, path, `
store:
  path: /var/lib/storypage/orders.db
blobs:
  root: /var/lib/storypage/blobs
  base_url: https://cdn.example.com/blobs
tiers:
  file: tiers.cue
log:
  level: warn
  file: /var/log/storypage.log
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/storypage/orders.db", cfg.Store.Path)
	assert.Equal(t, "https://cdn.example.com/blobs", cfg.Blobs.BaseURL)
	assert.Equal(t, filepath.Join(dir, "tiers.cue"), cfg.Tiers.File)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 7, cfg.Log.MaxBackups, "unset keys keep defaults")
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storypage.yaml")
	writeFile(t, path, "blobs:\n  base_url: https://a.example.com\n")
	t.Setenv("STORYPAGE_BLOBS__BASE_URL", "https://b.example.com")
	t.Setenv("STORYPAGE_LOG__LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://b.example.com", cfg.Blobs.BaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storypage.yaml")
	writeFile(t, path, "store:\n  path: from-yaml.db\n")
	writeFile(t, filepath.Join(dir, ".env"), "STORYPAGE_STORE__PATH=from-dotenv.db\n")
	t.Setenv("STORYPAGE_STORE__PATH", "")
	os.Unsetenv("STORYPAGE_STORE__PATH")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv.db", cfg.Store.Path)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storypage.yaml")

	writeFile(t, path, "blobs:\n  base_url: not a url\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "invalid config")

	writeFile(t, path, "log:\n  level: loud\n")
	_, err = Load(path)
	assert.ErrorContains(t, err, "invalid config")

	writeFile(t, path, "store: [unclosed\n")
	_, err = Load(path)
	assert.ErrorContains(t, err, "load config")
}
