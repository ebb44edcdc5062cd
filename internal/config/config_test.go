package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "global", cfg.DefaultRegion)
	assert.Equal(t, "en", cfg.DefaultLocale)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("global_base_url: https://api.learnhub.io/\ncn_base_url: https://api.learnhub.cn\ndefault_locale: zh\n")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	t.Setenv("LEARNHUB_CN_BASE_URL", "https://cn.example.com")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://api.learnhub.io", cfg.BaseURL("global"))
	assert.Equal(t, "https://cn.example.com", cfg.BaseURL("cn"))
	assert.Equal(t, "zh", cfg.DefaultLocale)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestBaseURL_Empty(t *testing.T) {
	assert.Empty(t, Config{}.BaseURL("global"))
	assert.Empty(t, Config{}.BaseURL("cn"))
}
